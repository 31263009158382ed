package model

import "time"

// Item is a single unit listed for sale by one seller.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Group       string    `json:"group"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Price       int       `json:"price"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Images      []string  `json:"images"`
	Sold        bool      `json:"sold"`
	SellerID    string    `json:"seller_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	Seller *Seller `json:"seller,omitempty"`
}

// Seller is the public part of the user who listed an item.
type Seller struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	ImageURL string `json:"image_url,omitempty"`
}

// Item groups.
const (
	GroupMen   = "men"
	GroupWomen = "women"
	GroupKids  = "kids"
)

// Item categories.
const (
	CategoryClothes = "clothes"
	CategoryShoes   = "shoes"
)

// Groups lists every valid item group.
var Groups = []string{GroupMen, GroupWomen, GroupKids}

// Categories lists every valid item category.
var Categories = []string{CategoryClothes, CategoryShoes}

// Subcategories lists every valid item subcategory.
var Subcategories = []string{
	"shorts", "trousers", "skirt", "shirts", "costume", "socks",
	"underwear", "sports", "boys", "girls", "sweaters", "dress",
	"jeans", "sneakers", "sandals", "boots",
}

// Colors lists every valid item color.
var Colors = []string{
	"red", "blue", "green", "yellow", "black",
	"orange", "white", "purple", "pink",
}

// Item field limits.
const (
	MinPrice             = 1
	MaxPrice             = 10000
	MaxItemNameLength    = 100
	MaxDescriptionLength = 1000
	MaxItemImages        = 10
)

// ItemInput holds the fields of a new item. Empty optional strings and a nil
// Tags slice mean "not given".
type ItemInput struct {
	Name        string   `json:"name"`
	Group       string   `json:"group"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Price       int      `json:"price"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	Tags        []string `json:"tags"`
}

// ItemUpdate holds the fields to change on an item. Nil means "leave as is".
type ItemUpdate struct {
	Name        *string   `json:"name"`
	Group       *string   `json:"group"`
	Category    *string   `json:"category"`
	Subcategory *string   `json:"subcategory"`
	Price       *int      `json:"price"`
	Description *string   `json:"description"`
	Color       *string   `json:"color"`
	Tags        *[]string `json:"tags"`
}

// Empty reports whether the update carries no field at all.
func (u ItemUpdate) Empty() bool {
	return u.Name == nil && u.Group == nil && u.Category == nil &&
		u.Subcategory == nil && u.Price == nil && u.Description == nil &&
		u.Color == nil && u.Tags == nil
}

// Apply copies every present field of u onto item.
func (u ItemUpdate) Apply(item *Item) {
	if u.Name != nil {
		item.Name = *u.Name
	}
	if u.Group != nil {
		item.Group = *u.Group
	}
	if u.Category != nil {
		item.Category = *u.Category
	}
	if u.Subcategory != nil {
		item.Subcategory = *u.Subcategory
	}
	if u.Price != nil {
		item.Price = *u.Price
	}
	if u.Description != nil {
		item.Description = *u.Description
	}
	if u.Color != nil {
		item.Color = *u.Color
	}
	if u.Tags != nil {
		item.Tags = *u.Tags
	}
}

// ItemQuery is the raw, unvalidated search request for the catalog.
// Page and Limit stay strings because bad values are corrected, not rejected.
type ItemQuery struct {
	Q           string
	Group       string
	Category    string
	Subcategory string
	Colors      []string
	Price       map[string]string
	SortBy      string
	Direction   string
	Page        string
	Limit       string
}

// PriceFilter is a validated price comparison.
type PriceFilter struct {
	Op    string
	Value float64
}

// Price comparison operators.
const (
	PriceGT  = "gt"
	PriceGTE = "gte"
	PriceLT  = "lt"
	PriceLTE = "lte"
	PriceIn  = "in"
)

// ItemFilter is the validated search predicate handed to the store.
// Sold items are always excluded by the store.
type ItemFilter struct {
	Term        string
	Group       string
	Category    string
	Subcategory string
	Colors      []string
	Price       *PriceFilter
}

// Sort keys.
const (
	SortByName    = "name"
	SortByPrice   = "price"
	SortByUpdated = "updated_at"
)

// ItemSort selects the result order.
type ItemSort struct {
	Field string
	Desc  bool
}

// ItemPage is one page of search results.
type ItemPage struct {
	Items      []Item `json:"items"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalItems int    `json:"totalItems"`
}
