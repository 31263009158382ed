package model

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/erazemk/trznica/internal/apperr"
)

// Item validation messages.
const (
	msgInvalidGroup       = "Item group must be a valid value."
	msgInvalidCategory    = "Item category must be a valid category."
	msgInvalidName        = "Item name must be between 1 and 100 characters."
	msgInvalidPrice       = "You must enter an item price between 1 and 10000."
	msgInvalidSubcategory = "Provided subcategory must be a valid value."
	msgInvalidDescription = "Item description cannot be longer than 1000 characters."
	msgInvalidColor       = "Item color must be a valid color."
	msgInvalidTags        = "Item tags must be valid values."
	msgTooManyImages      = "You can only upload 10 images per item."
)

// ValidateItemInput checks a new item and returns the first violation in the
// order group, category, name, price, subcategory, description, color, tags,
// images.
func ValidateItemInput(in ItemInput, imageCount int) error {
	if !slices.Contains(Groups, in.Group) {
		return apperr.Validation(msgInvalidGroup)
	}
	if !slices.Contains(Categories, in.Category) {
		return apperr.Validation(msgInvalidCategory)
	}
	if !validItemName(in.Name) {
		return apperr.Validation(msgInvalidName)
	}
	if !validPrice(in.Price) {
		return apperr.Validation(msgInvalidPrice)
	}
	if in.Subcategory != "" && !slices.Contains(Subcategories, in.Subcategory) {
		return apperr.Validation(msgInvalidSubcategory)
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return apperr.Validation(msgInvalidDescription)
	}
	if in.Color != "" && !slices.Contains(Colors, in.Color) {
		return apperr.Validation(msgInvalidColor)
	}
	if in.Tags != nil && !validTags(in.Tags) {
		return apperr.Validation(msgInvalidTags)
	}
	if imageCount > MaxItemImages {
		return apperr.Validation(msgTooManyImages)
	}
	return nil
}

// ValidateItemUpdate checks the present fields of an update in the same
// order as ValidateItemInput. Optional fields may be cleared with "".
func ValidateItemUpdate(u ItemUpdate, imageCount int) error {
	if u.Group != nil && !slices.Contains(Groups, *u.Group) {
		return apperr.Validation(msgInvalidGroup)
	}
	if u.Category != nil && !slices.Contains(Categories, *u.Category) {
		return apperr.Validation(msgInvalidCategory)
	}
	if u.Name != nil && !validItemName(*u.Name) {
		return apperr.Validation(msgInvalidName)
	}
	if u.Price != nil && !validPrice(*u.Price) {
		return apperr.Validation(msgInvalidPrice)
	}
	if u.Subcategory != nil && *u.Subcategory != "" && !slices.Contains(Subcategories, *u.Subcategory) {
		return apperr.Validation(msgInvalidSubcategory)
	}
	if u.Description != nil && utf8.RuneCountInString(*u.Description) > MaxDescriptionLength {
		return apperr.Validation(msgInvalidDescription)
	}
	if u.Color != nil && *u.Color != "" && !slices.Contains(Colors, *u.Color) {
		return apperr.Validation(msgInvalidColor)
	}
	if u.Tags != nil && !validTags(*u.Tags) {
		return apperr.Validation(msgInvalidTags)
	}
	if imageCount > MaxItemImages {
		return apperr.Validation(msgTooManyImages)
	}
	return nil
}

// Search validation messages.
const (
	msgInvalidColorFilter  = "Must supply a valid color."
	msgInvalidColorsFilter = "Must supply valid colors."
	msgInvalidPriceFilter  = "Incorrect price request."
)

// ValidateItemQuery checks the filter part of a search request and returns
// the predicate for the store. Sorting and paging are never rejected and are
// left to the caller.
func ValidateItemQuery(q ItemQuery) (ItemFilter, error) {
	f := ItemFilter{Term: q.Q}

	if q.Group != "" && !slices.Contains(Groups, q.Group) {
		return f, apperr.Validation(msgInvalidGroup)
	}
	if q.Category != "" && !slices.Contains(Categories, q.Category) {
		return f, apperr.Validation(msgInvalidCategory)
	}
	if q.Subcategory != "" && !slices.Contains(Subcategories, q.Subcategory) {
		return f, apperr.Validation(msgInvalidSubcategory)
	}
	for _, c := range q.Colors {
		if !slices.Contains(Colors, c) {
			if len(q.Colors) == 1 {
				return f, apperr.Validation(msgInvalidColorFilter)
			}
			return f, apperr.Validation(msgInvalidColorsFilter)
		}
	}
	f.Group, f.Category, f.Subcategory = q.Group, q.Category, q.Subcategory
	f.Colors = q.Colors

	if len(q.Price) > 0 {
		p, err := parsePriceFilter(q.Price)
		if err != nil {
			return f, err
		}
		f.Price = p
	}
	return f, nil
}

// parsePriceFilter accepts exactly one operator with a numeric value in the
// price range. A bare price=v arrives under the empty key and is rejected.
func parsePriceFilter(m map[string]string) (*PriceFilter, error) {
	if len(m) != 1 {
		return nil, apperr.Validation(msgInvalidPriceFilter)
	}
	for op, raw := range m {
		switch op {
		case PriceGT, PriceGTE, PriceLT, PriceLTE, PriceIn:
		default:
			return nil, apperr.Validation(msgInvalidPriceFilter)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || v < MinPrice || v > MaxPrice {
			return nil, apperr.Validation(msgInvalidPriceFilter)
		}
		return &PriceFilter{Op: op, Value: v}, nil
	}
	return nil, apperr.Validation(msgInvalidPriceFilter)
}

func validItemName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= 1 && n <= MaxItemNameLength
}

func validPrice(price int) bool {
	return price >= MinPrice && price <= MaxPrice
}

func validTags(tags []string) bool {
	if len(tags) == 0 {
		return false
	}
	for _, t := range tags {
		if strings.TrimSpace(t) == "" {
			return false
		}
	}
	return true
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail checks the email format.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return apperr.Validation("Must submit a valid email address.")
	}
	return nil
}

// ValidateUserName checks the display name length.
func ValidateUserName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < MinUserNameLength || n > MaxUserNameLength {
		return apperr.Validation("Name must be at least 2 and maximum 50 characters long.")
	}
	return nil
}

// ValidatePassword enforces the password policy: 6 to 100 characters with at
// least one lowercase letter, one uppercase letter and one digit.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if n < MinPasswordLength || n > MaxPasswordLength || !lower || !upper || !digit {
		return apperr.Validation("Passwords must contain at least 6 characters and should contain an uppercase, lowercase and numeric value.")
	}
	return nil
}

// ValidateSignup checks a signup request.
func ValidateSignup(in SignupInput) error {
	if in.Email == "" || in.Name == "" || in.Password == "" || in.ConfirmPassword == "" {
		return apperr.Validation("Invalid request, must supply a name, an email and a password.")
	}
	if in.Password != in.ConfirmPassword {
		return apperr.Validation("Invalid request: passwords don't match.")
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	return ValidateUserName(in.Name)
}

// ValidateProfileUpdate checks the present fields of a profile update.
// hasImage counts as a field so an image-only update is allowed.
func ValidateProfileUpdate(u ProfileUpdate, hasImage bool) error {
	if u.Empty() && !hasImage {
		return apperr.Validation("Nothing to update your profile.")
	}
	if u.Email != "" {
		if err := ValidateEmail(u.Email); err != nil {
			return err
		}
	}
	if u.Name != "" {
		if err := ValidateUserName(u.Name); err != nil {
			return err
		}
	}
	if u.Password != "" {
		if u.Password != u.ConfirmPassword {
			return apperr.Validation("Passwords should match.")
		}
		if err := ValidatePassword(u.Password); err != nil {
			return err
		}
	}
	return nil
}
