package model

import "time"

// Transaction is the immutable record of a completed sale. Name and Price are
// copies taken at sale time.
type Transaction struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	SellerID  string    `json:"seller_id"`
	BuyerID   string    `json:"buyer_id"`
	Name      string    `json:"name"`
	Price     int       `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction list filters.
const (
	TransactionsSales     = "sales"
	TransactionsPurchases = "purchases"
)
