// Package policy decides who may act on items and transactions.
package policy

import (
	"github.com/erazemk/trznica/internal/apperr"
	"github.com/erazemk/trznica/internal/model"
)

// Messages returned by the policy checks.
const (
	MsgNotSeller = "Only the seller can perform this action."
	MsgNotParty  = "Unauthorized."
)

// AuthorizeOwnership fails unless user listed item.
func AuthorizeOwnership(item *model.Item, user *model.User) error {
	if item == nil || user == nil || item.SellerID != user.ID {
		return apperr.Authorization(MsgNotSeller)
	}
	return nil
}

// AuthorizeParty fails unless user is the buyer or the seller of t.
func AuthorizeParty(t *model.Transaction, user *model.User) error {
	if t == nil || user == nil {
		return apperr.Authorization(MsgNotParty)
	}
	if t.BuyerID != user.ID && t.SellerID != user.ID {
		return apperr.Authorization(MsgNotParty)
	}
	return nil
}
