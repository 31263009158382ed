// Package ledger records sales. Creating a transaction is the only way an
// item becomes sold, and it happens at most once per item.
package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/trznica/internal/apperr"
	"github.com/erazemk/trznica/internal/catalog"
	"github.com/erazemk/trznica/internal/model"
	"github.com/erazemk/trznica/internal/policy"
	"github.com/erazemk/trznica/internal/store"
)

// Caller-facing messages.
const (
	MsgNotForSale          = "Item is no longer for sale."
	MsgOwnItem             = "You cannot buy your own item."
	MsgTransactionNotFound = "No transaction found."
)

// Service implements the sale operations.
type Service struct {
	db      *sql.DB
	catalog *catalog.Service
	log     *zap.Logger
}

// New returns a ledger service reading items through cat.
func New(db *sql.DB, cat *catalog.Service, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, catalog: cat, log: log}
}

// CreateTransaction sells the item to buyer. The item flips to sold and the
// transaction row is written in one database transaction; a concurrent
// buyer that loses gets a state error and leaves nothing behind.
func (s *Service) CreateTransaction(ctx context.Context, itemID string, buyer *model.User) (*model.Transaction, error) {
	if buyer == nil {
		return nil, apperr.Unauthenticated(catalog.MsgUnauthenticated)
	}

	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Sold {
		return nil, apperr.State(MsgNotForSale)
	}
	if item.SellerID == buyer.ID {
		return nil, apperr.Authorization(MsgOwnItem)
	}

	t, err := store.CreateSale(ctx, s.db, item.ID, buyer.ID)
	switch {
	case errors.Is(err, store.ErrItemSold):
		return nil, apperr.State(MsgNotForSale)
	case errors.Is(err, store.ErrItemNotFound):
		return nil, apperr.NotFound(catalog.MsgItemNotFound)
	case err != nil:
		return nil, apperr.Internal("creating transaction", err)
	}

	s.log.Info("sale completed",
		zap.String("transaction_id", t.ID),
		zap.String("item_id", t.ItemID),
		zap.String("seller_id", t.SellerID),
		zap.String("buyer_id", t.BuyerID),
		zap.Int("price", t.Price),
	)
	return t, nil
}

// GetTransaction returns a transaction the requester took part in.
func (s *Service) GetTransaction(ctx context.Context, id string, requester *model.User) (*model.Transaction, error) {
	if requester == nil {
		return nil, apperr.Unauthenticated(catalog.MsgUnauthenticated)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound(MsgTransactionNotFound)
	}

	t, err := store.GetTransaction(ctx, s.db, id)
	if err != nil {
		return nil, apperr.Internal("getting transaction", err)
	}
	if t == nil {
		return nil, apperr.NotFound(MsgTransactionNotFound)
	}
	if err := policy.AuthorizeParty(t, requester); err != nil {
		return nil, err
	}
	return t, nil
}

// GetItemTransaction is GetTransaction scoped to one item.
func (s *Service) GetItemTransaction(ctx context.Context, itemID, id string, requester *model.User) (*model.Transaction, error) {
	t, err := s.GetTransaction(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if t.ItemID != itemID {
		return nil, apperr.NotFound(MsgTransactionNotFound)
	}
	return t, nil
}

// GetTransactions lists the requester's sales, purchases, or both with the
// sales first for any other kind. A non-empty itemID narrows the result to
// that item.
func (s *Service) GetTransactions(ctx context.Context, requester *model.User, kind, itemID string) ([]model.Transaction, error) {
	if requester == nil {
		return nil, apperr.Unauthenticated(catalog.MsgUnauthenticated)
	}

	var out []model.Transaction
	if kind != model.TransactionsPurchases {
		sales, err := store.ListSales(ctx, s.db, requester.ID)
		if err != nil {
			return nil, apperr.Internal("listing sales", err)
		}
		out = append(out, sales...)
	}
	if kind != model.TransactionsSales {
		purchases, err := store.ListPurchases(ctx, s.db, requester.ID)
		if err != nil {
			return nil, apperr.Internal("listing purchases", err)
		}
		out = append(out, purchases...)
	}

	if itemID != "" {
		filtered := out[:0]
		for _, t := range out {
			if t.ItemID == itemID {
				filtered = append(filtered, t)
			}
		}
		out = filtered
	}
	if out == nil {
		out = []model.Transaction{}
	}
	return out, nil
}
