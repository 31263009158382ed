package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/trznica/internal/model"
)

// CreateSale records the sale of an item to buyerID and flips the item to
// sold in a single database transaction.
//
// The flip is a conditional update on sold = 0, so of two concurrent buyers
// exactly one wins; the loser gets ErrItemSold and its transaction row is
// rolled back with everything else.
func CreateSale(ctx context.Context, db *sql.DB, itemID, buyerID string) (*model.Transaction, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Snapshot name and price from inside the transaction.
	t := &model.Transaction{ItemID: itemID, BuyerID: buyerID}
	err = tx.QueryRowContext(ctx,
		`SELECT name, price, seller_id FROM items WHERE id = ?`, itemID,
	).Scan(&t.Name, &t.Price, &t.SellerID)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading item: %w", err)
	}

	t.ID = uuid.NewString()
	t.CreatedAt = now()

	result, err := tx.ExecContext(ctx,
		`UPDATE items SET sold = 1, updated_at = ? WHERE id = ? AND sold = 0`,
		t.CreatedAt, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("marking item sold: %w", err)
	}
	if err := expectOneRow(result, ErrItemSold); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, item_id, seller_id, buyer_id, name, price, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ItemID, t.SellerID, t.BuyerID, t.Name, t.Price, t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing sale: %w", err)
	}

	return t, nil
}

// GetTransaction returns a transaction by ID.
func GetTransaction(ctx context.Context, db *sql.DB, id string) (*model.Transaction, error) {
	t, err := scanTransaction(db.QueryRowContext(ctx,
		`SELECT id, item_id, seller_id, buyer_id, name, price, created_at
		 FROM transactions WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return t, nil
}

// ListSales returns the transactions in which userID was the seller.
func ListSales(ctx context.Context, db *sql.DB, userID string) ([]model.Transaction, error) {
	return listTransactions(ctx, db, "seller_id", userID)
}

// ListPurchases returns the transactions in which userID was the buyer.
func ListPurchases(ctx context.Context, db *sql.DB, userID string) ([]model.Transaction, error) {
	return listTransactions(ctx, db, "buyer_id", userID)
}

// CountTransactions returns the number of transactions recorded for an item.
func CountTransactions(ctx context.Context, db *sql.DB, itemID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE item_id = ?`, itemID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

// listTransactions filters on a fixed column name, never on caller input.
func listTransactions(ctx context.Context, db *sql.DB, column, userID string) ([]model.Transaction, error) {
	query, args, err := psql.Select("id", "item_id", "seller_id", "buyer_id", "name", "price", "created_at").
		From("transactions").
		Where(column+" = ?", userID).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building transaction query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	if err := row.Scan(&t.ID, &t.ItemID, &t.SellerID, &t.BuyerID, &t.Name, &t.Price, &t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}
