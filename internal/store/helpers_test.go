package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/trznica/internal/model"
)

func mustCreateUser(t *testing.T, database *sql.DB, name, email string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, name, email, "hash", "")
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return u
}

func mustCreateItem(t *testing.T, database *sql.DB, sellerID string, in model.ItemInput, images ...string) *model.Item {
	t.Helper()
	if in.Group == "" {
		in.Group = model.GroupMen
	}
	if in.Category == "" {
		in.Category = model.CategoryClothes
	}
	if in.Price == 0 {
		in.Price = 10
	}
	item, err := CreateItem(context.Background(), database, sellerID, in, images)
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", in.Name, err)
	}
	return item
}
