package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/erazemk/trznica/internal/model"
)

var itemColumns = []string{
	"i.id", "i.name", "i.item_group", "i.category", "i.subcategory", "i.price",
	"i.description", "i.color", "i.tags", "i.images", "i.sold", "i.seller_id",
	"i.created_at", "i.updated_at",
	"u.id", "u.name", "u.email", "u.image_url",
}

// CreateItem inserts a new unsold item owned by sellerID.
func CreateItem(ctx context.Context, db *sql.DB, sellerID string, in model.ItemInput, images []string) (*model.Item, error) {
	tags, err := encodeList(in.Tags)
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}
	imgs, err := encodeList(images)
	if err != nil {
		return nil, fmt.Errorf("encoding images: %w", err)
	}

	id := uuid.NewString()
	ts := now()
	_, err = db.ExecContext(ctx,
		`INSERT INTO items (id, name, item_group, category, subcategory, price, description,
		                    color, tags, images, seller_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Name, in.Group, in.Category, in.Subcategory, in.Price, in.Description,
		in.Color, tags, imgs, sellerID, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID with its seller joined in.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	query, args, err := psql.Select(itemColumns...).
		From("items i").
		LeftJoin("users u ON u.id = i.seller_id").
		Where(sq.Eq{"i.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building item query: %w", err)
	}

	item, err := scanItem(db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// UpdateItem writes every mutable field of item. The write only applies while
// the item is unsold; otherwise ErrItemSold is returned.
func UpdateItem(ctx context.Context, db *sql.DB, item *model.Item) error {
	tags, err := encodeList(item.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	imgs, err := encodeList(item.Images)
	if err != nil {
		return fmt.Errorf("encoding images: %w", err)
	}

	ts := now()
	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, item_group = ?, category = ?, subcategory = ?, price = ?,
		                  description = ?, color = ?, tags = ?, images = ?, updated_at = ?
		 WHERE id = ? AND sold = 0`,
		item.Name, item.Group, item.Category, item.Subcategory, item.Price,
		item.Description, item.Color, tags, imgs, ts, item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	if err := expectOneRow(result, ErrItemSold); err != nil {
		return err
	}
	item.UpdatedAt = ts
	return nil
}

// DeleteItem removes an unsold item. A sold item is left in place and
// ErrItemSold is returned.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ? AND sold = 0`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return expectOneRow(result, ErrItemSold)
}

// CountItems returns the number of unsold items matching f.
func CountItems(ctx context.Context, db *sql.DB, f model.ItemFilter) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("items i").
		Where(itemPredicate(f)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count query: %w", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// SearchItems returns one window of unsold items matching f in the given order.
func SearchItems(ctx context.Context, db *sql.DB, f model.ItemFilter, order model.ItemSort, offset, limit int) ([]model.Item, error) {
	dir := "ASC"
	if order.Desc {
		dir = "DESC"
	}

	query, args, err := psql.Select(itemColumns...).
		From("items i").
		LeftJoin("users u ON u.id = i.seller_id").
		Where(itemPredicate(f)).
		OrderBy(sortColumn(order.Field)+" "+dir, "i.id "+dir).
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building search query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListItemsBySeller returns every item listed by sellerID, sold or not.
func ListItemsBySeller(ctx context.Context, db *sql.DB, sellerID string) ([]model.Item, error) {
	query, args, err := psql.Select(itemColumns...).
		From("items i").
		LeftJoin("users u ON u.id = i.seller_id").
		Where(sq.Eq{"i.seller_id": sellerID}).
		OrderBy("i.created_at", "i.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building seller query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing seller items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// itemPredicate turns a validated filter into a WHERE clause. Sold items are
// always excluded and every filter narrows the result.
func itemPredicate(f model.ItemFilter) sq.And {
	where := sq.And{sq.Eq{"i.sold": 0}}

	if f.Term != "" {
		pattern := "%" + escapeLike(f.Term) + "%"
		where = append(where, sq.Or{
			sq.Expr(`i.name LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`i.description LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`EXISTS (SELECT 1 FROM json_each(i.tags) WHERE json_each.value = ?)`, f.Term),
		})
	}
	if f.Group != "" {
		where = append(where, sq.Eq{"i.item_group": f.Group})
	}
	if f.Category != "" {
		where = append(where, sq.Eq{"i.category": f.Category})
	}
	if f.Subcategory != "" {
		where = append(where, sq.Eq{"i.subcategory": f.Subcategory})
	}
	if len(f.Colors) > 0 {
		where = append(where, sq.Eq{"i.color": f.Colors})
	}
	if f.Price != nil {
		where = append(where, pricePredicate(*f.Price))
	}
	return where
}

func pricePredicate(p model.PriceFilter) sq.Sqlizer {
	switch p.Op {
	case model.PriceGT:
		return sq.Gt{"i.price": p.Value}
	case model.PriceGTE:
		return sq.GtOrEq{"i.price": p.Value}
	case model.PriceLT:
		return sq.Lt{"i.price": p.Value}
	case model.PriceLTE:
		return sq.LtOrEq{"i.price": p.Value}
	default:
		return sq.Eq{"i.price": p.Value}
	}
}

func sortColumn(field string) string {
	switch field {
	case model.SortByName:
		return "i.name"
	case model.SortByPrice:
		return "i.price"
	default:
		return "i.updated_at"
	}
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var tags, images string
	var sellerID, sellerName, sellerEmail, sellerImage sql.NullString
	err := row.Scan(&item.ID, &item.Name, &item.Group, &item.Category, &item.Subcategory, &item.Price,
		&item.Description, &item.Color, &tags, &images, &item.Sold, &item.SellerID,
		&item.CreatedAt, &item.UpdatedAt,
		&sellerID, &sellerName, &sellerEmail, &sellerImage)
	if err != nil {
		return nil, err
	}

	if item.Tags, err = decodeList(tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if len(item.Tags) == 0 {
		item.Tags = nil
	}
	if item.Images, err = decodeList(images); err != nil {
		return nil, fmt.Errorf("decoding images: %w", err)
	}
	if item.Images == nil {
		item.Images = []string{}
	}

	if sellerID.Valid {
		item.Seller = &model.Seller{
			ID:       sellerID.String,
			Name:     sellerName.String,
			Email:    sellerEmail.String,
			ImageURL: sellerImage.String,
		}
	}
	return item, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeList(data string) ([]string, error) {
	if data == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// expectOneRow returns errNone when a guarded write touched no row.
func expectOneRow(result sql.Result, errNone error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return errNone
	}
	return nil
}
