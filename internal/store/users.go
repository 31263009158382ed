package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/erazemk/trznica/internal/model"
)

const userColumns = `id, name, email, password_hash, image_url, created_at, updated_at`

// CreateUser creates a new user. The password must already be hashed.
func CreateUser(ctx context.Context, db *sql.DB, name, email, passwordHash, imageURL string) (*model.User, error) {
	id := uuid.NewString()
	ts := now()
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, image_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, email, passwordHash, imageURL, ts, ts,
	)
	if isUniqueViolation(err, "users.email") {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email address.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns one window of users whose name contains term.
func ListUsers(ctx context.Context, db *sql.DB, term string, offset, limit int) ([]model.User, error) {
	b := psql.Select(userColumns).From("users")
	if term != "" {
		b = b.Where(sq.Expr(`name LIKE ? ESCAPE '\'`, "%"+escapeLike(term)+"%"))
	}
	query, args, err := b.OrderBy("name", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building user query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser writes the profile fields and password hash of u.
func UpdateUser(ctx context.Context, db *sql.DB, u *model.User) error {
	ts := now()
	result, err := db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ?, image_url = ?, updated_at = ?
		 WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, u.ImageURL, ts, u.ID,
	)
	if isUniqueViolation(err, "users.email") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("updating user: no user with id %s", u.ID)
	}
	u.UpdatedAt = ts
	return nil
}

// DeleteUserCascade removes a user together with their unsold items in one
// database transaction. Sold items and transactions are kept. It returns the
// image paths that belonged to the removed rows so the caller can release
// them once the delete has committed.
func DeleteUserCascade(ctx context.Context, db *sql.DB, userID string) ([]string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var released []string

	var avatar string
	err = tx.QueryRowContext(ctx, `SELECT image_url FROM users WHERE id = ?`, userID).Scan(&avatar)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("deleting user: no user with id %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading user: %w", err)
	}
	if avatar != "" {
		released = append(released, avatar)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT images FROM items WHERE seller_id = ? AND sold = 0`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing unsold items: %w", err)
	}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning item images: %w", err)
		}
		images, err := decodeList(data)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("decoding item images: %w", err)
		}
		released = append(released, images...)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("closing item rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE seller_id = ? AND sold = 0`, userID); err != nil {
		return nil, fmt.Errorf("deleting unsold items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID); err != nil {
		return nil, fmt.Errorf("deleting user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user delete: %w", err)
	}
	return released, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.ImageURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}
