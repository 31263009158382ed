// Package store holds the SQL for users, items and transactions. Functions
// take a context and a *sql.DB, return wrapped errors, and return nil, nil
// when a looked-up record does not exist.
package store

import (
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var (
	// ErrItemSold is returned when a write guarded by sold = 0 matched no
	// row: the item was sold (or removed) after it was read.
	ErrItemSold = errors.New("item already sold")

	// ErrItemNotFound is returned by writes that address a missing item.
	ErrItemNotFound = errors.New("item not found")

	// ErrEmailTaken is returned when a user write hits the unique email index.
	ErrEmailTaken = errors.New("email already in use")
)

// psql builds SQLite-flavoured statements.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// now returns the timestamp written to created_at / updated_at columns.
func now() time.Time {
	return time.Now().UTC()
}

// escapeLike escapes LIKE wildcards so a search term matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
