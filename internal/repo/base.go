// Package repo holds the lookups every GORM repository repeats.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conn is a repository's connection. The zero value is unusable.
type Conn struct {
	db *gorm.DB
}

func NewConn(db *gorm.DB) Conn {
	return Conn{db: db}
}

// Bind scopes the connection to ctx. A nil ctx returns the raw handle.
func (c Conn) Bind(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return c.db
	}
	return c.db.WithContext(ctx)
}

// WithTx swaps in tx; nil keeps c.
func (c Conn) WithTx(tx *gorm.DB) Conn {
	if tx == nil {
		return c
	}
	return Conn{db: tx}
}

// First loads one T matching query. gorm.ErrRecordNotFound passes through.
func First[T any](ctx context.Context, c Conn, query string, args ...any) (*T, error) {
	var row T
	if err := c.Bind(ctx).Where(query, args...).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Index loads the rows whose id is in ids and keys them by id.
// Unknown ids are simply absent.
func Index[T any](ctx context.Context, c Conn, ids []uuid.UUID, key func(T) uuid.UUID, scopes ...func(*gorm.DB) *gorm.DB) (map[uuid.UUID]T, error) {
	out := make(map[uuid.UUID]T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []T
	if err := c.Bind(ctx).Scopes(scopes...).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[key(row)] = row
	}
	return out, nil
}
