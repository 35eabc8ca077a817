package vouchers

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/internal/repo"
	"github.com/brewhouse/cafe-backend/pkg/db/models"
)

// ErrNotConsumed is returned by Consume when the guarded increment matched no row:
// the code is unknown or its usage cap is already reached.
var ErrNotConsumed = errors.New("voucher not consumed")

// Repository persists vouchers.
type Repository struct {
	conn repo.Conn
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{conn: repo.NewConn(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{conn: r.conn.WithTx(tx)}
}

// FindByCode returns gorm.ErrRecordNotFound when the code is unknown.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	return repo.First[models.Voucher](ctx, r.conn, "code = ?", code)
}

// Create inserts a voucher.
func (r *Repository) Create(ctx context.Context, voucher *models.Voucher) error {
	return r.conn.Bind(ctx).Create(voucher).Error
}

// Consume increments used_count by one only while used_count < quantity.
// The guard lives in the UPDATE so concurrent checkouts cannot oversell a code.
func (r *Repository) Consume(ctx context.Context, code string) error {
	res := r.conn.Bind(ctx).
		Model(&models.Voucher{}).
		Where("code = ? AND used_count < quantity", code).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotConsumed
	}
	return nil
}
