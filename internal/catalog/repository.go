// Package catalog reads the menu entities the cart and order flows price from.
package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/internal/repo"
	"github.com/brewhouse/cafe-backend/pkg/db/models"
)

// Reader is the read-only catalog surface used by cart and order services.
// Single-row lookups return gorm.ErrRecordNotFound when the id is unknown.
type Reader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	FindToppings(ctx context.Context, ids []uuid.UUID) ([]models.Topping, error)
	FindCombo(ctx context.Context, id uuid.UUID) (*models.Combo, error)
	FindTable(ctx context.Context, id uuid.UUID) (*models.Table, error)
}

// Repository implements Reader on top of GORM.
type Repository struct {
	conn repo.Conn
}

var _ Reader = (*Repository)(nil)

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{conn: repo.NewConn(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{conn: r.conn.WithTx(tx)}
}

// FindProduct loads one product regardless of its active flag; callers decide.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return repo.First[models.Product](ctx, r.conn, "id = ?", id)
}

// FindProducts keys products by id. Unknown ids are absent from the map.
func (r *Repository) FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return repo.Index(ctx, r.conn, ids, func(p models.Product) uuid.UUID { return p.ID })
}

// FindToppings returns the active toppings among ids in request order.
// Unknown, inactive and repeated ids are skipped.
func (r *Repository) FindToppings(ctx context.Context, ids []uuid.UUID) ([]models.Topping, error) {
	byID, err := repo.Index(ctx, r.conn, ids, func(t models.Topping) uuid.UUID { return t.ID }, activeOnly)
	if err != nil || len(byID) == 0 {
		return nil, err
	}
	out := make([]models.Topping, 0, len(byID))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
			delete(byID, id)
		}
	}
	return out, nil
}

func (r *Repository) FindCombo(ctx context.Context, id uuid.UUID) (*models.Combo, error) {
	return repo.First[models.Combo](ctx, r.conn, "id = ?", id)
}

func (r *Repository) FindTable(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	return repo.First[models.Table](ctx, r.conn, "id = ?", id)
}

func activeOnly(q *gorm.DB) *gorm.DB {
	return q.Where("is_active = ?", true)
}
