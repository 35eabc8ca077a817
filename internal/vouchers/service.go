// Package vouchers decides voucher eligibility and records voucher usage.
package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/pkg/db/models"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
)

// Quote is the outcome of a successful evaluation.
type Quote struct {
	Code     string
	Discount int64
}

// Service evaluates and redeems voucher codes.
type Service interface {
	// Preview evaluates code against subtotal without recording usage.
	Preview(ctx context.Context, code string, subtotal int64) (*Quote, error)
	// Redeem evaluates code inside tx and consumes one usage on success.
	Redeem(ctx context.Context, tx *gorm.DB, code string, subtotal int64) (*Quote, error)
}

type voucherStore interface {
	FindByCode(ctx context.Context, code string) (*models.Voucher, error)
	Consume(ctx context.Context, code string) error
}

type service struct {
	repo  *Repository
	clock func() time.Time
}

// NewService builds the voucher service. A nil clock defaults to time.Now.
func NewService(repo *Repository, clock func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &service{repo: repo, clock: clock}, nil
}

func (s *service) Preview(ctx context.Context, code string, subtotal int64) (*Quote, error) {
	return s.evaluate(ctx, s.repo, code, subtotal, false)
}

func (s *service) Redeem(ctx context.Context, tx *gorm.DB, code string, subtotal int64) (*Quote, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "voucher redemption requires a transaction")
	}
	return s.evaluate(ctx, s.repo.WithTx(tx), code, subtotal, true)
}

func (s *service) evaluate(ctx context.Context, store voucherStore, code string, subtotal int64, consume bool) (*Quote, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, pkgerrors.NotFound(pkgerrors.ReasonVoucherNotFound, "voucher code required")
	}

	voucher, err := store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound(pkgerrors.ReasonVoucherNotFound, "voucher not found").
				WithDetails(map[string]any{"code": code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load voucher")
	}

	discount, err := Evaluate(voucher, subtotal, s.clock())
	if err != nil {
		return nil, err
	}

	if consume {
		if err := store.Consume(ctx, code); err != nil {
			if errors.Is(err, ErrNotConsumed) {
				return nil, pkgerrors.Conflict(pkgerrors.ReasonVoucherExhausted, "voucher usage limit reached").
					WithDetails(map[string]any{"code": code})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume voucher")
		}
	}

	return &Quote{Code: voucher.Code, Discount: discount}, nil
}

// NormalizeCode trims surrounding whitespace from a client supplied code.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// IsIneligible reports whether err is a business rejection of the voucher
// rather than an infrastructure failure.
func IsIneligible(err error) bool {
	switch pkgerrors.ReasonOf(err) {
	case pkgerrors.ReasonVoucherNotFound,
		pkgerrors.ReasonVoucherNotYetValid,
		pkgerrors.ReasonVoucherExpired,
		pkgerrors.ReasonVoucherExhausted,
		pkgerrors.ReasonMinOrderNotMet:
		return true
	default:
		return false
	}
}
