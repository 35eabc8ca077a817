package vouchers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Evaluate checks eligibility of v for subtotal at now and returns the discount.
// Checks short-circuit in order: existence, validity window, usage cap, minimum order.
func Evaluate(v *models.Voucher, subtotal int64, now time.Time) (int64, error) {
	if v == nil {
		return 0, pkgerrors.NotFound(pkgerrors.ReasonVoucherNotFound, "voucher not found")
	}
	if v.StartDate != nil && now.Before(*v.StartDate) {
		return 0, pkgerrors.Conflict(pkgerrors.ReasonVoucherNotYetValid, "voucher is not valid yet").
			WithDetails(map[string]any{"code": v.Code, "startDate": v.StartDate.UTC()})
	}
	if v.ExpiryDate != nil && now.After(*v.ExpiryDate) {
		return 0, pkgerrors.Conflict(pkgerrors.ReasonVoucherExpired, "voucher has expired").
			WithDetails(map[string]any{"code": v.Code, "expiryDate": v.ExpiryDate.UTC()})
	}
	if v.UsedCount >= v.Quantity {
		return 0, pkgerrors.Conflict(pkgerrors.ReasonVoucherExhausted, "voucher usage limit reached").
			WithDetails(map[string]any{"code": v.Code, "quantity": v.Quantity, "usedCount": v.UsedCount})
	}
	if subtotal < v.MinOrderValue {
		return 0, pkgerrors.Conflict(pkgerrors.ReasonMinOrderNotMet, "order total is below the voucher minimum").
			WithDetails(map[string]any{
				"code":          v.Code,
				"minOrderValue": v.MinOrderValue,
				"subtotal":      subtotal,
				"shortfall":     v.MinOrderValue - subtotal,
			})
	}
	return Discount(v, subtotal), nil
}

// Discount computes the amount v takes off subtotal without any eligibility checks.
// Percent discounts round half-up to whole units; the result never exceeds subtotal.
func Discount(v *models.Voucher, subtotal int64) int64 {
	if v == nil || subtotal <= 0 {
		return 0
	}

	var discount int64
	switch v.DiscountType {
	case enums.DiscountTypePercent:
		discount = decimal.NewFromInt(subtotal).Mul(v.DiscountValue).Div(hundred).Round(0).IntPart()
		if v.MaxDiscount > 0 && discount > v.MaxDiscount {
			discount = v.MaxDiscount
		}
	case enums.DiscountTypeFixed:
		discount = v.DiscountValue.Round(0).IntPart()
	default:
		return 0
	}

	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return discount
}
