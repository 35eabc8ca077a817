// Package pricing holds the side-effect free arithmetic behind cart and order totals.
// All amounts are whole currency units (VND) held in int64.
package pricing

import (
	"fmt"

	"github.com/brewhouse/cafe-backend/pkg/enums"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
	"github.com/brewhouse/cafe-backend/pkg/types"
)

// ValidateQuantity rejects quantities below one.
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return pkgerrors.Validation(pkgerrors.ReasonInvalidQuantity, "quantity must be at least 1").
			WithDetails(map[string]any{"quantity": quantity})
	}
	return nil
}

// ProductLineSubtotal returns (unitPrice + sum(toppingPrices)) * quantity.
func ProductLineSubtotal(unitPrice int64, toppingPrices []int64, quantity int) (int64, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return 0, err
	}
	var toppings int64
	for _, p := range toppingPrices {
		toppings += p
	}
	return (unitPrice + toppings) * int64(quantity), nil
}

// ComboLineSubtotal returns comboPrice * quantity. Combo prices already include any customization.
func ComboLineSubtotal(comboPrice int64, quantity int) (int64, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return 0, err
	}
	return comboPrice * int64(quantity), nil
}

// ToppingUnitPrice sums the captured topping prices for one unit.
func ToppingUnitPrice(toppings []types.ToppingSnapshot) int64 {
	var total int64
	for _, t := range toppings {
		total += t.Price
	}
	return total
}

func toppingPrices(toppings []types.ToppingSnapshot) []int64 {
	out := make([]int64, 0, len(toppings))
	for _, t := range toppings {
		out = append(out, t.Price)
	}
	return out
}

// linePrice derives the per-unit topping price and the subtotal shared by cart
// and order lines. Combo lines never carry toppings.
func linePrice(itemType enums.ItemType, unitPrice int64, toppings []types.ToppingSnapshot, quantity int) (unitTopping, subtotal int64, err error) {
	switch itemType {
	case enums.ItemTypeProduct:
		subtotal, err = ProductLineSubtotal(unitPrice, toppingPrices(toppings), quantity)
		if err != nil {
			return 0, 0, err
		}
		return ToppingUnitPrice(toppings), subtotal, nil
	case enums.ItemTypeCombo:
		subtotal, err = ComboLineSubtotal(unitPrice, quantity)
		return 0, subtotal, err
	default:
		return 0, 0, fmt.Errorf("unhandled item type %q", itemType)
	}
}

func productToppings(p *types.ProductSelection) []types.ToppingSnapshot {
	if p == nil {
		return nil
	}
	return p.Toppings
}

// RepriceCartLine refreshes the derived price fields of a cart line from its captured prices.
func RepriceCartLine(line *types.CartLine) error {
	if err := line.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cart line is malformed")
	}
	unitTopping, subtotal, err := linePrice(line.Type, line.UnitPrice, productToppings(line.Product), line.Quantity)
	if err != nil {
		return err
	}
	line.UnitToppingPrice = unitTopping
	line.LineSubtotal = subtotal
	return nil
}

// RepriceOrderLine refreshes the derived price fields of an order line.
func RepriceOrderLine(line *types.OrderLine) error {
	if err := line.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order line is malformed")
	}
	unitTopping, subtotal, err := linePrice(line.Type, line.UnitPrice, productToppings(line.Product), line.Quantity)
	if err != nil {
		return err
	}
	line.UnitToppingPrice = unitTopping
	line.LineSubtotal = subtotal
	return nil
}

// CartTotal sums the line subtotals; an empty cart totals 0.
func CartTotal(lines types.CartLines) int64 {
	var total int64
	for _, l := range lines {
		total += l.LineSubtotal
	}
	return total
}

// OrderSubtotal sums the order line subtotals.
func OrderSubtotal(lines types.OrderLines) int64 {
	var total int64
	for _, l := range lines {
		total += l.LineSubtotal
	}
	return total
}

// FinalTotal returns max(0, subtotal - discount).
func FinalTotal(subtotal, discount int64) int64 {
	if discount >= subtotal {
		return 0
	}
	return subtotal - discount
}
