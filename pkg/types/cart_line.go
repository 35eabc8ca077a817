package types

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/pkg/enums"
)

// ToppingSnapshot records a topping as it was priced when the line was written.
type ToppingSnapshot struct {
	ToppingID uuid.UUID `json:"toppingId"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
}

// ProductSelection is the PRODUCT payload of a line: which product and how it is prepared.
type ProductSelection struct {
	ProductID  uuid.UUID         `json:"productId"`
	Size       enums.Size        `json:"size"`
	SugarLevel enums.SugarLevel  `json:"sugarLevel"`
	Toppings   []ToppingSnapshot `json:"toppings"`
}

// ToppingKey returns the sorted topping ids so selections compare as sets.
func (p ProductSelection) ToppingKey() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Toppings))
	for _, t := range p.Toppings {
		ids = append(ids, t.ToppingID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// SameConfiguration reports whether two selections would be merged into one line.
func (p ProductSelection) SameConfiguration(other ProductSelection) bool {
	if p.ProductID != other.ProductID || p.Size != other.Size || p.SugarLevel != other.SugarLevel {
		return false
	}
	a, b := p.ToppingKey(), other.ToppingKey()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ComboSelection is the COMBO payload of a line.
type ComboSelection struct {
	ComboID uuid.UUID `json:"comboId"`
}

// CartLine is one addressable cart entry. Exactly one of Product or Combo is set,
// matching Type.
type CartLine struct {
	ID               uuid.UUID         `json:"id"`
	Type             enums.ItemType    `json:"itemType"`
	Product          *ProductSelection `json:"product,omitempty"`
	Combo            *ComboSelection   `json:"combo,omitempty"`
	Name             string            `json:"name"`
	ImageURL         string            `json:"imageUrl,omitempty"`
	Quantity         int               `json:"quantity"`
	UnitPrice        int64             `json:"unitPrice"`
	UnitToppingPrice int64             `json:"unitToppingPrice"`
	LineSubtotal     int64             `json:"lineSubtotal"`
}

// NewProductLine builds a PRODUCT line with a fresh id.
func NewProductLine(sel ProductSelection, name, imageURL string, unitPrice int64, qty int) CartLine {
	return CartLine{
		ID:        uuid.New(),
		Type:      enums.ItemTypeProduct,
		Product:   &sel,
		Name:      name,
		ImageURL:  imageURL,
		Quantity:  qty,
		UnitPrice: unitPrice,
	}
}

// NewComboLine builds a COMBO line with a fresh id.
func NewComboLine(comboID uuid.UUID, name, imageURL string, unitPrice int64, qty int) CartLine {
	return CartLine{
		ID:        uuid.New(),
		Type:      enums.ItemTypeCombo,
		Combo:     &ComboSelection{ComboID: comboID},
		Name:      name,
		ImageURL:  imageURL,
		Quantity:  qty,
		UnitPrice: unitPrice,
	}
}

// RefID returns the catalog id the line points at.
func (l CartLine) RefID() uuid.UUID {
	switch l.Type {
	case enums.ItemTypeProduct:
		if l.Product != nil {
			return l.Product.ProductID
		}
	case enums.ItemTypeCombo:
		if l.Combo != nil {
			return l.Combo.ComboID
		}
	}
	return uuid.Nil
}

// Validate checks that the payload matches the discriminant.
func (l CartLine) Validate() error {
	switch l.Type {
	case enums.ItemTypeProduct:
		if l.Product == nil || l.Combo != nil {
			return fmt.Errorf("cart line %s: PRODUCT line must carry only a product selection", l.ID)
		}
	case enums.ItemTypeCombo:
		if l.Combo == nil || l.Product != nil {
			return fmt.Errorf("cart line %s: COMBO line must carry only a combo selection", l.ID)
		}
	default:
		return fmt.Errorf("cart line %s: unknown item type %q", l.ID, l.Type)
	}
	return nil
}

// CartLines is the persisted list of cart lines, in insertion order.
type CartLines []CartLine

// Find returns the index of the line with id, or -1.
func (c CartLines) Find(id uuid.UUID) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Remove returns the lines without the line at index i.
func (c CartLines) Remove(i int) CartLines {
	if i < 0 || i >= len(c) {
		return c
	}
	out := make(CartLines, 0, len(c)-1)
	out = append(out, c[:i]...)
	return append(out, c[i+1:]...)
}
