package types

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/pkg/enums"
)

// ComboProductSnapshot is informational history of what a combo contained at order time.
type ComboProductSnapshot struct {
	ProductID         uuid.UUID        `json:"productId"`
	Name              string           `json:"name"`
	QuantityInCombo   int              `json:"quantityInCombo"`
	DefaultSize       enums.Size       `json:"defaultSize"`
	DefaultSugarLevel enums.SugarLevel `json:"defaultSugarLevel"`
}

// OrderComboSelection is the COMBO payload of an order line.
type OrderComboSelection struct {
	ComboID  uuid.UUID              `json:"comboId"`
	Products []ComboProductSnapshot `json:"comboProductsSnapshot"`
}

// OrderLine is an immutable priced copy of a requested item.
type OrderLine struct {
	Type             enums.ItemType       `json:"itemType"`
	Product          *ProductSelection    `json:"product,omitempty"`
	Combo            *OrderComboSelection `json:"combo,omitempty"`
	Name             string               `json:"name"`
	ImageURL         string               `json:"imageUrl,omitempty"`
	Quantity         int                  `json:"quantity"`
	UnitPrice        int64                `json:"unitPrice"`
	UnitToppingPrice int64                `json:"unitToppingPrice"`
	LineSubtotal     int64                `json:"lineSubtotal"`
}

// RefID returns the catalog id the line was priced from.
func (l OrderLine) RefID() uuid.UUID {
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
func (l OrderLine) Validate() error {
	switch l.Type {
	case enums.ItemTypeProduct:
		if l.Product == nil || l.Combo != nil {
			return fmt.Errorf("order line: PRODUCT line must carry only a product selection")
		}
	case enums.ItemTypeCombo:
		if l.Combo == nil || l.Product != nil {
			return fmt.Errorf("order line: COMBO line must carry only a combo selection")
		}
	default:
		return fmt.Errorf("order line: unknown item type %q", l.Type)
	}
	return nil
}

// OrderLines is the persisted list of order lines.
type OrderLines []OrderLine

// PaymentInfo is filled in from a successful gateway callback, or at checkout
// when a discount leaves nothing to charge.
type PaymentInfo struct {
	Method        enums.PaymentMethod `json:"method"`
	TransactionID string              `json:"transactionId"`
	BankCode      string              `json:"bankCode,omitempty"`
	PayDate       string              `json:"payDate,omitempty"`
	// Waived marks an order settled without the gateway because nothing was owed.
	Waived        bool                `json:"waived,omitempty"`
}
