package enums

// DiscountType selects how a voucher value is applied.
type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

var discountTypes = set[DiscountType]{DiscountTypePercent, DiscountTypeFixed}

func (d DiscountType) String() string { return string(d) }
func (d DiscountType) IsValid() bool  { return discountTypes.has(d) }

func ParseDiscountType(value string) (DiscountType, error) {
	return discountTypes.parse("discount type", value)
}
