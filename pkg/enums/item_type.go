package enums

// ItemType discriminates cart and order lines.
type ItemType string

const (
	ItemTypeProduct ItemType = "PRODUCT"
	ItemTypeCombo   ItemType = "COMBO"
)

var itemTypes = set[ItemType]{ItemTypeProduct, ItemTypeCombo}

func (i ItemType) String() string { return string(i) }
func (i ItemType) IsValid() bool  { return itemTypes.has(i) }

func ParseItemType(value string) (ItemType, error) {
	return itemTypes.parse("item type", value)
}
