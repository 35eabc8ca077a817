package enums

// Size is the cup size selected for a drink.
type Size string

const (
	SizeM Size = "M"
	SizeL Size = "L"
)

var sizes = set[Size]{SizeM, SizeL}

func (s Size) String() string { return string(s) }
func (s Size) IsValid() bool  { return sizes.has(s) }

func ParseSize(value string) (Size, error) {
	return sizes.parse("size", value)
}
