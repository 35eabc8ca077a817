package enums

// TableStatus tracks whether a dine-in table is free.
type TableStatus string

const (
	TableStatusAvailable TableStatus = "available"
	TableStatusOccupied  TableStatus = "occupied"
	TableStatusReserved  TableStatus = "reserved"
)

var tableStatuses = set[TableStatus]{TableStatusAvailable, TableStatusOccupied, TableStatusReserved}

func (t TableStatus) String() string { return string(t) }
func (t TableStatus) IsValid() bool  { return tableStatuses.has(t) }

func ParseTableStatus(value string) (TableStatus, error) {
	return tableStatuses.parse("table status", value)
}
