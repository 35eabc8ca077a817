package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// UUIDArray stores a uuid[] column. The same literal form ({a,b}) is kept in
// TEXT columns on sqlite so both drivers round-trip identically.
type UUIDArray []uuid.UUID

// Contains reports whether id is in the array.
func (a UUIDArray) Contains(id uuid.UUID) bool {
	return slices.Contains(a, id)
}

func (a *UUIDArray) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = UUIDArray{}
		return nil
	case string:
		return a.parse(v)
	case []byte:
		return a.parse(string(v))
	default:
		return fmt.Errorf("uuid array: cannot scan %T", src)
	}
}

func (a UUIDArray) Value() (driver.Value, error) {
	return a.String(), nil
}

// String renders the array as a postgres array literal.
func (a UUIDArray) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(id.String())
	}
	b.WriteByte('}')
	return b.String()
}

func (a *UUIDArray) parse(raw string) error {
	body := strings.TrimSpace(raw)
	body = strings.TrimSuffix(strings.TrimPrefix(body, "{"), "}")

	out := UUIDArray{}
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(strings.Trim(strings.TrimSpace(part), `"`))
		if part == "" || strings.EqualFold(part, "NULL") {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return fmt.Errorf("uuid array: element %q: %w", part, err)
		}
		if !out.Contains(id) {
			out = append(out, id)
		}
	}
	*a = out
	return nil
}
