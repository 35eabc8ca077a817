package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidCursor is returned for cursors this package did not produce.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params is a keyset page request. An empty Cursor starts from the newest row.
type Params struct {
	Limit  int
	Cursor string
}

// PageSize clamps Limit into [1, MaxLimit], using DefaultLimit for zero.
func (p Params) PageSize() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// FetchSize is PageSize plus one so callers can tell whether a next page exists.
func (p Params) FetchSize() int {
	return p.PageSize() + 1
}

// Decode returns the position encoded in Cursor, or nil when it is empty.
func (p Params) Decode() (*Cursor, error) {
	if strings.TrimSpace(p.Cursor) == "" {
		return nil, nil
	}
	return ParseCursor(p.Cursor)
}

// Cursor is the (created_at, id) position of the last row on a page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Encode renders the cursor as an opaque url-safe token.
func (c Cursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor reverses Cursor.Encode.
func ParseCursor(token string) (*Cursor, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return nil, ErrInvalidCursor
	}
	stamp, id, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{CreatedAt: createdAt, ID: parsedID}, nil
}

// Trim cuts rows fetched with FetchSize down to one page and returns the
// cursor for the next page, empty on the last one.
func Trim[T any](rows []T, p Params, position func(T) Cursor) ([]T, string) {
	size := p.PageSize()
	if len(rows) <= size {
		return rows, ""
	}
	rows = rows[:size]
	return rows, position(rows[size-1]).Encode()
}
