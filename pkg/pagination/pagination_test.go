package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPageSizeClamps(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 7: 7, MaxLimit + 50: MaxLimit}
	for in, want := range cases {
		if got := (Params{Limit: in}).PageSize(); got != want {
			t.Fatalf("limit %d: expected %d got %d", in, want, got)
		}
	}
	if got := (Params{Limit: 5}).FetchSize(); got != 6 {
		t.Fatalf("expected fetch size 6 got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2026, 10, 1, 8, 30, 0, 123, time.UTC), ID: uuid.New()}
	parsed, err := (Params{Cursor: c.Encode()}).Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !parsed.CreatedAt.Equal(c.CreatedAt) || parsed.ID != c.ID {
		t.Fatalf("unexpected cursor %+v", parsed)
	}

	if empty, err := (Params{}).Decode(); err != nil || empty != nil {
		t.Fatalf("expected nil cursor for empty token")
	}
	if _, err := ParseCursor("%%%"); err != ErrInvalidCursor {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestTrimReturnsNextCursor(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	at := time.Now()
	position := func(id uuid.UUID) Cursor { return Cursor{CreatedAt: at, ID: id} }

	page, next := Trim(ids, Params{Limit: 2}, position)
	if len(page) != 2 || next == "" {
		t.Fatalf("expected trimmed page with cursor, got %d %q", len(page), next)
	}
	parsed, err := ParseCursor(next)
	if err != nil || parsed.ID != ids[1] {
		t.Fatalf("cursor should point at last row on page")
	}

	page, next = Trim(ids, Params{Limit: 3}, position)
	if len(page) != 3 || next != "" {
		t.Fatalf("expected final page without cursor")
	}
}
