package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/brewhouse/cafe-backend/pkg/config"
	"github.com/brewhouse/cafe-backend/pkg/outbox"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		project, topic, want string
	}{
		{"cafe-prod", "orders", "projects/cafe-prod/topics/orders"},
		{"cafe-prod", " orders ", "projects/cafe-prod/topics/orders"},
		{"cafe-prod", "projects/other/topics/orders", "projects/other/topics/orders"},
		{"cafe-prod", "  ", ""},
		{"", "orders", ""},
	}
	for _, tc := range cases {
		if got := resourceName(tc.project, tc.topic); got != tc.want {
			t.Fatalf("resourceName(%q, %q) = %q, want %q", tc.project, tc.topic, got, tc.want)
		}
	}
}

func TestDialValidatesInput(t *testing.T) {
	if _, err := Dial(context.Background(), config.GCPConfig{}, []string{"orders"}, nil); err == nil {
		t.Fatal("expected missing project error")
	}
	if _, err := Dial(context.Background(), config.GCPConfig{ProjectID: "cafe"}, nil, nil); err == nil {
		t.Fatal("expected missing topics error")
	}
}

func TestClosedOrNilClient(t *testing.T) {
	var c *Client
	if _, err := c.Send(context.Background(), "orders", nil, nil); !errors.Is(err, errClosed) {
		t.Fatalf("expected errClosed, got %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, errClosed) {
		t.Fatalf("expected errClosed from ping, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil close should be a no-op: %v", err)
	}

	blank := &Client{project: "cafe"}
	if _, err := blank.publisher(" "); !errors.Is(err, outbox.ErrUndeliverable) {
		t.Fatalf("blank topic should be undeliverable, got %v", err)
	}
}

var _ outbox.Sender = (*Client)(nil)
