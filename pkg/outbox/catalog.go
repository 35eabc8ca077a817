package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/pkg/config"
	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/enums"
)

// ErrUndeliverable marks rows that no amount of retrying will publish.
var ErrUndeliverable = errors.New("undeliverable event")

func undeliverable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUndeliverable, fmt.Sprintf(format, args...))
}

// Resolved is a row that passed validation, with the topic it belongs on.
type Resolved struct {
	Topic    string
	Envelope Envelope
	Payload  any
}

type route struct {
	topic  string
	decode func(json.RawMessage) (any, error)
}

// Catalog knows the topic and payload schema of every event type.
type Catalog struct {
	routes map[enums.OutboxEventType]route
}

func NewCatalog(cfg config.PubSubConfig) (*Catalog, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("outbox: orders topic is required")
	}
	orders := cfg.OrdersTopic
	return &Catalog{routes: map[enums.OutboxEventType]route{
		enums.EventOrderCreated:       {orders, decodeAs[OrderCreated]},
		enums.EventOrderPaid:          {orders, decodeAs[OrderPaid]},
		enums.EventOrderPaymentFailed: {orders, decodeAs[OrderPaymentFailed]},
		enums.EventOrderStatusChanged: {orders, decodeAs[OrderStatusChanged]},
	}}, nil
}

// Topics lists the distinct destination topics, sorted.
func (c *Catalog) Topics() []string {
	seen := make(map[string]bool, len(c.routes))
	topics := make([]string, 0, 1)
	for _, r := range c.routes {
		if !seen[r.topic] {
			seen[r.topic] = true
			topics = append(topics, r.topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// Resolve validates row and decodes its payload. Every error wraps ErrUndeliverable.
func (c *Catalog) Resolve(row models.OutboxEvent) (*Resolved, error) {
	r, ok := c.routes[row.EventType]
	switch {
	case !ok:
		return nil, undeliverable("unsupported event type %q", row.EventType)
	case row.AggregateType != enums.AggregateOrder:
		return nil, undeliverable("%s on aggregate %q", row.EventType, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, undeliverable("%s without aggregate id", row.EventType)
	}

	var env Envelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, undeliverable("decode envelope: %v", err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, undeliverable("%s has no payload", row.EventType)
	}
	payload, err := r.decode(env.Data)
	if err != nil {
		return nil, undeliverable("decode %s payload: %v", row.EventType, err)
	}
	return &Resolved{Topic: r.topic, Envelope: env, Payload: payload}, nil
}

func decodeAs[T any](raw json.RawMessage) (any, error) {
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}
