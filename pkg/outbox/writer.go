package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	"github.com/brewhouse/cafe-backend/pkg/logger"
)

var errNoTx = errors.New("outbox: transaction required")

// Emitter queues events inside the caller's transaction, so an event exists
// if and only if the order change that produced it committed.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, ev Event) error
}

type Writer struct {
	store *Store
	logg  *logger.Logger
	now   func() time.Time
}

func NewWriter(store *Store, logg *logger.Logger) *Writer {
	return &Writer{store: store, logg: logg, now: time.Now}
}

func (w *Writer) Emit(ctx context.Context, tx *gorm.DB, ev Event) error {
	if tx == nil {
		return errNoTx
	}
	if !ev.Type.IsValid() {
		return fmt.Errorf("outbox: unknown event type %q", ev.Type)
	}
	if ev.OrderID == uuid.Nil {
		return fmt.Errorf("outbox: %s without order id", ev.Type)
	}
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("outbox: encode %s: %w", ev.Type, err)
	}

	id := uuid.New()
	body, err := json.Marshal(Envelope{
		Version:    envelopeVersion,
		EventID:    id.String(),
		Type:       ev.Type,
		OccurredAt: w.now().UTC(),
		Actor:      ev.Actor,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("outbox: encode envelope: %w", err)
	}
	if err := w.store.Append(tx, models.OutboxEvent{
		ID:            id,
		EventType:     ev.Type,
		AggregateType: enums.AggregateOrder,
		AggregateID:   ev.OrderID,
		Payload:       body,
	}); err != nil {
		return err
	}

	w.logg.Info(w.logg.WithFields(ctx, map[string]any{
		"event_id":   id.String(),
		"event_type": ev.Type,
		"order_id":   ev.OrderID.String(),
	}), "outbox.queued")
	return nil
}
