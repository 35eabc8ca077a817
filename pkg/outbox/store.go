package outbox

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/enums"
)

// errorLimit bounds last_error and error_message; broker errors can carry whole responses.
const errorLimit = 1024

// Store is the outbox_events queue plus its dead-letter table. Every method
// runs on the transaction it is given.
type Store struct {
	now func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

func (s *Store) Append(tx *gorm.DB, row models.OutboxEvent) error {
	if tx == nil {
		return errNoTx
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("outbox: append %s: %w", row.EventType, err)
	}
	return nil
}

// Claim returns up to limit pending rows, oldest first. On Postgres they stay
// locked with SKIP LOCKED until tx ends, so several relays split the backlog.
func (s *Store) Claim(tx *gorm.DB, limit int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTx
	}
	q := tx.Where("published_at IS NULL").Order("created_at ASC, id ASC").Limit(limit)
	if tx.Dialector != nil && tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked})
	}
	var rows []models.OutboxEvent
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("outbox: claim: %w", err)
	}
	return rows, nil
}

func (s *Store) MarkPublished(tx *gorm.DB, id uuid.UUID) error {
	return s.update(tx, id, map[string]any{"published_at": s.now().UTC()})
}

// MarkRetry records a failed attempt; the row stays pending.
func (s *Store) MarkRetry(tx *gorm.DB, id uuid.UUID, cause error) error {
	return s.update(tx, id, map[string]any{
		"last_error":    clip(cause),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// DeadLetter copies row into outbox_dlq and takes it out of the pending set.
func (s *Store) DeadLetter(tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	if tx == nil {
		return errNoTx
	}
	if !reason.IsValid() {
		return fmt.Errorf("outbox: invalid dead-letter reason %q", reason)
	}
	now := s.now().UTC()
	msg := clip(cause)
	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount + 1,
		FailedAt:      now,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("outbox: dead-letter %s: %w", row.ID, err)
	}
	return s.update(tx, row.ID, map[string]any{
		"last_error":    msg,
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"published_at":  now,
	})
}

func (s *Store) update(tx *gorm.DB, id uuid.UUID, values map[string]any) error {
	if tx == nil {
		return errNoTx
	}
	if err := tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(values).Error; err != nil {
		return fmt.Errorf("outbox: update %s: %w", id, err)
	}
	return nil
}

func clip(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > errorLimit {
		return msg[:errorLimit]
	}
	return msg
}
