package outbox

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/pkg/config"
	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	"github.com/brewhouse/cafe-backend/pkg/logger"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	pollJitter            = 250 * time.Millisecond
)

// Sender delivers one message to a broker topic and returns the broker's id.
type Sender interface {
	Send(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

// TxRunner is satisfied by *db.Client.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type RelayMetrics interface {
	ObservePublish(eventType string, took time.Duration, err error)
	IncDeadLetter(eventType, reason string)
}

type RelayParams struct {
	DB      TxRunner
	Store   *Store
	Catalog *Catalog
	Sender  Sender
	Metrics RelayMetrics
	Logger  *logger.Logger
	Config  config.OutboxConfig
}

// Relay drains outbox_events to the broker. Delivery is at-least-once: a
// crash between the broker ack and the commit republishes the batch, and
// consumers dedupe on the event_id attribute.
type Relay struct {
	db      TxRunner
	store   *Store
	catalog *Catalog
	sender  Sender
	metrics RelayMetrics
	logg    *logger.Logger

	batchSize      int
	maxAttempts    int
	poll           time.Duration
	maxBackoff     time.Duration
	publishTimeout time.Duration
}

// Batch summarizes one Drain.
type Batch struct {
	Claimed      int
	Published    int
	DeadLettered int
	// Failed aggregates retryable publish errors; those rows stay queued.
	Failed error
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.DB == nil:
		return nil, errors.New("outbox relay: db is required")
	case p.Store == nil:
		return nil, errors.New("outbox relay: store is required")
	case p.Catalog == nil:
		return nil, errors.New("outbox relay: catalog is required")
	case p.Sender == nil:
		return nil, errors.New("outbox relay: sender is required")
	}
	return &Relay{
		db:             p.DB,
		store:          p.Store,
		catalog:        p.Catalog,
		sender:         p.Sender,
		metrics:        p.Metrics,
		logg:           p.Logger,
		batchSize:      orDefault(p.Config.BatchSize, defaultBatchSize),
		maxAttempts:    orDefault(p.Config.MaxAttempts, defaultMaxAttempts),
		poll:           orDefault(p.Config.PollInterval, defaultPollInterval),
		maxBackoff:     orDefault(p.Config.MaxBackoff, defaultMaxBackoff),
		publishTimeout: orDefault(p.Config.PublishTimeout, defaultPublishTimeout),
	}, nil
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// Run drains until ctx is cancelled. A full clean batch is followed by the
// next one at once; database errors back off exponentially up to maxBackoff.
func (r *Relay) Run(ctx context.Context) error {
	backoff := r.backoff()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := r.Drain(ctx)
		wait := r.poll + rand.N(pollJitter)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox.batch_failed", err)
			wait, _ = backoff.Next()
		case batch.Failed != nil:
			backoff = r.backoff()
			r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
				"claimed":       batch.Claimed,
				"published":     batch.Published,
				"dead_lettered": batch.DeadLettered,
				"failures":      len(multierr.Errors(batch.Failed)),
				"error":         batch.Failed.Error(),
			}), "outbox.batch_partial")
		case batch.Claimed >= r.batchSize:
			backoff = r.backoff()
			continue
		default:
			backoff = r.backoff()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Relay) backoff() retry.Backoff {
	return retry.WithJitterPercent(10, retry.WithCappedDuration(r.maxBackoff, retry.NewExponential(r.poll)))
}

// Drain publishes one batch inside a transaction. Only bookkeeping errors
// roll it back; publish failures are recorded per row.
func (r *Relay) Drain(ctx context.Context) (Batch, error) {
	var batch Batch
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		batch = Batch{}
		rows, err := r.store.Claim(tx, r.batchSize)
		if err != nil {
			return err
		}
		batch.Claimed = len(rows)
		for _, row := range rows {
			if err := r.relay(ctx, tx, row, &batch); err != nil {
				return err
			}
		}
		return nil
	})
	return batch, err
}

func (r *Relay) relay(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, batch *Batch) error {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"event_id":      row.ID.String(),
		"event_type":    row.EventType,
		"order_id":      row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	resolved, err := r.catalog.Resolve(row)
	if err != nil {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err, batch)
	}

	started := time.Now()
	sendErr := r.send(ctx, row, resolved)
	if r.metrics != nil {
		r.metrics.ObservePublish(string(row.EventType), time.Since(started), sendErr)
	}

	switch {
	case sendErr == nil:
		if err := r.store.MarkPublished(tx, row.ID); err != nil {
			return err
		}
		batch.Published++
		r.logg.Debug(r.logg.WithField(ctx, "topic", resolved.Topic), "outbox.published")
		return nil
	case errors.Is(sendErr, ErrUndeliverable):
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, sendErr, batch)
	case row.AttemptCount+1 >= r.maxAttempts:
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, sendErr), batch)
	}

	batch.Failed = multierr.Append(batch.Failed, fmt.Errorf("%s: %w", row.ID, sendErr))
	return r.store.MarkRetry(tx, row.ID, sendErr)
}

func (r *Relay) send(ctx context.Context, row models.OutboxEvent, resolved *Resolved) error {
	ctx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	defer cancel()
	_, err := r.sender.Send(ctx, resolved.Topic, row.Payload, map[string]string{
		"event_id":       row.ID.String(),
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
	return err
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, batch *Batch) error {
	if err := r.store.DeadLetter(tx, row, reason, cause); err != nil {
		return err
	}
	batch.DeadLettered++
	if r.metrics != nil {
		r.metrics.IncDeadLetter(string(row.EventType), reason.String())
	}
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox.dead_lettered")
	return nil
}
