package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/pkg/config"
	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	"github.com/brewhouse/cafe-backend/pkg/migrate"
)

func newOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:outbox_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrate.ApplySQLite(context.Background(), conn))
	return conn
}

func pendingRows(t *testing.T, conn *gorm.DB) []models.OutboxEvent {
	t.Helper()
	rows, err := NewStore().Claim(conn, 100)
	require.NoError(t, err)
	return rows
}

func TestEmitWritesEnvelope(t *testing.T) {
	conn := newOutboxTestDB(t)
	w := NewWriter(NewStore(), nil)
	fixed := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	orderID, userID := uuid.New(), uuid.New()
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return w.Emit(context.Background(), tx, Event{
			Type:    enums.EventOrderCreated,
			OrderID: orderID,
			Actor:   &Actor{UserID: userID, Role: enums.UserRoleCustomer},
			Data:    OrderCreated{OrderID: orderID, ItemCount: 2, Total: 90000, PaymentMethod: enums.PaymentMethodCash},
		})
	}))

	rows := pendingRows(t, conn)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.AggregateOrder, rows[0].AggregateType)
	assert.Equal(t, orderID, rows[0].AggregateID)

	var env Envelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &env))
	assert.Equal(t, envelopeVersion, env.Version)
	assert.Equal(t, rows[0].ID.String(), env.EventID)
	assert.Equal(t, enums.EventOrderCreated, env.Type)
	assert.True(t, env.OccurredAt.Equal(fixed))
	require.NotNil(t, env.Actor)
	assert.Equal(t, userID, env.Actor.UserID)
	assert.JSONEq(t, `{"order_id":"`+orderID.String()+`","item_count":2,"subtotal":0,"discount_amount":0,"total":90000,"payment_method":"cash"}`, string(env.Data))
}

func TestEmitRejectsBadInput(t *testing.T) {
	conn := newOutboxTestDB(t)
	w := NewWriter(NewStore(), nil)
	ctx := context.Background()

	assert.ErrorIs(t, w.Emit(ctx, nil, Event{Type: enums.EventOrderPaid, OrderID: uuid.New()}), errNoTx)
	assert.Error(t, w.Emit(ctx, conn, Event{Type: "bogus", OrderID: uuid.New()}))
	assert.Error(t, w.Emit(ctx, conn, Event{Type: enums.EventOrderPaid}))
	assert.Empty(t, pendingRows(t, conn))
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	conn := newOutboxTestDB(t)
	w := NewWriter(NewStore(), nil)

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := w.Emit(context.Background(), tx, Event{Type: enums.EventOrderPaid, OrderID: uuid.New(), Data: OrderPaid{}}); err != nil {
			return err
		}
		return errors.New("order update failed")
	})
	require.Error(t, err)
	assert.Empty(t, pendingRows(t, conn))
}

func TestStoreLifecycle(t *testing.T) {
	conn := newOutboxTestDB(t)
	store := NewStore()

	first := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	second := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, store.Append(conn, first))
	require.NoError(t, store.Append(conn, second))
	require.Len(t, pendingRows(t, conn), 2)

	require.NoError(t, store.MarkPublished(conn, first.ID))
	require.NoError(t, store.MarkRetry(conn, second.ID, errors.New("unavailable")))

	pending := pendingRows(t, conn)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "unavailable", *pending[0].LastError)

	require.NoError(t, store.DeadLetter(conn, pending[0], enums.OutboxDLQReasonMaxAttempts, errors.New(strings.Repeat("x", errorLimit+50))))
	assert.Empty(t, pendingRows(t, conn))

	var dlq models.OutboxDLQ
	require.NoError(t, conn.Where("event_id = ?", second.ID).First(&dlq).Error)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq.ErrorReason)
	assert.Equal(t, 2, dlq.AttemptCount)
	require.NotNil(t, dlq.ErrorMessage)
	assert.Len(t, *dlq.ErrorMessage, errorLimit)

	assert.Error(t, store.DeadLetter(conn, first, "whatever", errors.New("x")))
}

func TestCatalogResolve(t *testing.T) {
	catalog, err := NewCatalog(config.PubSubConfig{OrdersTopic: "orders-topic"})
	require.NoError(t, err)
	assert.Equal(t, []string{"orders-topic"}, catalog.Topics())

	orderID := uuid.New()
	resolved, err := catalog.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelopeFor(t, OrderStatusChanged{OrderID: orderID, FromStatus: enums.OrderStatusPaid, ToStatus: enums.OrderStatusProcessing}),
	})
	require.NoError(t, err)
	assert.Equal(t, "orders-topic", resolved.Topic)
	payload, ok := resolved.Payload.(*OrderStatusChanged)
	require.True(t, ok, "unexpected payload %T", resolved.Payload)
	assert.Equal(t, enums.OrderStatusProcessing, payload.ToStatus)

	_, err = NewCatalog(config.PubSubConfig{})
	assert.Error(t, err)
}

func TestCatalogRejectsBadRows(t *testing.T) {
	catalog, err := NewCatalog(config.PubSubConfig{OrdersTopic: "orders-topic"})
	require.NoError(t, err)

	cases := map[string]models.OutboxEvent{
		"unknown event":      {EventType: "table_cleaned", AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: envelopeFor(t, struct{}{})},
		"aggregate mismatch": {EventType: enums.EventOrderPaid, AggregateType: "cart", AggregateID: uuid.New(), Payload: envelopeFor(t, struct{}{})},
		"no aggregate id":    {EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder, Payload: envelopeFor(t, struct{}{})},
		"null payload":       {EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: envelopeFor(t, nil)},
		"broken envelope":    {EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{`)},
		"wrong payload type": {EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: envelopeFor(t, []int{1})},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Resolve(row)
			assert.ErrorIs(t, err, ErrUndeliverable)
		})
	}
}

func envelopeFor(t *testing.T, data any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(Envelope{Version: envelopeVersion, EventID: uuid.NewString(), OccurredAt: time.Now().UTC(), Data: raw})
	require.NoError(t, err)
	return body
}
