package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/internal/vouchers"
	"github.com/brewhouse/cafe-backend/pkg/db/models"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
	"github.com/brewhouse/cafe-backend/pkg/types"
)

type stubCartRepo struct {
	cart       *models.Cart
	staleSaves int
	saves      int
}

func (s *stubCartRepo) WithTx(*gorm.DB) CartRepository { return s }

func (s *stubCartRepo) FindByUser(context.Context, uuid.UUID) (*models.Cart, error) {
	if s.cart == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.cart
	copied.Items = append(types.CartLines{}, s.cart.Items...)
	return &copied, nil
}

func (s *stubCartRepo) Create(_ context.Context, cart *models.Cart) error {
	s.cart = cart
	return nil
}

func (s *stubCartRepo) SaveVersioned(_ context.Context, cart *models.Cart) error {
	s.saves++
	if s.saves <= s.staleSaves {
		return ErrStaleVersion
	}
	cart.Version++
	s.cart = cart
	return nil
}

type stubVouchers struct{}

func (stubVouchers) Preview(context.Context, string, int64) (*vouchers.Quote, error) {
	return nil, errors.New("unexpected voucher lookup")
}

type countingMetrics struct {
	conflicts int
	failures  int
}

func (m *countingMetrics) ObserveCartOp(_ string, err error) {
	if err != nil {
		m.failures++
	}
}

func (m *countingMetrics) IncCartConflict() { m.conflicts++ }

type stubLocker struct {
	acquired bool
	released bool
}

func (l *stubLocker) ForUser(uuid.UUID) (Lock, error) { return l, nil }

func (l *stubLocker) Acquire(context.Context) (bool, error) {
	l.acquired = true
	return true, nil
}

func (l *stubLocker) Release(context.Context) error {
	l.released = true
	return nil
}

func newStubService(t *testing.T, repo *stubCartRepo, metrics *countingMetrics, locker Locker) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:        repo,
		Catalog:     nilCatalog{},
		Vouchers:    stubVouchers{},
		Locker:      locker,
		Metrics:     metrics,
		MaxAttempts: 2,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestMutationRetriesOnStaleVersion(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{cart: &models.Cart{ID: uuid.New(), UserID: uuid.New(), Version: 4}, staleSaves: 1}
	metrics := &countingMetrics{}
	locker := &stubLocker{}
	svc := newStubService(t, repo, metrics, locker)

	view, err := svc.Clear(context.Background(), repo.cart.UserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Version != 5 {
		t.Fatalf("expected version 5, got %d", view.Version)
	}
	if metrics.conflicts != 1 {
		t.Fatalf("expected one conflict, got %d", metrics.conflicts)
	}
	if !locker.acquired || !locker.released {
		t.Fatalf("expected lock to be acquired and released")
	}
}

func TestMutationGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{cart: &models.Cart{ID: uuid.New(), UserID: uuid.New()}, staleSaves: 10}
	metrics := &countingMetrics{}
	svc := newStubService(t, repo, metrics, nil)

	_, err := svc.Clear(context.Background(), repo.cart.UserID)
	if pkgerrors.ReasonOf(err) != pkgerrors.ReasonCartVersionConflict {
		t.Fatalf("expected CartVersionConflict, got %v", err)
	}
	if metrics.conflicts != 2 || repo.saves != 2 {
		t.Fatalf("expected 2 attempts, got conflicts=%d saves=%d", metrics.conflicts, repo.saves)
	}
	if metrics.failures != 1 {
		t.Fatalf("expected failure to be observed once, got %d", metrics.failures)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	t.Parallel()
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatalf("expected error for missing repository")
	}
	if _, err := NewService(ServiceParams{Repo: &stubCartRepo{}}); err == nil {
		t.Fatalf("expected error for missing catalog")
	}
	if _, err := NewService(ServiceParams{Repo: &stubCartRepo{}, Catalog: nilCatalog{}}); err == nil {
		t.Fatalf("expected error for missing vouchers")
	}
}

type nilCatalog struct{}

func (nilCatalog) FindProduct(context.Context, uuid.UUID) (*models.Product, error) {
	return nil, gorm.ErrRecordNotFound
}

func (nilCatalog) FindProducts(context.Context, []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return map[uuid.UUID]models.Product{}, nil
}

func (nilCatalog) FindToppings(context.Context, []uuid.UUID) ([]models.Topping, error) {
	return nil, nil
}

func (nilCatalog) FindCombo(context.Context, uuid.UUID) (*models.Combo, error) {
	return nil, gorm.ErrRecordNotFound
}

func (nilCatalog) FindTable(context.Context, uuid.UUID) (*models.Table, error) {
	return nil, gorm.ErrRecordNotFound
}

type fakeRedis struct {
	values map[string]string
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) DeleteIfEquals(_ context.Context, key, value string) (bool, error) {
	if f.values[key] != value {
		return false, nil
	}
	delete(f.values, key)
	return true, nil
}

func (f *fakeRedis) CartLockKey(userID string) string { return "cafe:lock:cart:" + userID }

func TestRedisLockerExclusive(t *testing.T) {
	t.Parallel()

	store := &fakeRedis{values: map[string]string{}}
	locker, err := NewRedisLocker(store, time.Second)
	if err != nil {
		t.Fatalf("new locker: %v", err)
	}
	user := uuid.New()

	first, _ := locker.ForUser(user)
	second, _ := locker.ForUser(user)

	if ok, err := first.Acquire(context.Background()); err != nil || !ok {
		t.Fatalf("expected first acquire to succeed: ok=%v err=%v", ok, err)
	}
	if ok, _ := second.Acquire(context.Background()); ok {
		t.Fatalf("expected second acquire to fail while held")
	}
	if err := second.Release(context.Background()); err != nil {
		t.Fatalf("release of unowned lock: %v", err)
	}
	if _, held := store.values["cafe:lock:cart:"+user.String()]; !held {
		t.Fatalf("non-owner release must not delete the key")
	}
	if err := first.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(context.Background()); !ok {
		t.Fatalf("expected acquire after release")
	}

	if _, err := NewRedisLocker(nil, time.Second); err == nil {
		t.Fatalf("expected error without client")
	}
}
