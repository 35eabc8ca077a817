package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brewhouse/cafe-backend/pkg/config"
)

type memoryCommands struct {
	data map[string]string
}

func newMemoryCommands() *memoryCommands {
	return &memoryCommands{data: map[string]string{}}
}

func (m *memoryCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *memoryCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryCommands) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryCommands) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *memoryCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// Eval only understands deleteIfEquals.
func (m *memoryCommands) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if script != deleteIfEquals {
		return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
	}
	if m.data[keys[0]] != fmt.Sprint(args[0]) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(m.data, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newMemoryCommands()}

	ok, err := client.SetNX(ctx, "k", "first", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to win, ok=%v err=%v", ok, err)
	}
	if ok, _ = client.SetNX(ctx, "k", "second", time.Minute); ok {
		t.Fatal("expected second setnx to lose")
	}
	if got, _ := client.Get(ctx, "k"); got != "first" {
		t.Fatalf("expected original value, got %q", got)
	}
	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := client.Get(ctx, "k"); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestDeleteIfEqualsChecksOwner(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newMemoryCommands()}
	lock := client.CartLockKey("user-1")

	if _, err := client.SetNX(ctx, lock, "owner-a", time.Second); err != nil {
		t.Fatalf("setnx: %v", err)
	}
	deleted, err := client.DeleteIfEquals(ctx, lock, "owner-b")
	if err != nil || deleted {
		t.Fatalf("foreign owner must not delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = client.DeleteIfEquals(ctx, lock, "owner-a")
	if err != nil || !deleted {
		t.Fatalf("owner should delete: deleted=%v err=%v", deleted, err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	if err := client.Ping(ctx); err == nil {
		t.Fatal("expected ping on uninitialized client to fail")
	}
	if _, err := client.DeleteIfEquals(ctx, "k", "v"); err == nil {
		t.Fatal("expected compare-and-delete on uninitialized client to fail")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close without connection should be a no-op: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	cases := map[string]string{
		client.IdempotencyKey("POST /order/insertOrder", "abc"): "cafe:idempotency:POST /order/insertOrder:abc",
		client.CartLockKey("user-1"):                            "cafe:lock:cart:user-1",
		client.PaymentCallbackKey("vnpay", "ref", ""):           "cafe:callback:vnpay:ref",
		client.PaymentCallbackKey("vnpay", " ref ", "14000"):    "cafe:callback:vnpay:ref:14000",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %q got %q", want, got)
		}
	}
}

func TestOptionsPrecedence(t *testing.T) {
	opts, err := options(config.RedisConfig{URL: "redis://:secret@cache:6380/3", PoolSize: 7, DB: 1, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 3 || opts.Password != "secret" {
		t.Fatalf("url values should win: %+v", opts)
	}
	if opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("config should fill unset pool values: %+v", opts)
	}

	opts, err = options(config.RedisConfig{Address: "localhost:6379", DB: 2})
	if err != nil || opts.Addr != "localhost:6379" || opts.DB != 2 {
		t.Fatalf("address config not applied: %+v %v", opts, err)
	}

	if _, err := options(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
}
