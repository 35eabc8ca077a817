package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/brewhouse/cafe-backend/api/responses"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
	"github.com/brewhouse/cafe-backend/pkg/logger"
	pkgredis "github.com/brewhouse/cafe-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	cartReplayTTL     = 24 * time.Hour
	checkoutReplayTTL = 7 * 24 * time.Hour
	// a reservation outlives any sane handler; if the process dies mid-request the key frees itself
	inFlightTTL = time.Minute
)

type idempotencyRule struct {
	method   string
	match    func(pattern string) bool
	ttl      time.Duration
	required bool
}

var idempotencyRules = []idempotencyRule{
	{http.MethodPost, exact("/cart/insertCart"), cartReplayTTL, false},
	{http.MethodPost, exact("/cart/addCombo"), cartReplayTTL, false},
	{http.MethodPut, exact("/cart/updateCartQuantity"), cartReplayTTL, false},
	{http.MethodDelete, exact("/cart/removeProduct"), cartReplayTTL, false},
	{http.MethodPost, exact("/cart/clearCart"), cartReplayTTL, false},
	{http.MethodPost, exact("/cart/apply-voucher"), cartReplayTTL, false},
	{http.MethodPut, exact("/order/updateOrder"), cartReplayTTL, false},
	{http.MethodPost, wrapped("/order/", "/payment-url"), cartReplayTTL, false},
	{http.MethodPost, exact("/order/insertOrder"), checkoutReplayTTL, true},
}

// storedResponse is what a key maps to. A record without Status is a
// reservation held by a request that has not finished yet.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (s storedResponse) done() bool { return s.Status != 0 }

// Idempotency replays the first response for a repeated Idempotency-Key on the
// mutating routes above. The key is reserved before the handler runs so a
// concurrent retry is rejected instead of executing twice. 5xx results release
// the key for another attempt.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := routeRule(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				if rule.required {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintOf(r, body)
			key := store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+r.URL.Path, clientKey)

			reservation, _ := json.Marshal(storedResponse{Fingerprint: fingerprint})
			reserved, err := store.SetNX(ctx, key, string(reservation), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replay(w, r, store, key, fingerprint, logg)
				return
			}

			capture := &responseCapture{statusRecorder: statusRecorder{ResponseWriter: w}}
			next.ServeHTTP(capture, r)

			if capture.status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			final, _ := json.Marshal(storedResponse{
				Fingerprint: fingerprint,
				Status:      capture.statusOrOK(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(ctx, key, string(final), rule.ttl); err != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, fingerprint string, logg *logger.Logger) {
	ctx := r.Context()
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the client can simply retry
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key expired, retry the request"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.Fingerprint != fingerprint:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
	case !stored.done():
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

func fingerprintOf(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + r.URL.Path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// routePattern prefers the matched chi pattern. Inside a mounted subrouter the pattern
// still ends in a wildcard when middleware runs, so the raw path is used instead.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" && !strings.Contains(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

func routeRule(method, pattern string) (idempotencyRule, bool) {
	if pattern == "" {
		return idempotencyRule{}, false
	}
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.match(pattern) {
			return rule, true
		}
	}
	return idempotencyRule{}, false
}

func exact(path string) func(string) bool {
	return func(pattern string) bool { return pattern == path }
}

func wrapped(prefix, suffix string) func(string) bool {
	return func(pattern string) bool {
		return len(pattern) > len(prefix)+len(suffix) && strings.HasPrefix(pattern, prefix) && strings.HasSuffix(pattern, suffix)
	}
}

// responseCapture keeps a copy of the body so it can be replayed.
type responseCapture struct {
	statusRecorder
	body bytes.Buffer
}

func (c *responseCapture) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.statusRecorder.Write(b)
}
