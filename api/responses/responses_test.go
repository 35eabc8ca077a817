package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", got)
	}

	var body SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorCarriesReasonAndDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.Conflict(pkgerrors.ReasonInsufficientStock, "not enough stock").
		WithDetails(map[string]any{"required": 11, "available": 10})
	WriteError(context.Background(), nil, w, err)

	if got := w.Code; got != http.StatusConflict {
		t.Fatalf("expected status 409 but got %d", got)
	}

	var body ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeConflict) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Reason != string(pkgerrors.ReasonInsufficientStock) {
		t.Fatalf("unexpected reason %s", body.Error.Reason)
	}
	if body.Error.Message != "not enough stock" {
		t.Fatalf("unexpected message %s", body.Error.Message)
	}
	details, ok := body.Error.Details.(map[string]any)
	if !ok || details["available"] != float64(10) {
		t.Fatalf("expected details in public payload, got %v", body.Error.Details)
	}
}

func TestWriteErrorMapsReasonsToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{pkgerrors.NotFound(pkgerrors.ReasonCartNotFound, "cart not found"), http.StatusNotFound},
		{pkgerrors.Validation(pkgerrors.ReasonMissingModifiers, "size required"), http.StatusBadRequest},
		{pkgerrors.Conflict(pkgerrors.ReasonVoucherExhausted, "voucher used up"), http.StatusConflict},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteError(context.Background(), nil, w, tc.err)
		if w.Code != tc.want {
			t.Fatalf("%v: expected %d got %d", tc.err, tc.want, w.Code)
		}
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}

	var body ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Message == "boom" {
		t.Fatalf("internal error text must not leak")
	}
	if body.Error.Details != nil {
		t.Fatalf("details should be omitted for internal errors")
	}
}

func TestWriteErrorDependencyHidesMessageKeepsDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeDependency, "redis dial tcp 10.0.0.4:6379 refused").
		WithDetails(map[string]string{"redis": "down"})
	WriteError(context.Background(), nil, w, err)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After on dependency failures")
	}
	var body ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Message != "dependency unavailable" {
		t.Fatalf("expected public message, got %q", body.Error.Message)
	}
	if body.Error.Details == nil {
		t.Fatalf("expected dependency details")
	}
}
