package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/api/middleware"
	cartsvc "github.com/brewhouse/cafe-backend/internal/cart"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
)

type stubCartService struct {
	cartsvc.Service
	lastUser  uuid.UUID
	lastInput cartsvc.AddProductInput
	lastQty   int
	lastCode  string
	updated   bool
	err       error
}

func (s *stubCartService) view(userID uuid.UUID) *cartsvc.CartView {
	return cartsvc.EmptyCartView(userID)
}

func (s *stubCartService) Get(_ context.Context, userID uuid.UUID) (*cartsvc.CartView, error) {
	s.lastUser = userID
	return s.view(userID), s.err
}

func (s *stubCartService) AddProduct(_ context.Context, userID uuid.UUID, input cartsvc.AddProductInput) (*cartsvc.CartView, error) {
	s.lastUser = userID
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.view(userID), nil
}

func (s *stubCartService) UpdateQuantity(_ context.Context, userID, _ uuid.UUID, quantity int) (*cartsvc.CartView, error) {
	s.lastUser = userID
	s.lastQty = quantity
	s.updated = true
	return s.view(userID), s.err
}

func (s *stubCartService) AddCombo(_ context.Context, userID, _ uuid.UUID, quantity int) (*cartsvc.CartView, error) {
	s.lastUser = userID
	s.lastQty = quantity
	return s.view(userID), s.err
}

func (s *stubCartService) ApplyVoucher(_ context.Context, userID uuid.UUID, code string) (*cartsvc.CartView, error) {
	s.lastUser = userID
	s.lastCode = code
	if s.err != nil {
		return nil, s.err
	}
	return s.view(userID), nil
}

func authed(req *http.Request, userID uuid.UUID, role enums.UserRole) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{UserID: userID, Role: role}))
}

func decodeError(t *testing.T, body []byte) (string, string) {
	t.Helper()
	var payload struct {
		Error struct {
			Code   string `json:"code"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload.Error.Code, payload.Error.Reason
}

func TestCartAddProductUsesCaller(t *testing.T) {
	t.Parallel()
	svc := &stubCartService{}
	user := uuid.New()
	product := uuid.New()

	body := `{"productId":"` + product.String() + `","quantity":2,"size":" M ","sugarLevel":"50 SL","toppingIds":[]}`
	req := authed(httptest.NewRequest(http.MethodPost, "/cart/insertCart", strings.NewReader(body)), user, enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	CartAddProduct(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastUser != user {
		t.Fatalf("expected caller %s got %s", user, svc.lastUser)
	}
	if svc.lastInput.ProductID != product || svc.lastInput.Quantity != 2 || svc.lastInput.Size != "M" {
		t.Fatalf("unexpected input %+v", svc.lastInput)
	}
	var payload struct {
		Data cartsvc.CartView `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data.UserID != user {
		t.Fatalf("expected cart for %s", user)
	}
}

func TestCartRejectsOtherUsersCart(t *testing.T) {
	t.Parallel()
	svc := &stubCartService{}
	other := uuid.New()

	body := `{"userId":"` + other.String() + `","cartItemId":"` + uuid.NewString() + `","newQuantity":0}`
	req := authed(httptest.NewRequest(http.MethodPut, "/cart/updateCartQuantity", strings.NewReader(body)), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	CartUpdateQuantity(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	staffReq := authed(httptest.NewRequest(http.MethodPut, "/cart/updateCartQuantity", strings.NewReader(body)), uuid.New(), enums.UserRoleStaff)
	resp = httptest.NewRecorder()
	CartUpdateQuantity(svc, nil).ServeHTTP(resp, staffReq)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected staff to pass, got %d", resp.Code)
	}
	if svc.lastUser != other || svc.lastQty != 0 {
		t.Fatalf("expected update for %s with quantity 0", other)
	}
}

func TestCartApplyVoucherSurfacesReason(t *testing.T) {
	t.Parallel()
	svc := &stubCartService{err: pkgerrors.Conflict(pkgerrors.ReasonMinOrderNotMet, "order total below voucher minimum").
		WithDetails(map[string]any{"shortfall": 20000})}

	req := authed(httptest.NewRequest(http.MethodPost, "/cart/apply-voucher", strings.NewReader(`{"voucher_code":"V10"}`)), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	CartApplyVoucher(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	code, reason := decodeError(t, resp.Body.Bytes())
	if code != string(pkgerrors.CodeConflict) || reason != string(pkgerrors.ReasonMinOrderNotMet) {
		t.Fatalf("unexpected error %s/%s", code, reason)
	}
	if svc.lastCode != "V10" {
		t.Fatalf("expected voucher code forwarded, got %q", svc.lastCode)
	}
}

func TestCartApplyVoucherRequiresCode(t *testing.T) {
	t.Parallel()
	req := authed(httptest.NewRequest(http.MethodPost, "/cart/apply-voucher", strings.NewReader(`{}`)), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	CartApplyVoucher(&stubCartService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartFetchReadsPathUser(t *testing.T) {
	t.Parallel()
	svc := &stubCartService{}
	user := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/cart/getCartByUserId/"+user.String(), nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("userId", user.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	req = authed(req, user, enums.UserRoleCustomer)

	resp := httptest.NewRecorder()
	CartFetch(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastUser != user {
		t.Fatalf("expected %s got %s", user, svc.lastUser)
	}
}

func TestCartRequiresUserContext(t *testing.T) {
	t.Parallel()
	req := httptest.NewRequest(http.MethodPost, "/cart/clearCart", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	CartClear(&stubCartService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAddDefaultsQuantityToOne(t *testing.T) {
	t.Parallel()
	user := uuid.New()

	svc := &stubCartService{}
	body := `{"productId":"` + uuid.NewString() + `","size":"M","sugarLevel":"50 SL"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/cart/insertCart", strings.NewReader(body)), user, enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	CartAddProduct(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastInput.Quantity != 1 {
		t.Fatalf("expected omitted quantity to default to 1, got %d", svc.lastInput.Quantity)
	}

	combo := &stubCartService{}
	req = authed(httptest.NewRequest(http.MethodPost, "/cart/addCombo", strings.NewReader(`{"comboId":"`+uuid.NewString()+`"}`)), user, enums.UserRoleCustomer)
	resp = httptest.NewRecorder()
	CartAddCombo(combo, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if combo.lastQty != 1 {
		t.Fatalf("expected omitted combo quantity to default to 1, got %d", combo.lastQty)
	}
}

func TestCartAddKeepsExplicitZeroQuantity(t *testing.T) {
	t.Parallel()
	svc := &stubCartService{}
	body := `{"productId":"` + uuid.NewString() + `","quantity":0}`
	req := authed(httptest.NewRequest(http.MethodPost, "/cart/insertCart", strings.NewReader(body)), uuid.New(), enums.UserRoleCustomer)
	CartAddProduct(svc, nil).ServeHTTP(httptest.NewRecorder(), req)
	if svc.lastInput.Quantity != 0 {
		t.Fatalf("explicit quantity must reach the service unchanged, got %d", svc.lastInput.Quantity)
	}
}

func TestCartUpdateQuantityRequiresNewQuantity(t *testing.T) {
	t.Parallel()
	svc := &stubCartService{}
	body := `{"cartItemId":"` + uuid.NewString() + `"}`
	req := authed(httptest.NewRequest(http.MethodPut, "/cart/updateCartQuantity", strings.NewReader(body)), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	CartUpdateQuantity(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if code, _ := decodeError(t, resp.Body.Bytes()); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %s", code)
	}
	if svc.updated {
		t.Fatalf("service must not run without newQuantity")
	}
}
