package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/api/middleware"
	internalorders "github.com/brewhouse/cafe-backend/internal/orders"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
)

type stubOrdersService struct {
	internalorders.Service
	input    internalorders.CreateOrderInput
	viewer   internalorders.Viewer
	params   internalorders.ListParams
	status   string
	outcome  internalorders.CallbackOutcome
	err      error
	callback url.Values
}

func (s *stubOrdersService) InsertOrder(_ context.Context, input internalorders.CreateOrderInput) (*internalorders.CreateOrderResult, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	link := "https://pay.example/x"
	return &internalorders.CreateOrderResult{
		Order:      &internalorders.OrderDTO{ID: uuid.New(), Status: enums.OrderStatusPending, Total: 90000},
		PaymentURL: &link,
	}, nil
}

func (s *stubOrdersService) HandleGatewayCallback(_ context.Context, query url.Values) internalorders.CallbackOutcome {
	s.callback = query
	return s.outcome
}

func (s *stubOrdersService) UpdateOrder(_ context.Context, orderID uuid.UUID, status string, _ *uuid.UUID) (*internalorders.OrderDTO, error) {
	s.status = status
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderDTO{ID: orderID, Status: enums.OrderStatus(status)}, nil
}

func (s *stubOrdersService) Get(_ context.Context, orderID uuid.UUID, viewer internalorders.Viewer) (*internalorders.OrderDTO, error) {
	s.viewer = viewer
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderDTO{ID: orderID}, nil
}

func (s *stubOrdersService) List(_ context.Context, params internalorders.ListParams) (*internalorders.OrderList, error) {
	s.params = params
	return &internalorders.OrderList{Orders: []internalorders.OrderDTO{}}, nil
}

func authed(req *http.Request, userID uuid.UUID, role enums.UserRole) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{UserID: userID, Role: role}))
}

func withOrderID(req *http.Request, id uuid.UUID) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", id.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestInsertOrderIgnoresClientPrices(t *testing.T) {
	t.Parallel()
	svc := &stubOrdersService{}
	user := uuid.New()
	product := uuid.New()

	body := `{"payment_method":"vnpay","items":[{"itemType":"PRODUCT","productId":"` + product.String() + `","quantity":2,"size":"M","sugarLevel":"50 SL","price":1}],"voucher_code":"SAVE10","clear_cart":true}`
	req := authed(httptest.NewRequest(http.MethodPost, "/order/insertOrder", strings.NewReader(body)), user, enums.UserRoleCustomer)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	resp := httptest.NewRecorder()
	InsertOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.UserID == nil || *svc.input.UserID != user {
		t.Fatalf("expected caller as order owner")
	}
	if len(svc.input.Items) != 1 || svc.input.Items[0].Quantity != 2 || *svc.input.Items[0].ProductID != product {
		t.Fatalf("unexpected items %+v", svc.input.Items)
	}
	if svc.input.ClientIP != "203.0.113.9" || !svc.input.ClearCart {
		t.Fatalf("unexpected input %+v", svc.input)
	}

	var payload struct {
		Data struct {
			Order      map[string]any `json:"order"`
			PaymentURL *string        `json:"paymentUrl"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data.PaymentURL == nil || payload.Data.Order["status"] != "pending" {
		t.Fatalf("unexpected payload %s", resp.Body.String())
	}
}

func TestInsertOrderMapsVoucherFailure(t *testing.T) {
	t.Parallel()
	svc := &stubOrdersService{err: pkgerrors.Conflict(pkgerrors.ReasonVoucherExhausted, "voucher has no uses left")}

	req := authed(httptest.NewRequest(http.MethodPost, "/order/insertOrder", strings.NewReader(`{"payment_method":"cash","items":[]}`)), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	InsertOrder(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), string(pkgerrors.ReasonVoucherExhausted)) {
		t.Fatalf("expected reason in body: %s", resp.Body.String())
	}
}

func TestVNPayReturnRedirects(t *testing.T) {
	t.Parallel()
	svc := &stubOrdersService{outcome: internalorders.CallbackOutcome{Result: internalorders.CallbackFailed, Redirect: "/payment/failed?code=24"}}

	req := httptest.NewRequest(http.MethodGet, "/order/vnpay_return?vnp_TxnRef=abc&vnp_ResponseCode=24", nil)
	resp := httptest.NewRecorder()
	VNPayReturn(svc, "/payment/failed").ServeHTTP(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", resp.Code)
	}
	if loc := resp.Header().Get("Location"); loc != "/payment/failed?code=24" {
		t.Fatalf("unexpected redirect %s", loc)
	}
	if svc.callback.Get("vnp_TxnRef") != "abc" {
		t.Fatalf("expected query forwarded")
	}

	resp = httptest.NewRecorder()
	VNPayReturn(&stubOrdersService{}, "/payment/failed").ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/order/vnpay_return", nil))
	if loc := resp.Header().Get("Location"); loc != "/payment/failed" {
		t.Fatalf("expected fallback redirect, got %s", loc)
	}
}

func TestUpdateOrderForwardsStatus(t *testing.T) {
	t.Parallel()
	svc := &stubOrdersService{}
	orderID := uuid.New()

	body := `{"orderId":"` + orderID.String() + `","updateData":{"status":"processing"}}`
	req := authed(httptest.NewRequest(http.MethodPut, "/order/updateOrder", strings.NewReader(body)), uuid.New(), enums.UserRoleStaff)
	resp := httptest.NewRecorder()
	UpdateOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.status != "processing" {
		t.Fatalf("expected status forwarded, got %q", svc.status)
	}
}

func TestUpdateOrderRejectsMissingStatus(t *testing.T) {
	t.Parallel()
	body := `{"orderId":"` + uuid.NewString() + `","updateData":{}}`
	req := authed(httptest.NewRequest(http.MethodPut, "/order/updateOrder", strings.NewReader(body)), uuid.New(), enums.UserRoleStaff)
	resp := httptest.NewRecorder()
	UpdateOrder(&stubOrdersService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDetailPassesViewer(t *testing.T) {
	t.Parallel()
	svc := &stubOrdersService{}
	user := uuid.New()
	orderID := uuid.New()

	req := withOrderID(httptest.NewRequest(http.MethodGet, "/order/"+orderID.String(), nil), orderID)
	req = authed(req, user, enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.viewer.UserID != user || svc.viewer.Operator {
		t.Fatalf("unexpected viewer %+v", svc.viewer)
	}
}

func TestListParsesFilters(t *testing.T) {
	t.Parallel()
	svc := &stubOrdersService{}
	user := uuid.New()

	req := authed(httptest.NewRequest(http.MethodGet, "/order/getAllOrder?status=paid&limit=5&userId="+user.String(), nil), uuid.New(), enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.params.Status == nil || *svc.params.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid filter")
	}
	if svc.params.UserID == nil || *svc.params.UserID != user || svc.params.Limit != 5 {
		t.Fatalf("unexpected params %+v", svc.params)
	}

	bad := authed(httptest.NewRequest(http.MethodGet, "/order/getAllOrder?status=lost", nil), uuid.New(), enums.UserRoleAdmin)
	resp = httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
