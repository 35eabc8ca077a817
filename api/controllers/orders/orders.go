package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/api/middleware"
	"github.com/brewhouse/cafe-backend/api/responses"
	"github.com/brewhouse/cafe-backend/api/validators"
	internalorders "github.com/brewhouse/cafe-backend/internal/orders"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
	"github.com/brewhouse/cafe-backend/pkg/logger"
	"github.com/brewhouse/cafe-backend/pkg/pagination"
)

// InsertOrder materializes a checkout into a pending order.
func InsertOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		caller, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload insertOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.InsertOrder(r.Context(), payload.toInput(caller.UserID, middleware.ClientIP(r)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// VNPayReturn handles the browser redirect back from the gateway. It always redirects.
func VNPayReturn(svc internalorders.Service, failureURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := failureURL
		if svc != nil {
			if outcome := svc.HandleGatewayCallback(r.Context(), r.URL.Query()); outcome.Redirect != "" {
				target = outcome.Redirect
			}
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// UpdateOrder applies an operator status transition.
func UpdateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		caller, err := callerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateOrder(r.Context(), payload.OrderID, payload.UpdateData.Status, &caller.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// List returns operator order pages, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := internalorders.ListParams{
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Validation(pkgerrors.ReasonInvalidStatus, err.Error()))
				return
			}
			params.Status = &status
		}
		if params.UserID, err = validators.ParseQueryUUID(r, "userId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order to its owner or an operator.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, viewer, err := orderRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// RetryPayment issues a fresh gateway URL for a pending online order.
func RetryPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, viewer, err := orderRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload retryPaymentRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentURL, err := svc.RetryPayment(r.Context(), orderID, viewer, payload.BankCode, middleware.ClientIP(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"paymentUrl": paymentURL})
	}
}

func orderRequest(r *http.Request) (uuid.UUID, internalorders.Viewer, error) {
	orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
	if err != nil {
		return uuid.Nil, internalorders.Viewer{}, err
	}
	caller, err := callerIdentity(r)
	if err != nil {
		return uuid.Nil, internalorders.Viewer{}, err
	}
	return orderID, internalorders.Viewer{UserID: caller.UserID, Operator: caller.Operator()}, nil
}

func callerIdentity(r *http.Request) (middleware.Identity, error) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return middleware.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}
