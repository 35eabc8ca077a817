package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/api/middleware"
	"github.com/brewhouse/cafe-backend/api/responses"
	"github.com/brewhouse/cafe-backend/api/validators"
	cartsvc "github.com/brewhouse/cafe-backend/internal/cart"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
	"github.com/brewhouse/cafe-backend/pkg/logger"
)

// CartFetch returns the caller's cart, or an empty snapshot when none exists.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		pathUser, err := validators.ParsePathUUID(chi.URLParam(r, "userId"), "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := resolveUser(r, &pathUser)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddProduct adds a configured product, merging into an identical line.
func CartAddProduct(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return mutation(svc, logg, func(r *http.Request) (*cartsvc.CartView, error) {
		var payload addProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		userID, err := resolveUser(r, payload.UserID)
		if err != nil {
			return nil, err
		}
		return svc.AddProduct(r.Context(), userID, cartsvc.AddProductInput{
			ProductID:  payload.ProductID,
			Quantity:   quantityOrOne(payload.Quantity),
			Size:       validators.SanitizeString(payload.Size, 16),
			SugarLevel: validators.SanitizeString(payload.SugarLevel, 16),
			ToppingIDs: payload.ToppingIDs,
		})
	})
}

// CartAddCombo adds a combo bundle.
func CartAddCombo(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return mutation(svc, logg, func(r *http.Request) (*cartsvc.CartView, error) {
		var payload addComboRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		userID, err := resolveUser(r, payload.UserID)
		if err != nil {
			return nil, err
		}
		return svc.AddCombo(r.Context(), userID, payload.ComboID, quantityOrOne(payload.Quantity))
	})
}

// CartUpdateQuantity sets a line's quantity; zero removes it.
func CartUpdateQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return mutation(svc, logg, func(r *http.Request) (*cartsvc.CartView, error) {
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		userID, err := resolveUser(r, payload.UserID)
		if err != nil {
			return nil, err
		}
		return svc.UpdateQuantity(r.Context(), userID, payload.CartItemID, *payload.NewQuantity)
	})
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return mutation(svc, logg, func(r *http.Request) (*cartsvc.CartView, error) {
		var payload removeItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		userID, err := resolveUser(r, payload.UserID)
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), userID, payload.CartItemID)
	})
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return mutation(svc, logg, func(r *http.Request) (*cartsvc.CartView, error) {
		var payload clearCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		userID, err := resolveUser(r, payload.UserID)
		if err != nil {
			return nil, err
		}
		return svc.Clear(r.Context(), userID)
	})
}

// CartApplyVoucher attaches a voucher after checking it against the cart total. Usage is not consumed.
func CartApplyVoucher(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return mutation(svc, logg, func(r *http.Request) (*cartsvc.CartView, error) {
		var payload applyVoucherRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		userID, err := resolveUser(r, payload.UserID)
		if err != nil {
			return nil, err
		}
		return svc.ApplyVoucher(r.Context(), userID, validators.SanitizeString(payload.VoucherCode, 64))
	})
}

func mutation(svc cartsvc.Service, logg *logger.Logger, run func(r *http.Request) (*cartsvc.CartView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		view, err := run(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// resolveUser picks the cart owner. Customers may only touch their own cart.
func resolveUser(r *http.Request, requested *uuid.UUID) (uuid.UUID, error) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	if requested == nil || *requested == uuid.Nil || *requested == caller.UserID {
		return caller.UserID, nil
	}
	if caller.Operator() {
		return *requested, nil
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot access another user's cart")
}
