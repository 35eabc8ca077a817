// Package cart owns the per-user shopping cart and keeps its totals consistent.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/internal/catalog"
	"github.com/brewhouse/cafe-backend/internal/pricing"
	"github.com/brewhouse/cafe-backend/internal/vouchers"
	"github.com/brewhouse/cafe-backend/pkg/db"
	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
	"github.com/brewhouse/cafe-backend/pkg/logger"
	"github.com/brewhouse/cafe-backend/pkg/types"
)

const defaultMaxAttempts = 3

const (
	opAddProduct     = "add_product"
	opAddCombo       = "add_combo"
	opUpdateQuantity = "update_quantity"
	opRemoveItem     = "remove_item"
	opClear          = "clear"
	opApplyVoucher   = "apply_voucher"
)

// AddProductInput describes one product configuration to add.
type AddProductInput struct {
	ProductID  uuid.UUID
	Quantity   int
	Size       string
	SugarLevel string
	ToppingIDs []uuid.UUID
}

// Service exposes cart operations. Every mutation returns the saved snapshot.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartView, error)
	AddProduct(ctx context.Context, userID uuid.UUID, input AddProductInput) (*CartView, error)
	AddCombo(ctx context.Context, userID, comboID uuid.UUID, quantity int) (*CartView, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartView, error)
	ApplyVoucher(ctx context.Context, userID uuid.UUID, code string) (*CartView, error)
}

type cartMetrics interface {
	ObserveCartOp(op string, err error)
	IncCartConflict()
}

// ServiceParams wires the cart service dependencies. Locker and Metrics are optional.
type ServiceParams struct {
	Repo        CartRepository
	Catalog     catalog.Reader
	Vouchers    voucherPreviewer
	Locker      Locker
	Metrics     cartMetrics
	Logger      *logger.Logger
	MaxAttempts int
}

type service struct {
	repo        CartRepository
	catalog     catalog.Reader
	vouchers    voucherPreviewer
	locker      Locker
	metrics     cartMetrics
	logg        *logger.Logger
	maxAttempts int
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if params.Vouchers == nil {
		return nil, fmt.Errorf("voucher previewer required")
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &service{
		repo:        params.Repo,
		catalog:     params.Catalog,
		vouchers:    params.Vouchers,
		locker:      params.Locker,
		metrics:     params.Metrics,
		logg:        params.Logger,
		maxAttempts: attempts,
	}, nil
}

// mutation edits cart in place. It may run more than once when a save loses the
// version race, so it must derive everything from the cart it is handed.
type mutation func(ctx context.Context, cart *models.Cart) error

type mutateOptions struct {
	op string
	// create allows a missing cart to be created instead of failing CartNotFound.
	create bool
	// keepVoucher skips the soft voucher re-evaluation; the mutation set it itself.
	keepVoucher bool
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EmptyCartView(userID), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return NewCartView(cart), nil
}

func (s *service) AddProduct(ctx context.Context, userID uuid.UUID, input AddProductInput) (*CartView, error) {
	if err := pricing.ValidateQuantity(input.Quantity); err != nil {
		return s.fail(opAddProduct, err)
	}
	product, selection, err := catalog.ResolveProduct(ctx, s.catalog, catalog.ProductRequest{
		ProductID:  input.ProductID,
		Size:       input.Size,
		SugarLevel: input.SugarLevel,
		ToppingIDs: input.ToppingIDs,
	})
	if err != nil {
		return s.fail(opAddProduct, err)
	}

	return s.mutate(ctx, userID, mutateOptions{op: opAddProduct, create: true}, func(_ context.Context, cart *models.Cart) error {
		for i := range cart.Items {
			line := &cart.Items[i]
			if line.Type != enums.ItemTypeProduct || line.Product == nil || !line.Product.SameConfiguration(selection) {
				continue
			}
			if err := catalog.CheckProductStock(product, line.Quantity+input.Quantity); err != nil {
				return err
			}
			line.Quantity += input.Quantity
			return pricing.RepriceCartLine(line)
		}

		if err := catalog.CheckProductStock(product, input.Quantity); err != nil {
			return err
		}
		line := types.NewProductLine(selection, product.Name, product.ImageURL, product.Price, input.Quantity)
		if err := pricing.RepriceCartLine(&line); err != nil {
			return err
		}
		cart.Items = append(cart.Items, line)
		return nil
	})
}

func (s *service) AddCombo(ctx context.Context, userID, comboID uuid.UUID, quantity int) (*CartView, error) {
	if err := pricing.ValidateQuantity(quantity); err != nil {
		return s.fail(opAddCombo, err)
	}
	combo, err := catalog.LoadCombo(ctx, s.catalog, comboID)
	if err != nil {
		return s.fail(opAddCombo, err)
	}

	return s.mutate(ctx, userID, mutateOptions{op: opAddCombo, create: true}, func(ctx context.Context, cart *models.Cart) error {
		for i := range cart.Items {
			line := &cart.Items[i]
			if line.Type != enums.ItemTypeCombo || line.Combo == nil || line.Combo.ComboID != combo.ID {
				continue
			}
			if _, err := catalog.CheckComboStock(ctx, s.catalog, combo, line.Quantity+quantity); err != nil {
				return err
			}
			line.Quantity += quantity
			return pricing.RepriceCartLine(line)
		}

		if _, err := catalog.CheckComboStock(ctx, s.catalog, combo, quantity); err != nil {
			return err
		}
		line := types.NewComboLine(combo.ID, combo.Name, combo.ImageURL, combo.Price, quantity)
		if err := pricing.RepriceCartLine(&line); err != nil {
			return err
		}
		cart.Items = append(cart.Items, line)
		return nil
	})
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartView, error) {
	if quantity < 0 {
		return s.fail(opUpdateQuantity, pkgerrors.Validation(pkgerrors.ReasonInvalidQuantity, "quantity cannot be negative").
			WithDetails(map[string]any{"quantity": quantity}))
	}

	return s.mutate(ctx, userID, mutateOptions{op: opUpdateQuantity}, func(ctx context.Context, cart *models.Cart) error {
		idx := cart.Items.Find(itemID)
		if idx < 0 {
			return itemNotFound(itemID)
		}
		if quantity == 0 {
			cart.Items = cart.Items.Remove(idx)
			return nil
		}

		line := &cart.Items[idx]
		switch line.Type {
		case enums.ItemTypeProduct:
			if line.Product == nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "product line without selection")
			}
			product, err := catalog.LoadActiveProduct(ctx, s.catalog, line.Product.ProductID)
			if err != nil {
				return err
			}
			if err := catalog.CheckProductStock(product, quantity); err != nil {
				return err
			}
		case enums.ItemTypeCombo:
			if line.Combo == nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "combo line without selection")
			}
			combo, err := catalog.LoadCombo(ctx, s.catalog, line.Combo.ComboID)
			if err != nil {
				return err
			}
			if _, err := catalog.CheckComboStock(ctx, s.catalog, combo, quantity); err != nil {
				return err
			}
		default:
			return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown item type %q", line.Type))
		}

		line.Quantity = quantity
		return pricing.RepriceCartLine(line)
	})
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error) {
	return s.mutate(ctx, userID, mutateOptions{op: opRemoveItem}, func(_ context.Context, cart *models.Cart) error {
		idx := cart.Items.Find(itemID)
		if idx < 0 {
			return itemNotFound(itemID)
		}
		cart.Items = cart.Items.Remove(idx)
		return nil
	})
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	return s.mutate(ctx, userID, mutateOptions{op: opClear, create: true}, func(_ context.Context, cart *models.Cart) error {
		cart.Items = types.CartLines{}
		cart.VoucherCode = nil
		cart.DiscountAmount = 0
		return nil
	})
}

func (s *service) ApplyVoucher(ctx context.Context, userID uuid.UUID, code string) (*CartView, error) {
	return s.mutate(ctx, userID, mutateOptions{op: opApplyVoucher, keepVoucher: true}, func(ctx context.Context, cart *models.Cart) error {
		if len(cart.Items) == 0 {
			return pkgerrors.Validation(pkgerrors.ReasonEmptyCart, "cart is empty")
		}
		quote, err := s.vouchers.Preview(ctx, code, pricing.CartTotal(cart.Items))
		if err != nil {
			return err
		}
		applied := quote.Code
		cart.VoucherCode = &applied
		cart.DiscountAmount = quote.Discount
		return nil
	})
}

func (s *service) mutate(ctx context.Context, userID uuid.UUID, opts mutateOptions, fn mutation) (*CartView, error) {
	if userID == uuid.Nil {
		return s.fail(opts.op, pkgerrors.New(pkgerrors.CodeValidation, "user id required"))
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "cart_op": opts.op})
	}

	release := s.lock(ctx, userID)
	defer release()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		cart, created, err := s.load(ctx, userID, opts.create)
		if err != nil {
			return s.fail(opts.op, err)
		}

		if err := fn(ctx, cart); err != nil {
			return s.fail(opts.op, err)
		}
		cart.TotalPrice = pricing.CartTotal(cart.Items)
		if !opts.keepVoucher {
			if err := s.refreshVoucher(ctx, cart); err != nil {
				return s.fail(opts.op, err)
			}
		}

		if created {
			err = s.repo.Create(ctx, cart)
			if err != nil && db.IsUniqueViolation(err, "") {
				s.conflict(ctx, attempt)
				continue
			}
		} else {
			err = s.repo.SaveVersioned(ctx, cart)
			if errors.Is(err, ErrStaleVersion) {
				s.conflict(ctx, attempt)
				continue
			}
		}
		if err != nil {
			return s.fail(opts.op, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart"))
		}

		if s.metrics != nil {
			s.metrics.ObserveCartOp(opts.op, nil)
		}
		return NewCartView(cart), nil
	}

	return s.fail(opts.op, pkgerrors.Conflict(pkgerrors.ReasonCartVersionConflict, "cart was modified concurrently, please retry").
		WithDetails(map[string]any{"attempts": s.maxAttempts}))
}

func (s *service) load(ctx context.Context, userID uuid.UUID, create bool) (*models.Cart, bool, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if !create {
		return nil, false, pkgerrors.NotFound(pkgerrors.ReasonCartNotFound, "cart not found")
	}
	return &models.Cart{ID: uuid.New(), UserID: userID, Items: types.CartLines{}}, true, nil
}

// refreshVoucher silently drops a voucher that no longer qualifies for the new total.
func (s *service) refreshVoucher(ctx context.Context, cart *models.Cart) error {
	if cart.VoucherCode == nil {
		cart.DiscountAmount = 0
		return nil
	}
	code := *cart.VoucherCode
	if len(cart.Items) == 0 {
		cart.VoucherCode = nil
		cart.DiscountAmount = 0
		return nil
	}

	quote, err := s.vouchers.Preview(ctx, code, cart.TotalPrice)
	if err != nil {
		if !vouchers.IsIneligible(err) {
			return err
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"voucher_code": code,
				"reason":       pkgerrors.ReasonOf(err).String(),
			}), "voucher dropped from cart")
		}
		cart.VoucherCode = nil
		cart.DiscountAmount = 0
		return nil
	}
	cart.DiscountAmount = quote.Discount
	return nil
}

func (s *service) lock(ctx context.Context, userID uuid.UUID) func() {
	noop := func() {}
	if s.locker == nil {
		return noop
	}
	lock, err := s.locker.ForUser(userID)
	if err != nil {
		return noop
	}
	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		if s.logg != nil {
			debugCtx := s.logg.WithField(ctx, "lock_acquired", false)
			if err != nil {
				debugCtx = s.logg.WithField(debugCtx, "error", err.Error())
			}
			s.logg.Debug(debugCtx, "cart lock unavailable, relying on version check")
		}
		return noop
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart lock release failed")
		}
	}
}

func (s *service) conflict(ctx context.Context, attempt int) {
	if s.metrics != nil {
		s.metrics.IncCartConflict()
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "cart version conflict")
	}
}

func (s *service) fail(op string, err error) (*CartView, error) {
	if s.metrics != nil {
		s.metrics.ObserveCartOp(op, err)
	}
	return nil, err
}

func itemNotFound(itemID uuid.UUID) error {
	return pkgerrors.NotFound(pkgerrors.ReasonItemNotFound, "cart item not found").
		WithDetails(map[string]any{"cartItemId": itemID})
}
