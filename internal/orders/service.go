// Package orders materializes checkouts into immutable orders and drives their lifecycle.
package orders

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/internal/cart"
	"github.com/brewhouse/cafe-backend/internal/catalog"
	"github.com/brewhouse/cafe-backend/internal/payments/vnpay"
	"github.com/brewhouse/cafe-backend/internal/pricing"
	"github.com/brewhouse/cafe-backend/internal/vouchers"
	"github.com/brewhouse/cafe-backend/pkg/config"
	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
	"github.com/brewhouse/cafe-backend/pkg/logger"
	"github.com/brewhouse/cafe-backend/pkg/outbox"
	pkgpagination "github.com/brewhouse/cafe-backend/pkg/pagination"
	"github.com/brewhouse/cafe-backend/pkg/types"
)

// Callback results, also used as metric labels.
const (
	CallbackPaid             = "paid"
	CallbackFailed           = "failed"
	CallbackInvalidSignature = "invalid_signature"
	CallbackDuplicate        = "duplicate"
	CallbackAmountMismatch   = "amount_mismatch"
	CallbackAlreadySettled   = "already_settled"
	CallbackOrderNotFound    = "order_not_found"
	CallbackError            = "error"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type voucherRedeemer interface {
	Redeem(ctx context.Context, tx *gorm.DB, code string, subtotal int64) (*vouchers.Quote, error)
}

type paymentGateway interface {
	BuildPaymentURL(req vnpay.PaymentRequest) (string, error)
	VerifyReturn(query url.Values) (*vnpay.ReturnResult, error)
}

type replayGuard interface {
	CheckAndMark(ctx context.Context, txnRef, transactionNo string) (bool, error)
	Forget(ctx context.Context, txnRef, transactionNo string) error
}

type cartClearer interface {
	Clear(ctx context.Context, userID uuid.UUID) (*cart.CartView, error)
}

type orderMetrics interface {
	ObserveOrder(paymentMethod string, duration time.Duration, err error)
	IncVoucherConsumed()
	IncCallback(result string)
}

// Service exposes order materialization and lifecycle operations.
type Service interface {
	InsertOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	RetryPayment(ctx context.Context, orderID uuid.UUID, viewer Viewer, bankCode, clientIP string) (string, error)
	HandleGatewayCallback(ctx context.Context, query url.Values) CallbackOutcome
	UpdateOrder(ctx context.Context, orderID uuid.UUID, status string, actor *uuid.UUID) (*OrderDTO, error)
	Get(ctx context.Context, orderID uuid.UUID, viewer Viewer) (*OrderDTO, error)
	List(ctx context.Context, params ListParams) (*OrderList, error)
}

// ServiceParams wires the order service. Gateway, Replay, Cart and Metrics are optional.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Catalog  catalog.Reader
	Vouchers voucherRedeemer
	Outbox   outbox.Emitter
	Gateway  paymentGateway
	Replay   replayGuard
	Cart     cartClearer
	Metrics  orderMetrics
	Logger   *logger.Logger
	Payment  config.VNPayConfig
}

type service struct {
	repo     Repository
	tx       txRunner
	catalog  catalog.Reader
	vouchers voucherRedeemer
	outbox   outbox.Emitter
	gateway  paymentGateway
	replay   replayGuard
	cart     cartClearer
	metrics  orderMetrics
	logg     *logger.Logger
	payment  config.VNPayConfig
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if params.Vouchers == nil {
		return nil, fmt.Errorf("voucher redeemer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		catalog:  params.Catalog,
		vouchers: params.Vouchers,
		outbox:   params.Outbox,
		gateway:  params.Gateway,
		replay:   params.Replay,
		cart:     params.Cart,
		metrics:  params.Metrics,
		logg:     params.Logger,
		payment:  params.Payment,
	}, nil
}

func (s *service) InsertOrder(ctx context.Context, input CreateOrderInput) (result *CreateOrderResult, err error) {
	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveOrder(input.PaymentMethod, time.Since(started), err)
		}
	}()

	method, err := enums.ParsePaymentMethod(strings.TrimSpace(input.PaymentMethod))
	if err != nil {
		return nil, pkgerrors.Validation(pkgerrors.ReasonInvalidPaymentMethod, "payment method must be cash or vnpay").
			WithDetails(map[string]any{"paymentMethod": input.PaymentMethod})
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.Validation(pkgerrors.ReasonEmptyOrder, "order has no items")
	}

	lines := make(types.OrderLines, 0, len(input.Items))
	for i, item := range input.Items {
		line, err := s.materializeLine(ctx, item)
		if err != nil {
			return nil, withItemIndex(err, i)
		}
		lines = append(lines, line)
	}
	subtotal := pricing.OrderSubtotal(lines)

	order := &models.Order{
		ID:            uuid.New(),
		UserID:        input.UserID,
		Items:         lines,
		Subtotal:      subtotal,
		PaymentMethod: method,
		Status:        enums.OrderStatusPending,
		Note:          input.Note,
	}

	if input.TableID != nil {
		table, err := s.catalog.FindTable(ctx, *input.TableID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.NotFound(pkgerrors.ReasonTableNotFound, "table not found").
					WithDetails(map[string]any{"tableId": *input.TableID})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load table")
		}
		number := table.Number
		order.TableID = &table.ID
		order.TableNumber = &number
	}

	voucherCode := ""
	if input.VoucherCode != nil {
		voucherCode = vouchers.NormalizeCode(*input.VoucherCode)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if voucherCode != "" {
			quote, err := s.vouchers.Redeem(ctx, tx, voucherCode, subtotal)
			if err != nil {
				return err
			}
			code := quote.Code
			order.VoucherCode = &code
			order.DiscountAmount = quote.Discount
		}
		order.Total = pricing.FinalTotal(order.Subtotal, order.DiscountAmount)
		// a gateway cannot charge zero, so a fully discounted online order is settled here
		waived := method.RequiresGateway() && order.Total == 0
		if waived {
			order.Status = enums.OrderStatusPaid
			order.PaymentInfo = &types.PaymentInfo{Method: method, Waived: true}
		}

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
		}

		err := s.outbox.Emit(ctx, tx, outbox.Event{
			Type:    enums.EventOrderCreated,
			OrderID: order.ID,
			Actor:   actorOf(input.UserID, enums.UserRoleCustomer),
			Data: outbox.OrderCreated{
				OrderID:       order.ID,
				UserID:        order.UserID,
				TableNumber:   order.TableNumber,
				ItemCount:     len(order.Items),
				Subtotal:      order.Subtotal,
				Discount:      order.DiscountAmount,
				Total:         order.Total,
				VoucherCode:   order.VoucherCode,
				PaymentMethod: order.PaymentMethod,
			},
		})
		if err != nil || !waived {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.Event{
			Type:    enums.EventOrderPaid,
			OrderID: order.ID,
			Data:    outbox.OrderPaid{OrderID: order.ID, Total: 0, PaidAt: time.Now().UTC()},
		})
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		return nil, err
	}

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"total":          order.Total,
			"payment_method": order.PaymentMethod,
			"item_count":     len(order.Items),
		}), "order created")
	}
	if order.VoucherCode != nil && s.metrics != nil {
		s.metrics.IncVoucherConsumed()
	}

	result = &CreateOrderResult{Order: NewOrderDTO(order)}
	if method.RequiresGateway() && order.Status == enums.OrderStatusPending {
		if paymentURL, err := s.paymentURL(order, input.BankCode, input.ClientIP); err != nil {
			if s.logg != nil {
				s.logg.Error(logCtx, "payment url creation failed", err)
			}
		} else {
			result.PaymentURL = &paymentURL
		}
	}

	if input.ClearCart && input.UserID != nil && s.cart != nil {
		if _, err := s.cart.Clear(ctx, *input.UserID); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "cart clear after checkout failed")
		}
	}
	return result, nil
}

// materializeLine re-derives one line from the current catalog.
func (s *service) materializeLine(ctx context.Context, item ItemRequest) (types.OrderLine, error) {
	if err := pricing.ValidateQuantity(item.Quantity); err != nil {
		return types.OrderLine{}, err
	}
	itemType, err := enums.ParseItemType(strings.ToUpper(strings.TrimSpace(item.ItemType)))
	if err != nil {
		return types.OrderLine{}, pkgerrors.Validation(pkgerrors.ReasonInvalidItem, "itemType must be PRODUCT or COMBO")
	}

	var line types.OrderLine
	switch itemType {
	case enums.ItemTypeProduct:
		if item.ProductID == nil || *item.ProductID == uuid.Nil {
			return types.OrderLine{}, pkgerrors.Validation(pkgerrors.ReasonInvalidItem, "productId required for PRODUCT items")
		}
		product, selection, err := catalog.ResolveProduct(ctx, s.catalog, catalog.ProductRequest{
			ProductID:  *item.ProductID,
			Size:       item.Size,
			SugarLevel: item.SugarLevel,
			ToppingIDs: item.ToppingIDs,
		})
		if err != nil {
			return types.OrderLine{}, err
		}
		if err := catalog.CheckProductStock(product, item.Quantity); err != nil {
			return types.OrderLine{}, err
		}
		line = types.OrderLine{
			Type:      enums.ItemTypeProduct,
			Product:   &selection,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		}
	case enums.ItemTypeCombo:
		if item.ComboID == nil || *item.ComboID == uuid.Nil {
			return types.OrderLine{}, pkgerrors.Validation(pkgerrors.ReasonInvalidItem, "comboId required for COMBO items")
		}
		combo, err := catalog.LoadCombo(ctx, s.catalog, *item.ComboID)
		if err != nil {
			return types.OrderLine{}, err
		}
		products, err := catalog.CheckComboStock(ctx, s.catalog, combo, item.Quantity)
		if err != nil {
			return types.OrderLine{}, err
		}
		snapshot := make([]types.ComboProductSnapshot, 0, len(combo.Products))
		for _, cp := range combo.Products {
			snapshot = append(snapshot, types.ComboProductSnapshot{
				ProductID:         cp.ProductID,
				Name:              products[cp.ProductID].Name,
				QuantityInCombo:   cp.Quantity,
				DefaultSize:       cp.DefaultSize,
				DefaultSugarLevel: cp.DefaultSugarLevel,
			})
		}
		line = types.OrderLine{
			Type:      enums.ItemTypeCombo,
			Combo:     &types.OrderComboSelection{ComboID: combo.ID, Products: snapshot},
			Name:      combo.Name,
			ImageURL:  combo.ImageURL,
			Quantity:  item.Quantity,
			UnitPrice: combo.Price,
		}
	default:
		return types.OrderLine{}, pkgerrors.Validation(pkgerrors.ReasonInvalidItem, fmt.Sprintf("unsupported item type %q", itemType))
	}

	if err := pricing.RepriceOrderLine(&line); err != nil {
		return types.OrderLine{}, err
	}
	return line, nil
}

func (s *service) paymentURL(order *models.Order, bankCode, clientIP string) (string, error) {
	if s.gateway == nil {
		return "", errors.New("payment gateway not configured")
	}
	return s.gateway.BuildPaymentURL(vnpay.PaymentRequest{
		OrderID:  order.ID,
		Amount:   order.Total,
		BankCode: bankCode,
		IPAddr:   clientIP,
	})
}

func (s *service) RetryPayment(ctx context.Context, orderID uuid.UUID, viewer Viewer, bankCode, clientIP string) (string, error) {
	order, err := s.load(ctx, orderID, viewer)
	if err != nil {
		return "", err
	}
	if !order.PaymentMethod.RequiresGateway() || order.Status != enums.OrderStatusPending {
		return "", pkgerrors.Conflict(pkgerrors.ReasonPaymentNotApplicable, "order is not awaiting online payment").
			WithDetails(map[string]any{"status": order.Status, "paymentMethod": order.PaymentMethod})
	}
	paymentURL, err := s.paymentURL(order, bankCode, clientIP)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment url")
	}
	return paymentURL, nil
}

func (s *service) HandleGatewayCallback(ctx context.Context, query url.Values) CallbackOutcome {
	outcome := s.handleCallback(ctx, query)
	if s.metrics != nil {
		s.metrics.IncCallback(outcome.Result)
	}
	return outcome
}

func (s *service) handleCallback(ctx context.Context, query url.Values) CallbackOutcome {
	failure := CallbackOutcome{Result: CallbackInvalidSignature, Redirect: s.payment.FailureURL}
	if s.gateway == nil {
		return failure
	}
	result, err := s.gateway.VerifyReturn(query)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment callback rejected")
		}
		return failure
	}

	ctx = s.logCtx(ctx, result)
	outcome := CallbackOutcome{OrderID: result.OrderID}
	if result.Success() {
		outcome.Redirect = s.payment.SuccessURL
	} else {
		outcome.Redirect = failureRedirect(s.payment.FailureURL, result.ResponseCode)
	}

	if s.replay != nil {
		seen, err := s.replay.CheckAndMark(ctx, result.TxnRef, result.TransactionNo)
		if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment callback replay check failed")
		}
		if seen {
			outcome.Result = CallbackDuplicate
			return outcome
		}
	}

	order, err := s.repo.FindByID(ctx, result.OrderID)
	if err != nil {
		outcome.Result = CallbackOrderNotFound
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			outcome.Result = CallbackError
			s.forget(ctx, result)
		}
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment callback for unknown order")
		}
		return outcome
	}

	if order.Status != enums.OrderStatusPending {
		outcome.Result = CallbackAlreadySettled
		if order.Status == enums.OrderStatusPaid {
			outcome.Redirect = s.payment.SuccessURL
		} else {
			outcome.Redirect = failureRedirect(s.payment.FailureURL, result.ResponseCode)
		}
		return outcome
	}

	if result.Success() && result.Amount != order.Total {
		if s.logg != nil {
			s.logg.Error(s.logg.WithFields(ctx, map[string]any{
				"expected_amount": order.Total,
				"received_amount": result.Amount,
			}), "payment callback amount mismatch", errors.New("amount mismatch"))
		}
		outcome.Result = CallbackAmountMismatch
		outcome.Redirect = failureRedirect(s.payment.FailureURL, result.ResponseCode)
		return outcome
	}

	if err := s.settle(ctx, order, result); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "payment callback settlement failed", err)
		}
		s.forget(ctx, result)
		outcome.Result = CallbackError
		outcome.Redirect = failureRedirect(s.payment.FailureURL, result.ResponseCode)
		return outcome
	}

	if result.Success() {
		outcome.Result = CallbackPaid
	} else {
		outcome.Result = CallbackFailed
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "callback_result", outcome.Result), "payment callback processed")
	}
	return outcome
}

func (s *service) settle(ctx context.Context, order *models.Order, result *vnpay.ReturnResult) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var (
			changed bool
			err     error
			event   = outbox.Event{OrderID: order.ID}
		)
		if result.Success() {
			info := types.PaymentInfo{
				Method:        order.PaymentMethod,
				TransactionID: result.TransactionNo,
				BankCode:      result.BankCode,
				PayDate:       result.PayDate,
			}
			changed, err = repo.MarkPaid(ctx, order.ID, info)
			event.Type = enums.EventOrderPaid
			event.Data = outbox.OrderPaid{
				OrderID:       order.ID,
				Total:         order.Total,
				TransactionID: result.TransactionNo,
				BankCode:      result.BankCode,
				PaidAt:        time.Now().UTC(),
			}
		} else {
			changed, err = repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPaymentFailed)
			event.Type = enums.EventOrderPaymentFailed
			event.Data = outbox.OrderPaymentFailed{
				OrderID:      order.ID,
				ResponseCode: result.ResponseCode,
			}
		}
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

func (s *service) forget(ctx context.Context, result *vnpay.ReturnResult) {
	if s.replay == nil {
		return
	}
	if err := s.replay.Forget(ctx, result.TxnRef, result.TransactionNo); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment callback replay marker not cleared")
	}
}

func (s *service) logCtx(ctx context.Context, result *vnpay.ReturnResult) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, map[string]any{
		"order_id":       result.TxnRef,
		"transaction_no": result.TransactionNo,
		"response_code":  result.ResponseCode,
	})
}

func failureRedirect(base, code string) string {
	if code == "" {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "code=" + url.QueryEscape(code)
}

func (s *service) UpdateOrder(ctx context.Context, orderID uuid.UUID, status string, actor *uuid.UUID) (*OrderDTO, error) {
	next, err := enums.ParseOrderStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, pkgerrors.Validation(pkgerrors.ReasonInvalidStatus, err.Error())
	}

	order, err := s.load(ctx, orderID, Viewer{Operator: true})
	if err != nil {
		return nil, err
	}
	current := order.Status
	if !current.CanOperatorTransition(next) {
		return nil, invalidTransition(current, next)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, current, next)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if !changed {
			return invalidTransition(current, next)
		}
		return s.outbox.Emit(ctx, tx, outbox.Event{
			Type:    enums.EventOrderStatusChanged,
			OrderID: order.ID,
			Actor:   actorOf(actor, enums.UserRoleStaff),
			Data: outbox.OrderStatusChanged{
				OrderID:    order.ID,
				FromStatus: current,
				ToStatus:   next,
				ChangedBy:  actor,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
		}
		return nil, err
	}

	order.Status = next
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
			"from_status": current,
			"to_status":   next,
		}), "order status changed")
	}
	updated, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return NewOrderDTO(order), nil
	}
	return NewOrderDTO(updated), nil
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.Conflict(pkgerrors.ReasonInvalidStatusTransition, fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, viewer Viewer) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID, viewer)
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

// load hides orders the viewer may not see behind the same NotFound as missing ones.
func (s *service) load(ctx context.Context, orderID uuid.UUID, viewer Viewer) (*models.Order, error) {
	notFound := pkgerrors.NotFound(pkgerrors.ReasonOrderNotFound, "order not found").
		WithDetails(map[string]any{"orderId": orderID})
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if !viewer.CanSee(order) {
		return nil, notFound
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*OrderList, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Validation(pkgerrors.ReasonInvalidStatus, "unknown order status")
	}
	query := listQuery{
		status: params.Status,
		userID: params.UserID,
		limit:  params.FetchSize(),
	}
	cursor, err := params.Decode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.cursor = cursor

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	rows, nextCursor := pkgpagination.Trim(rows, params.Params, func(o models.Order) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})

	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewOrderDTO(&rows[i]))
	}
	return &OrderList{Orders: out, Cursor: nextCursor}, nil
}

func withItemIndex(err error, index int) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return err
	}
	details := map[string]any{"itemIndex": index}
	if existing, ok := typed.Details().(map[string]any); ok {
		for k, v := range existing {
			details[k] = v
		}
	}
	return typed.WithDetails(details)
}

func actorOf(userID *uuid.UUID, role enums.UserRole) *outbox.Actor {
	if userID == nil || *userID == uuid.Nil {
		return nil
	}
	return &outbox.Actor{UserID: *userID, Role: role}
}
