package errors

// Reason names the specific business rule behind a failure. The Code decides
// the HTTP status; the Reason lets clients tell failures with the same status apart.
type Reason string

const (
	ReasonProductNotFound Reason = "ProductNotFound"
	ReasonComboNotFound   Reason = "ComboNotFound"
	ReasonCartNotFound    Reason = "CartNotFound"
	ReasonItemNotFound    Reason = "ItemNotFound"
	ReasonOrderNotFound   Reason = "OrderNotFound"
	ReasonVoucherNotFound Reason = "VoucherNotFound"
	ReasonTableNotFound   Reason = "TableNotFound"

	ReasonInvalidItem          Reason = "InvalidItem"
	ReasonInvalidQuantity      Reason = "InvalidQuantity"
	ReasonMissingModifiers     Reason = "MissingModifiers"
	ReasonInvalidModifier      Reason = "InvalidModifier"
	ReasonEmptyCart            Reason = "EmptyCart"
	ReasonEmptyOrder           Reason = "EmptyOrder"
	ReasonInvalidPaymentMethod Reason = "InvalidPaymentMethod"
	ReasonInvalidStatus        Reason = "InvalidStatus"

	ReasonInsufficientStock       Reason = "InsufficientStock"
	ReasonComboNotActive          Reason = "ComboNotActive"
	ReasonComboProductOutOfStock  Reason = "ComboProductOutOfStock"
	ReasonVoucherNotYetValid      Reason = "VoucherNotYetValid"
	ReasonVoucherExpired          Reason = "VoucherExpired"
	ReasonVoucherExhausted        Reason = "VoucherExhausted"
	ReasonMinOrderNotMet          Reason = "MinOrderNotMet"
	ReasonInvalidStatusTransition Reason = "InvalidStatusTransition"
	ReasonCartVersionConflict     Reason = "CartVersionConflict"
	ReasonPaymentNotApplicable    Reason = "PaymentNotApplicable"
)

// String implements fmt.Stringer.
func (r Reason) String() string {
	return string(r)
}

// NotFound builds a NOT_FOUND error for the given reason.
func NotFound(reason Reason, message string) *Error {
	return NewReason(CodeNotFound, reason, message)
}

// Validation builds a VALIDATION_ERROR for the given reason.
func Validation(reason Reason, message string) *Error {
	return NewReason(CodeValidation, reason, message)
}

// Conflict builds a CONFLICT error for the given reason.
func Conflict(reason Reason, message string) *Error {
	return NewReason(CodeConflict, reason, message)
}
