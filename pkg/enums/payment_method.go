package enums

// PaymentMethod describes how a customer settles an order.
type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodVNPay PaymentMethod = "vnpay"
)

var paymentMethods = set[PaymentMethod]{PaymentMethodCash, PaymentMethodVNPay}

func (p PaymentMethod) String() string { return string(p) }
func (p PaymentMethod) IsValid() bool  { return paymentMethods.has(p) }

// RequiresGateway reports whether the order is settled online before fulfilment.
func (p PaymentMethod) RequiresGateway() bool { return p == PaymentMethodVNPay }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return paymentMethods.parse("payment method", value)
}
