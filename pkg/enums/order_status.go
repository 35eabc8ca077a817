package enums

// OrderStatus tracks the lifecycle of a placed order.
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusPaid          OrderStatus = "paid"
	OrderStatusProcessing    OrderStatus = "processing"
	OrderStatusShipped       OrderStatus = "shipped"
	OrderStatusDelivered     OrderStatus = "delivered"
	OrderStatusCancelled     OrderStatus = "cancelled"
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
)

var orderStatuses = set[OrderStatus]{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusPaymentFailed,
}

// gatewayTransitions are driven by payment callbacks only.
var gatewayTransitions = map[OrderStatus]set[OrderStatus]{
	OrderStatusPending: {OrderStatusPaid, OrderStatusPaymentFailed},
}

// operatorTransitions are driven by staff updating an order.
var operatorTransitions = map[OrderStatus]set[OrderStatus]{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

func (o OrderStatus) String() string { return string(o) }
func (o OrderStatus) IsValid() bool  { return orderStatuses.has(o) }

// IsTerminal reports whether no further transition is defined.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusPaymentFailed:
		return true
	}
	return false
}

// CanGatewayTransition reports whether a payment callback may move o to next.
func (o OrderStatus) CanGatewayTransition(next OrderStatus) bool {
	return gatewayTransitions[o].has(next)
}

// CanOperatorTransition reports whether staff may move o to next.
func (o OrderStatus) CanOperatorTransition(next OrderStatus) bool {
	return operatorTransitions[o].has(next)
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return orderStatuses.parse("order status", value)
}
