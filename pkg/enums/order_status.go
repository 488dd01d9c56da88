package enums

import "fmt"

// OrderStatus tracks the lifecycle of a campus order as reported by the
// backend. Values match the wire enumeration exactly.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusAccepted  OrderStatus = "ACCEPTED"
	OrderStatusCooking   OrderStatus = "COOKING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusCooking,
	OrderStatusReady,
	OrderStatusCompleted,
	OrderStatusRejected,
}

// advancePath is the happy-path progression a vendor drives an order through.
var advancePath = map[OrderStatus]OrderStatus{
	OrderStatusPending:  OrderStatusAccepted,
	OrderStatusAccepted: OrderStatusCooking,
	OrderStatusCooking:  OrderStatusReady,
	OrderStatusReady:    OrderStatusCompleted,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the order has left the live queue.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusRejected
}

// Next returns the status the vendor advances the order to, or false when the
// order is already terminal or unknown. The backend validates and commits the
// actual transition; this only names the intent.
func (s OrderStatus) Next() (OrderStatus, bool) {
	next, ok := advancePath[s]
	return next, ok
}

// LiveStatuses returns the set of non-terminal statuses in lifecycle order.
func LiveStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusAccepted,
		OrderStatusCooking,
		OrderStatusReady,
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
