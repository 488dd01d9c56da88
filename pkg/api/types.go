package api

import (
	"time"

	"github.com/campuscrave/campuscrave-client/pkg/enums"
	"github.com/shopspring/decimal"
)

// Order is the backend-authoritative order record. The client never invents
// transitions; it renders whatever the backend reports.
type Order struct {
	ID          int64             `json:"id"`
	StudentID   string            `json:"studentId"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	Status      enums.OrderStatus `json:"status"`
	CreatedAt   *time.Time        `json:"createdAt,omitempty"`
	AcceptedAt  *time.Time        `json:"acceptedAt,omitempty"`
	ReadyAt     *time.Time        `json:"readyAt,omitempty"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	Items       []OrderItem       `json:"items,omitempty"`
	PickupCode  string            `json:"pickupCode,omitempty"`
	Rating      *int              `json:"rating,omitempty"`
	Review      string            `json:"review,omitempty"`
}

// OrderItem mirrors the backend's order line shape.
type OrderItem struct {
	MenuItem MenuItemRef `json:"menuItem"`
	Quantity int         `json:"quantity"`
	Special  string      `json:"specialInstructions,omitempty"`
}

// MenuItemRef carries the subset of menu item fields the order endpoints use.
type MenuItemRef struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price,omitempty"`
	StallName string          `json:"stallName,omitempty"`
}

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	StudentID   string            `json:"studentId" validate:"required"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	Items       []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
}

type CreateOrderItem struct {
	MenuItem MenuItemRef `json:"menuItem"`
	Quantity int         `json:"quantity" validate:"required,min=1"`
	Special  string      `json:"specialInstructions,omitempty"`
}

// ShopStatus reports whether a stall is currently taking orders.
type ShopStatus struct {
	StallName string `json:"stallName"`
	Open      bool   `json:"open"`
}

// WaitTimeEstimate is the campus-wide queue estimate shown on the home page.
type WaitTimeEstimate struct {
	ActiveOrders int `json:"activeOrders"`
	WaitMinutes  int `json:"waitMinutes"`
}
