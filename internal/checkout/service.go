// Package checkout turns the cart into a placed order.
package checkout

import (
	"context"
	"strings"
	"sync"

	"github.com/campuscrave/campuscrave-client/internal/cart"
	"github.com/campuscrave/campuscrave-client/pkg/api"
	pkgerrors "github.com/campuscrave/campuscrave-client/pkg/errors"
)

// OrderCreator is the slice of the backend client checkout depends on.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*api.Order, error)
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Cart    *cart.Service
	Backend OrderCreator
}

// Service serializes order placement: at most one checkout is in flight at a
// time, and the cart is cleared only after the backend confirms the order.
type Service struct {
	cart    *cart.Service
	backend OrderCreator

	mu       sync.Mutex
	inFlight bool
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart service is required")
	}
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backend client is required")
	}
	return &Service{cart: params.Cart, backend: params.Backend}, nil
}

// PlaceOrder serializes the current cart into an order-creation request. On
// success the cart is cleared and the confirmed order returned; on any
// failure the cart is left intact so the student can retry.
func (s *Service) PlaceOrder(ctx context.Context, studentID string) (*api.Order, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "student id is required")
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a checkout is already in flight")
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	lines := s.cart.Lines()
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	req := api.CreateOrderRequest{
		StudentID:   studentID,
		TotalAmount: s.cart.TotalPrice(),
		Items:       make([]api.CreateOrderItem, 0, len(lines)),
	}
	for _, line := range lines {
		req.Items = append(req.Items, api.CreateOrderItem{
			MenuItem: api.MenuItemRef{ID: line.ItemID},
			Quantity: line.Quantity,
			Special:  line.SpecialInstructions,
		})
	}

	order, err := s.backend.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.cart.Clear(ctx); err != nil {
		// The order is placed; a failed snapshot write must not hide that.
		return order, err
	}
	return order, nil
}
