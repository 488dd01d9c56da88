// Package cart is the single source of truth for what the student is about
// to order. It enforces the one-stall-per-cart rule and persists a snapshot
// on every mutation.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	pkgerrors "github.com/campuscrave/campuscrave-client/pkg/errors"
	"github.com/campuscrave/campuscrave-client/pkg/storage"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Storage storage.Store
}

// Service owns the in-memory cart and its pending stall conflict. All
// mutations happen under one lock; persistence is synchronous with the
// mutation so a restart never loses the latest state.
type Service struct {
	store storage.Store

	mu       sync.Mutex
	lines    []Line
	conflict *Conflict
}

// NewService builds a cart service and rehydrates the persisted snapshot.
// An absent snapshot means an empty cart.
func NewService(ctx context.Context, params ServiceParams) (*Service, error) {
	if params.Storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage is required")
	}
	svc := &Service{store: params.Storage}

	data, err := params.Storage.Load(ctx, storage.KeyCart)
	if errors.Is(err, storage.ErrNotFound) {
		return svc, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart snapshot")
	}
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart snapshot")
	}
	svc.lines = lines
	return svc, nil
}

// AddItem adds one unit of the item. If the cart already holds items from a
// different stall, nothing is mutated: the item becomes the pending conflict
// and a CodeVendorConflict error is returned for the caller to branch on.
// While a conflict is pending, further adds are rejected without overwriting
// the candidate.
func (s *Service) AddItem(ctx context.Context, item Item) error {
	if err := validate.Struct(item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item")
	}
	if item.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "item price cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflict != nil {
		return pkgerrors.New(pkgerrors.CodeVendorConflict, "a stall conflict is awaiting resolution")
	}

	if len(s.lines) > 0 && s.lines[0].StallName != item.StallName {
		s.conflict = &Conflict{
			Candidate:    lineFromItem(item),
			CurrentStall: s.lines[0].StallName,
		}
		return pkgerrors.New(pkgerrors.CodeVendorConflict, "cart holds items from another stall")
	}

	found := false
	for i := range s.lines {
		if s.lines[i].ItemID == item.ID {
			s.lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		s.lines = append(s.lines, lineFromItem(item))
	}
	return s.persistLocked(ctx)
}

// RemoveItem decrements the matching line by one unit and deletes it when the
// quantity reaches zero. An unknown id is a silent no-op by contract.
func (s *Service) RemoveItem(ctx context.Context, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ItemID != itemID {
			continue
		}
		s.lines[i].Quantity--
		if s.lines[i].Quantity <= 0 {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
		}
		return s.persistLocked(ctx)
	}
	return nil
}

// UpdateItem shallow-merges the provided fields into the matching line. An
// unknown id is a silent no-op by contract.
func (s *Service) UpdateItem(ctx context.Context, itemID int64, updates LineUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ItemID != itemID {
			continue
		}
		if updates.SpecialInstructions != nil {
			s.lines[i].SpecialInstructions = *updates.SpecialInstructions
		}
		if updates.NotesExpanded != nil {
			s.lines[i].NotesExpanded = *updates.NotesExpanded
		}
		return s.persistLocked(ctx)
	}
	return nil
}

// Clear empties the cart and persists the empty snapshot.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	return s.persistLocked(ctx)
}

// ResolveConflict replaces the entire cart with the pending candidate at
// quantity one and clears the conflict. Without a pending conflict it is a
// no-op.
func (s *Service) ResolveConflict(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflict == nil {
		return nil
	}
	s.lines = []Line{s.conflict.Candidate}
	s.conflict = nil
	return s.persistLocked(ctx)
}

// CancelConflict discards the pending candidate and leaves the cart as it
// was.
func (s *Service) CancelConflict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflict = nil
}

// Conflict returns a copy of the pending conflict, or nil.
func (s *Service) Conflict() *Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflict == nil {
		return nil
	}
	copied := *s.conflict
	return &copied
}

// Lines returns a copy of the current cart lines in insertion order.
func (s *Service) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// StallName returns the stall the cart currently belongs to, or "" when
// empty.
func (s *Service) StallName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) == 0 {
		return ""
	}
	return s.lines[0].StallName
}

// TotalItems is the sum of line quantities, recomputed from the lines.
func (s *Service) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, line := range s.lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice is the sum of price times quantity, recomputed from the lines.
func (s *Service) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

func (s *Service) persistLocked(ctx context.Context) error {
	lines := s.lines
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart snapshot")
	}
	if err := s.store.Save(ctx, storage.KeyCart, data); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist cart snapshot")
	}
	return nil
}
