// Package favorites tracks the menu items a student has marked, persisted
// independently of the cart.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	pkgerrors "github.com/campuscrave/campuscrave-client/pkg/errors"
	"github.com/campuscrave/campuscrave-client/pkg/storage"
)

// Service is a persisted set of favorite item ids. Membership and toggle are
// the only operations; there is no ordering guarantee.
type Service struct {
	store storage.Store

	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewService rehydrates the favorites snapshot. Old snapshots stored full
// item objects rather than bare ids; both shapes are accepted.
func NewService(ctx context.Context, store storage.Store) (*Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage is required")
	}
	svc := &Service{store: store, ids: map[int64]struct{}{}}

	data, err := store.Load(ctx, storage.KeyFavorites)
	if errors.Is(err, storage.ErrNotFound) {
		return svc, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load favorites snapshot")
	}
	ids, err := decodeSnapshot(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode favorites snapshot")
	}
	for _, id := range ids {
		svc.ids[id] = struct{}{}
	}
	return svc, nil
}

// Toggle adds the id if absent and removes it if present, then persists.
func (s *Service) Toggle(ctx context.Context, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[itemID]; ok {
		delete(s.ids, itemID)
	} else {
		s.ids[itemID] = struct{}{}
	}
	return s.persistLocked(ctx)
}

// Contains reports membership.
func (s *Service) Contains(itemID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[itemID]
	return ok
}

// IDs returns the favorite ids, sorted for stable output.
func (s *Service) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Service) persistLocked(ctx context.Context) error {
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	data, err := json.Marshal(ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode favorites snapshot")
	}
	if err := s.store.Save(ctx, storage.KeyFavorites, data); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist favorites snapshot")
	}
	return nil
}

// decodeSnapshot accepts either a bare id array or the legacy array of item
// objects carrying an "id" field.
func decodeSnapshot(data []byte) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err == nil {
		return ids, nil
	}
	var objects []struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(objects))
	for _, obj := range objects {
		if obj.ID != 0 {
			out = append(out, obj.ID)
		}
	}
	return out, nil
}
