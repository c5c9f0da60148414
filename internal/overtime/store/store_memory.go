package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"otapproval/internal/overtime/models"
	id "otapproval/pkg/domain"
	"otapproval/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when the requested request does not exist
// - Return ErrInvalidState when creating a request whose ID is already taken
// - Return validate callback errors unchanged
//
// Records crossing the store boundary are always deep copies, so callers can
// never mutate stored state outside Execute.

// InMemory stores OT requests for the lifetime of the process.
type InMemory struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*models.Request
}

func New() *InMemory {
	return &InMemory{
		requests: make(map[id.RequestID]*models.Request),
	}
}

func (s *InMemory) Create(_ context.Context, request *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[request.ID]; exists {
		return fmt.Errorf("request %s already exists: %w", request.ID, sentinel.ErrInvalidState)
	}
	s.requests[request.ID] = request.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if request, ok := s.requests[requestID]; ok {
		return request.Clone(), nil
	}
	return nil, fmt.Errorf("request not found: %w", sentinel.ErrNotFound)
}

// Execute runs validate then mutate against the stored request while holding
// the write lock. When validate fails nothing is mutated and its error is
// returned alongside a copy of the current record.
func (s *InMemory) Execute(_ context.Context, requestID id.RequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("request not found: %w", sentinel.ErrNotFound)
	}
	if validate != nil {
		if err := validate(request.Clone()); err != nil {
			return request.Clone(), err
		}
	}
	mutate(request)
	return request.Clone(), nil
}

// List returns every request, newest first.
func (s *InMemory) List(_ context.Context) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Request, 0, len(s.requests))
	for _, request := range s.requests {
		out = append(out, request.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Count returns the number of stored requests.
func (s *InMemory) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}
