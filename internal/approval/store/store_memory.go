package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"otapproval/internal/approval/models"
	id "otapproval/pkg/domain"
	"otapproval/pkg/platform/sentinel"
)

// Error Contract:
// - Return ErrNotFound when no token has the given digest
// - Return ErrInvalidState when a batch would overwrite an existing digest
// - Return validate callback errors unchanged
//
// Tokens are keyed by secret digest and never deleted. Stored tokens carry no
// plaintext secret, and every returned token is a copy.

// InMemory is the approval token registry.
type InMemory struct {
	mu        sync.RWMutex
	byDigest  map[string]*models.ApprovalToken
	byRequest map[id.RequestID][]string
}

func New() *InMemory {
	return &InMemory{
		byDigest:  make(map[string]*models.ApprovalToken),
		byRequest: make(map[id.RequestID][]string),
	}
}

// CreateBatch stores all tokens or none.
func (s *InMemory) CreateBatch(_ context.Context, tokens []*models.ApprovalToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range tokens {
		if _, exists := s.byDigest[token.SecretDigest]; exists {
			return fmt.Errorf("token digest collision: %w", sentinel.ErrInvalidState)
		}
	}
	for _, token := range tokens {
		s.byDigest[token.SecretDigest] = token.Redacted()
		s.byRequest[token.RequestID] = append(s.byRequest[token.RequestID], token.SecretDigest)
	}
	return nil
}

func (s *InMemory) FindByDigest(_ context.Context, digest string) (*models.ApprovalToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if token, ok := s.byDigest[digest]; ok {
		return token.Redacted(), nil
	}
	return nil, fmt.Errorf("approval token not found: %w", sentinel.ErrNotFound)
}

// ListByRequest returns the tokens issued for a request in issuance order.
func (s *InMemory) ListByRequest(_ context.Context, requestID id.RequestID) ([]*models.ApprovalToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	digests := s.byRequest[requestID]
	out := make([]*models.ApprovalToken, 0, len(digests))
	for _, digest := range digests {
		out = append(out, s.byDigest[digest].Redacted())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Execute validates and mutates the token with the given digest under the
// registry lock. On validation failure the current token is returned with
// the error so callers can log replay attempts.
func (s *InMemory) Execute(_ context.Context, digest string, validate func(*models.ApprovalToken) error, mutate func(*models.ApprovalToken)) (*models.ApprovalToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.byDigest[digest]
	if !ok {
		return nil, fmt.Errorf("approval token not found: %w", sentinel.ErrNotFound)
	}
	if validate != nil {
		if err := validate(token.Redacted()); err != nil {
			return token.Redacted(), err
		}
	}
	mutate(token)
	return token.Redacted(), nil
}
