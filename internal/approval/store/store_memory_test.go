package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"otapproval/internal/approval/models"
	id "otapproval/pkg/domain"
	"otapproval/pkg/platform/sentinel"
)

type InMemoryTokenStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemory
	now   time.Time
}

func TestInMemoryTokenStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryTokenStoreSuite))
}

func (s *InMemoryTokenStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New()
	s.now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryTokenStoreSuite) batch(requestID id.RequestID, prefix string) []*models.ApprovalToken {
	tokens := make([]*models.ApprovalToken, 0, len(id.ApprovalActions))
	for i, action := range id.ApprovalActions {
		token, err := models.NewApprovalToken(id.NewTokenID(), requestID, action,
			prefix+"-secret-"+action.String(), prefix+"-digest-"+action.String(),
			s.now.Add(time.Duration(i)*time.Millisecond), time.Hour)
		s.Require().NoError(err)
		tokens = append(tokens, token)
	}
	return tokens
}

func (s *InMemoryTokenStoreSuite) TestCreateBatch() {
	s.Run("stores without plaintext secrets", func() {
		requestID := id.NewRequestID()
		s.Require().NoError(s.store.CreateBatch(s.ctx, s.batch(requestID, "a")))

		token, err := s.store.FindByDigest(s.ctx, "a-digest-approve")
		s.Require().NoError(err)
		s.Equal(id.ActionApprove, token.Action)
		s.Empty(token.Secret)
	})

	s.Run("digest collision stores nothing", func() {
		requestID := id.NewRequestID()
		tokens := s.batch(requestID, "b")
		tokens[2].SecretDigest = "a-digest-approve"
		err := s.store.CreateBatch(s.ctx, tokens)
		s.True(errors.Is(err, sentinel.ErrInvalidState))

		_, err = s.store.FindByDigest(s.ctx, "b-digest-approve")
		s.True(errors.Is(err, sentinel.ErrNotFound))
		listed, err := s.store.ListByRequest(s.ctx, requestID)
		s.Require().NoError(err)
		s.Empty(listed)
	})
}

func (s *InMemoryTokenStoreSuite) TestListByRequest() {
	requestID := id.NewRequestID()
	s.Require().NoError(s.store.CreateBatch(s.ctx, s.batch(requestID, "c")))
	s.Require().NoError(s.store.CreateBatch(s.ctx, s.batch(id.NewRequestID(), "d")))

	tokens, err := s.store.ListByRequest(s.ctx, requestID)
	s.Require().NoError(err)
	s.Require().Len(tokens, 3)
	for i, action := range id.ApprovalActions {
		s.Equal(action, tokens[i].Action)
		s.Equal(requestID, tokens[i].RequestID)
	}
}

func (s *InMemoryTokenStoreSuite) TestExecute() {
	requestID := id.NewRequestID()
	s.Require().NoError(s.store.CreateBatch(s.ctx, s.batch(requestID, "e")))

	s.Run("fresh token can be consumed once", func() {
		consumed, err := s.store.Execute(s.ctx, "e-digest-reject",
			func(t *models.ApprovalToken) error { return t.ValidateFor(id.ActionReject, s.now) },
			func(t *models.ApprovalToken) { t.MarkUsed(s.now) },
		)
		s.Require().NoError(err)
		s.True(consumed.IsUsed())

		replay, err := s.store.Execute(s.ctx, "e-digest-reject",
			func(t *models.ApprovalToken) error { return t.ValidateFor(id.ActionReject, s.now) },
			func(t *models.ApprovalToken) { t.MarkUsed(s.now) },
		)
		s.Require().Error(err)
		s.NotNil(replay)
	})

	s.Run("returned copies do not alias the registry", func() {
		token, err := s.store.FindByDigest(s.ctx, "e-digest-approve")
		s.Require().NoError(err)
		token.MarkUsed(s.now)

		again, err := s.store.FindByDigest(s.ctx, "e-digest-approve")
		s.Require().NoError(err)
		s.False(again.IsUsed())
	})

	s.Run("missing digest", func() {
		_, err := s.store.Execute(s.ctx, "missing", nil, func(*models.ApprovalToken) {})
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})
}
