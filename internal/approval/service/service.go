// Package service implements the approval token authority: it mints the
// three single-use links of a request and gates every decision on them.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"otapproval/internal/approval/metrics"
	"otapproval/internal/approval/models"
	"otapproval/internal/approval/secrets"
	id "otapproval/pkg/domain"
	dErrors "otapproval/pkg/domain-errors"
	"otapproval/pkg/platform/sentinel"
	"otapproval/pkg/requestcontext"
)

// Store is the token registry, keyed by secret digest.
type Store interface {
	CreateBatch(ctx context.Context, tokens []*models.ApprovalToken) error
	FindByDigest(ctx context.Context, digest string) (*models.ApprovalToken, error)
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]*models.ApprovalToken, error)
	Execute(ctx context.Context, digest string, validate func(*models.ApprovalToken) error, mutate func(*models.ApprovalToken)) (*models.ApprovalToken, error)
}

// Authority issues, verifies, and consumes approval tokens.
//
// Redemptions of the same secret are serialized by a per-digest lock held
// across verify, the caller's transition, and consumption. Redemptions of
// different secrets never contend.
type Authority struct {
	tokens  Store
	ttl     time.Duration
	locks   *keyedLocker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Authority.
type Option func(*Authority)

// WithTokenTTL sets how long issued tokens remain valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(a *Authority) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authority) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authority) {
		a.metrics = m
	}
}

func New(tokens Store, opts ...Option) *Authority {
	a := &Authority{
		tokens: tokens,
		ttl:    models.DefaultTokenTTL,
		locks:  newKeyedLocker(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TTL returns the configured token lifetime.
func (a *Authority) TTL() time.Duration {
	return a.ttl
}

// IssueTokens mints one token per approval action for requestID. The returned
// tokens are the only place the plaintext secrets ever appear.
func (a *Authority) IssueTokens(ctx context.Context, requestID id.RequestID) ([]*models.ApprovalToken, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request ID required")
	}
	now := requestcontext.Now(ctx)

	tokens := make([]*models.ApprovalToken, 0, len(id.ApprovalActions))
	for _, action := range id.ApprovalActions {
		secret, err := secrets.Generate()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate approval secret")
		}
		digest, err := secrets.Digest(secret)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to digest approval secret")
		}
		token, err := models.NewApprovalToken(id.NewTokenID(), requestID, action, secret, digest, now, a.ttl)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build approval token")
		}
		tokens = append(tokens, token)
	}

	if err := a.tokens.CreateBatch(ctx, tokens); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store approval tokens")
	}
	a.metrics.AddTokensIssued(len(tokens))
	a.logger.InfoContext(ctx, "approval tokens issued",
		"request_id", requestcontext.RequestID(ctx),
		"ot_request_id", requestID.String(),
		"count", len(tokens),
		"expires_at", now.Add(a.ttl),
	)
	return tokens, nil
}

// Verify checks secret against action without consuming it. Failures are
// reported in a fixed order: not found, action mismatch, already used,
// expired.
func (a *Authority) Verify(ctx context.Context, secret string, action id.ApprovalAction) (*models.ApprovalToken, error) {
	token, err := a.lookup(ctx, secret)
	if err != nil {
		return nil, err
	}
	if err := token.ValidateFor(action, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	return token, nil
}

// Consume marks the token used. It is idempotent: unknown or already used
// secrets are a no-op.
func (a *Authority) Consume(ctx context.Context, secret string) error {
	digest, err := secrets.Digest(secret)
	if err != nil {
		a.metrics.IncrementConsumeNoop()
		return nil
	}
	unlock := a.locks.Lock(digest)
	defer unlock()
	return a.consumeLocked(ctx, digest)
}

// Redeem is the authorization critical section. While the token's lock is
// held it verifies secret against action, runs apply, and consumes the token.
// If apply fails its error is returned and the token stays usable.
func (a *Authority) Redeem(ctx context.Context, secret string, action id.ApprovalAction, apply func(*models.ApprovalToken) error) (*models.ApprovalToken, error) {
	start := time.Now()
	token, err := a.redeem(ctx, secret, action, apply)
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	a.metrics.ObserveRedeem(action.String(), outcome, start)
	return token, err
}

func (a *Authority) redeem(ctx context.Context, secret string, action id.ApprovalAction, apply func(*models.ApprovalToken) error) (*models.ApprovalToken, error) {
	digest, err := secrets.Digest(secret)
	if err != nil {
		return nil, tokenNotFound()
	}
	unlock := a.locks.Lock(digest)
	defer unlock()

	now := requestcontext.Now(ctx)
	token, err := a.find(ctx, digest)
	if err != nil {
		return nil, err
	}
	if err := token.ValidateFor(action, now); err != nil {
		a.logger.WarnContext(ctx, "approval token rejected",
			"request_id", requestcontext.RequestID(ctx),
			"token_id", token.ID.String(),
			"action", action.String(),
			"reason", string(dErrors.CodeOf(err)),
		)
		return token, err
	}
	if apply != nil {
		if err := apply(token); err != nil {
			return token, err
		}
	}
	if err := a.consumeLocked(ctx, digest); err != nil {
		return nil, err
	}
	token.MarkUsed(now)
	return token, nil
}

// ListForRequest returns the request's tokens without secrets.
func (a *Authority) ListForRequest(ctx context.Context, requestID id.RequestID) ([]*models.ApprovalToken, error) {
	tokens, err := a.tokens.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list approval tokens")
	}
	return tokens, nil
}

func (a *Authority) consumeLocked(ctx context.Context, digest string) error {
	now := requestcontext.Now(ctx)
	var noop bool
	_, err := a.tokens.Execute(ctx, digest,
		func(t *models.ApprovalToken) error {
			noop = t.IsUsed()
			return nil
		},
		func(t *models.ApprovalToken) {
			t.MarkUsed(now)
		},
	)
	if errors.Is(err, sentinel.ErrNotFound) {
		a.metrics.IncrementConsumeNoop()
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume approval token")
	}
	if noop {
		a.metrics.IncrementConsumeNoop()
	}
	return nil
}

func (a *Authority) lookup(ctx context.Context, secret string) (*models.ApprovalToken, error) {
	digest, err := secrets.Digest(secret)
	if err != nil {
		return nil, tokenNotFound()
	}
	return a.find(ctx, digest)
}

func (a *Authority) find(ctx context.Context, digest string) (*models.ApprovalToken, error) {
	token, err := a.tokens.FindByDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, tokenNotFound()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load approval token")
	}
	return token, nil
}

func tokenNotFound() error {
	return dErrors.New(dErrors.CodeTokenNotFound, "approval link is not valid")
}
