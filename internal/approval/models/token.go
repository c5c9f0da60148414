package models

import (
	"time"

	id "otapproval/pkg/domain"
	dErrors "otapproval/pkg/domain-errors"
)

// DefaultTokenTTL is how long an approval link stays usable.
const DefaultTokenTTL = 72 * time.Hour

// ApprovalToken is a single-use, single-purpose bearer capability that lets
// its holder apply one decision to one OT request.
//
// Invariants:
//   - Action is fixed at issuance and must match the attempted action
//   - UsedAt is set at most once; a used token never authorizes again
//   - A token past ExpiresAt is rejected whether or not it was used
//   - Secret is only populated on the value returned at issuance
type ApprovalToken struct {
	ID           id.TokenID        `json:"id"`
	RequestID    id.RequestID      `json:"requestId"`
	Action       id.ApprovalAction `json:"action"`
	Secret       string            `json:"-"`
	SecretDigest string            `json:"-"`
	ExpiresAt    time.Time         `json:"expiresAt"`
	UsedAt       *time.Time        `json:"usedAt"`
	CreatedAt    time.Time         `json:"createdAt"`
}

func NewApprovalToken(tokenID id.TokenID, requestID id.RequestID, action id.ApprovalAction, secret, digest string, now time.Time, ttl time.Duration) (*ApprovalToken, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request ID cannot be nil")
	}
	if !action.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid approval action")
	}
	if digest == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "secret digest cannot be empty")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "token ttl must be positive")
	}
	return &ApprovalToken{
		ID:           tokenID,
		RequestID:    requestID,
		Action:       action,
		Secret:       secret,
		SecretDigest: digest,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}, nil
}

func (t *ApprovalToken) IsUsed() bool {
	return t.UsedAt != nil
}

// IsExpired reports whether now is past the expiry instant.
func (t *ApprovalToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// ValidateFor checks that the token may authorize action at now. Checks run
// in a fixed order: action, then use, then expiry.
func (t *ApprovalToken) ValidateFor(action id.ApprovalAction, now time.Time) error {
	if t.Action != action {
		return dErrors.New(dErrors.CodeTokenActionMismatch, "this link is for a different action")
	}
	if t.IsUsed() {
		return dErrors.New(dErrors.CodeTokenAlreadyUsed, "this link has already been used")
	}
	if t.IsExpired(now) {
		return dErrors.New(dErrors.CodeTokenExpired, "this link has expired")
	}
	return nil
}

// MarkUsed records consumption. Calling it on a used token keeps the first
// timestamp.
func (t *ApprovalToken) MarkUsed(now time.Time) {
	if t.UsedAt != nil {
		return
	}
	used := now
	t.UsedAt = &used
}

// Redacted returns a copy without the plaintext secret.
func (t *ApprovalToken) Redacted() *ApprovalToken {
	out := *t
	out.Secret = ""
	if t.UsedAt != nil {
		used := *t.UsedAt
		out.UsedAt = &used
	}
	return &out
}
