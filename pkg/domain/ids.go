// Package domain holds shared domain primitives: typed identifiers and the
// approval action enum. Construct them with the Parse functions at trust
// boundaries; direct casts skip validation.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "otapproval/pkg/domain-errors"
)

// RequestID identifies an overtime request.
type RequestID uuid.UUID

// TokenID identifies an approval token record. It is not the bearer secret.
type TokenID uuid.UUID

// AuditEntryID identifies one audit trail entry.
type AuditEntryID uuid.UUID

// NewRequestID returns a fresh random request id.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewTokenID returns a fresh random token id.
func NewTokenID() TokenID { return TokenID(uuid.New()) }

// NewAuditEntryID returns a fresh random audit entry id.
func NewAuditEntryID() AuditEntryID { return AuditEntryID(uuid.New()) }

// ParseRequestID parses external input into a RequestID.
//
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s, "request id")
	return RequestID(u), err
}

// ParseTokenID parses external input into a TokenID.
func ParseTokenID(s string) (TokenID, error) {
	u, err := parseUUID(s, "token id")
	return TokenID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

func (id RequestID) String() string { return uuid.UUID(id).String() }
func (id RequestID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id RequestID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *RequestID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id TokenID) String() string { return uuid.UUID(id).String() }
func (id TokenID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id TokenID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *TokenID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id AuditEntryID) String() string { return uuid.UUID(id).String() }

func (id AuditEntryID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *AuditEntryID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
