package audit

import (
	"time"

	id "otapproval/pkg/domain"
)

// EventCategory classifies audit events for retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers lifecycle decisions on a request.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers capability token use and refusals.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity such as evidence uploads.
	CategoryOperations EventCategory = "operations"
)

// Event is the process-wide audit record. The per-request audit trail lives
// on the request itself; these events feed logs and external sinks.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	RequestID id.RequestID
	Actor     string
	Action    string
	Decision  string
	Reason    string

	// CorrelationID is the HTTP request id.
	CorrelationID string
	ClientIP      string
	// Device is a short browser/OS summary of the caller's user agent.
	Device string
}

type AuditEvent string

const (
	EventRequestSubmitted  AuditEvent = "ot_request_submitted"
	EventStatusChanged     AuditEvent = "ot_status_changed"
	EventEvidenceSubmitted AuditEvent = "ot_evidence_submitted"
	EventTokensIssued      AuditEvent = "approval_tokens_issued"
	EventTokenConsumed     AuditEvent = "approval_token_consumed"
	EventTokenRejected     AuditEvent = "approval_token_rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRequestSubmitted:  CategoryCompliance,
	EventStatusChanged:     CategoryCompliance,
	EventTokenConsumed:     CategorySecurity,
	EventTokenRejected:     CategorySecurity,
	EventEvidenceSubmitted: CategoryOperations,
	EventTokensIssued:      CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
