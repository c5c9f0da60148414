package models

import (
	"time"

	"otapproval/internal/reference"
	id "otapproval/pkg/domain"
	dErrors "otapproval/pkg/domain-errors"
)

// Status is the lifecycle state of an OT request.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusNeedsInfo Status = "needs_info"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusApproved, StatusRejected, StatusNeedsInfo:
		return true
	}
	return false
}

// IsDecided reports whether the status is a manager's final decision.
func (s Status) IsDecided() bool {
	return s == StatusApproved || s == StatusRejected
}

// StatusForAction maps an approval action to the status it produces.
func StatusForAction(action id.ApprovalAction) (Status, error) {
	switch action {
	case id.ActionApprove:
		return StatusApproved, nil
	case id.ActionReject:
		return StatusRejected, nil
	case id.ActionRequestInfo:
		return StatusNeedsInfo, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown approval action")
	}
}

// Audit actions other than status names.
const AuditActionSubmitted = "submitted"

// AuditEntry is an immutable lifecycle fact. Meta never carries raw note or
// evidence content.
type AuditEntry struct {
	ID        id.AuditEntryID `json:"id"`
	Actor     string          `json:"actor"`
	Action    string          `json:"action"`
	Meta      map[string]any  `json:"meta,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Request is the aggregate root for an overtime submission.
//
// Invariants:
//   - Status is one of submitted, approved, rejected, needs_info; new requests are submitted
//   - Identity, schedule, and consent fields are immutable after creation
//   - Evidences hold at most one record per EvidenceType
//   - AuditLog is append-only and starts with exactly one "submitted" entry
type Request struct {
	ID             id.RequestID      `json:"id"`
	DocNo          string            `json:"docNo"`
	CompanyID      string            `json:"companyId"`
	JobID          string            `json:"jobId"`
	Company        reference.Company `json:"company"`
	Job            reference.Job     `json:"job"`
	StartAt        string            `json:"startAt"`
	EndAt          string            `json:"endAt"`
	EmployeeName   string            `json:"employeeName"`
	EmployeeTitle  string            `json:"employeeTitle"`
	EmployeeEmail  string            `json:"employeeEmail"`
	ManagerName    string            `json:"managerName"`
	ManagerTitle   string            `json:"managerTitle"`
	ManagerEmail   string            `json:"managerEmail"`
	HREmail        string            `json:"hrEmail,omitempty"`
	Note           string            `json:"note,omitempty"`
	AttachmentName string            `json:"attachmentName,omitempty"`
	AttachmentSize *int64            `json:"attachmentSize,omitempty"`
	AttachmentType string            `json:"attachmentType,omitempty"`
	Consent        bool              `json:"consent"`
	ProofEnabled   bool              `json:"proofEnabled"`
	ProofConsent   bool              `json:"proofConsent"`
	Hours          float64           `json:"hours"`
	Status         Status            `json:"status"`
	Evidences      []EvidenceRecord  `json:"evidences"`
	AuditLog       []AuditEntry      `json:"auditLog"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// ReplaceEvidence stores record, replacing any existing record of the same
// type. Replacement keeps the prior slot; new types are appended.
func (r *Request) ReplaceEvidence(record EvidenceRecord, now time.Time) {
	for i := range r.Evidences {
		if r.Evidences[i].Type == record.Type {
			r.Evidences[i] = record
			r.UpdatedAt = now
			return
		}
	}
	r.Evidences = append(r.Evidences, record)
	r.UpdatedAt = now
}

// ApplyStatus overwrites the status and appends the matching audit entry.
func (r *Request) ApplyStatus(status Status, actor, reason string, now time.Time) {
	r.Status = status
	r.AuditLog = append(r.AuditLog, AuditEntry{
		ID:        id.NewAuditEntryID(),
		Actor:     actor,
		Action:    string(status),
		Meta:      map[string]any{"reason": reason},
		CreatedAt: now,
	})
	r.UpdatedAt = now
}

// Evidence returns the record for the given type, if any.
func (r *Request) Evidence(t EvidenceType) (EvidenceRecord, bool) {
	for _, e := range r.Evidences {
		if e.Type == t {
			return e, true
		}
	}
	return EvidenceRecord{}, false
}

// Clone returns a deep copy so stored state cannot be mutated by callers.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	if r.AttachmentSize != nil {
		size := *r.AttachmentSize
		out.AttachmentSize = &size
	}
	out.Evidences = make([]EvidenceRecord, len(r.Evidences))
	for i, e := range r.Evidences {
		out.Evidences[i] = e.clone()
	}
	out.AuditLog = make([]AuditEntry, len(r.AuditLog))
	for i, entry := range r.AuditLog {
		copied := entry
		if entry.Meta != nil {
			copied.Meta = make(map[string]any, len(entry.Meta))
			for k, v := range entry.Meta {
				copied.Meta[k] = v
			}
		}
		out.AuditLog[i] = copied
	}
	return &out
}
