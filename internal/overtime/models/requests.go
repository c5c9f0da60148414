package models

import (
	"fmt"
	"maps"
	"strings"

	id "otapproval/pkg/domain"
	dErrors "otapproval/pkg/domain-errors"
	"otapproval/pkg/email"
)

const (
	maxIdentityLength = 128
	maxNoteLength     = 2000
	maxEvidences      = 8
)

// SubmitRequest is the input for creating an OT request.
type SubmitRequest struct {
	CompanyID      string            `json:"companyId"`
	JobID          string            `json:"jobId"`
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
	Evidences      []EvidencePayload `json:"evidences"`
}

func (r *SubmitRequest) Normalize() {
	if r == nil {
		return
	}
	r.CompanyID = strings.TrimSpace(r.CompanyID)
	r.JobID = strings.TrimSpace(r.JobID)
	r.StartAt = strings.TrimSpace(r.StartAt)
	r.EndAt = strings.TrimSpace(r.EndAt)
	r.EmployeeName = strings.TrimSpace(r.EmployeeName)
	r.EmployeeTitle = strings.TrimSpace(r.EmployeeTitle)
	r.EmployeeEmail = email.Normalize(r.EmployeeEmail)
	r.ManagerName = strings.TrimSpace(r.ManagerName)
	r.ManagerTitle = strings.TrimSpace(r.ManagerTitle)
	r.ManagerEmail = email.Normalize(r.ManagerEmail)
	r.HREmail = email.Normalize(r.HREmail)
	r.AttachmentName = strings.TrimSpace(r.AttachmentName)
	r.AttachmentType = strings.TrimSpace(r.AttachmentType)
	for i := range r.Evidences {
		r.Evidences[i].Normalize()
	}
}

// Validate checks structure and consent. All problems are reported together
// as field errors.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	fields := r.structuralErrors()

	if !r.Consent {
		fields["consent"] = "consent is required"
	}
	if r.ProofEnabled && !r.ProofConsent {
		fields["proofConsent"] = "proof consent is required when proof capture is enabled"
	}
	return dErrors.Validation(fields)
}

func (r *SubmitRequest) structuralErrors() map[string]string {
	fields := map[string]string{}

	if len(r.Note) > maxNoteLength {
		fields["note"] = fmt.Sprintf("must be %d characters or less", maxNoteLength)
	}
	if len(r.Evidences) > maxEvidences {
		fields["evidences"] = "too many evidence records"
	}

	required := []struct{ name, value string }{
		{"companyId", r.CompanyID},
		{"jobId", r.JobID},
		{"startAt", r.StartAt},
		{"endAt", r.EndAt},
		{"employeeName", r.EmployeeName},
		{"employeeTitle", r.EmployeeTitle},
		{"employeeEmail", r.EmployeeEmail},
		{"managerName", r.ManagerName},
		{"managerTitle", r.ManagerTitle},
		{"managerEmail", r.ManagerEmail},
	}
	for _, f := range required {
		switch {
		case f.value == "":
			fields[f.name] = "is required"
		case len(f.value) > maxIdentityLength:
			fields[f.name] = fmt.Sprintf("must be %d characters or less", maxIdentityLength)
		}
	}

	for name, value := range map[string]string{
		"employeeEmail": r.EmployeeEmail,
		"managerEmail":  r.ManagerEmail,
		"hrEmail":       r.HREmail,
	} {
		if _, seen := fields[name]; seen || value == "" {
			continue
		}
		if !email.IsValid(value) {
			fields[name] = "must be a valid email address"
		}
	}

	if _, seen := fields["startAt"]; !seen {
		if _, ok := ParseTimestamp(r.StartAt); !ok {
			fields["startAt"] = "must be an ISO 8601 timestamp"
		}
	}
	if _, seen := fields["endAt"]; !seen {
		if _, ok := ParseTimestamp(r.EndAt); !ok {
			fields["endAt"] = "must be an ISO 8601 timestamp"
		}
	}
	if r.AttachmentSize != nil && *r.AttachmentSize < 0 {
		fields["attachmentSize"] = "must not be negative"
	}

	for i := range r.Evidences {
		prefix := fmt.Sprintf("evidences[%d].", i)
		for k, v := range r.Evidences[i].FieldErrors() {
			fields[prefix+k] = v
		}
	}
	return fields
}

func (p *EvidencePayload) Normalize() {
	if p == nil {
		return
	}
	p.Type = EvidenceType(strings.ToLower(strings.TrimSpace(string(p.Type))))
	if p.Photo != nil {
		p.Photo.URL = strings.TrimSpace(p.Photo.URL)
		p.Photo.Hash = strings.ToLower(strings.TrimSpace(p.Photo.Hash))
		p.Photo.CapturedAt = strings.TrimSpace(p.Photo.CapturedAt)
		p.Photo.MimeType = strings.ToLower(strings.TrimSpace(p.Photo.MimeType))
	}
	if p.Location != nil {
		p.Location.Timestamp = strings.TrimSpace(p.Location.Timestamp)
		p.Location.Source = LocationSource(strings.ToLower(strings.TrimSpace(string(p.Location.Source))))
	}
}

// Validate reports field errors for a standalone evidence submission.
func (p *EvidencePayload) Validate() error {
	if p == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return dErrors.Validation(p.FieldErrors())
}

// FieldErrors returns problems keyed by field path relative to the payload.
func (p *EvidencePayload) FieldErrors() map[string]string {
	fields := map[string]string{}
	if !p.Type.IsValid() {
		fields["type"] = "must be 'start' or 'end'"
	}
	if p.Photo != nil {
		maps.Copy(fields, prefixed("photo.", p.Photo.fieldErrors()))
	}
	if p.Location != nil {
		maps.Copy(fields, prefixed("location.", p.Location.fieldErrors()))
	}
	return fields
}

func (ph *Photo) fieldErrors() map[string]string {
	fields := map[string]string{}
	if ph.URL == "" {
		fields["url"] = "is required"
	}
	if ph.Hash == "" {
		fields["hash"] = "is required"
	}
	if ph.Size < 0 {
		fields["size"] = "must not be negative"
	}
	if ph.Width != nil && *ph.Width < 0 {
		fields["width"] = "must not be negative"
	}
	if ph.Height != nil && *ph.Height < 0 {
		fields["height"] = "must not be negative"
	}
	if ph.CapturedAt == "" {
		fields["capturedAt"] = "is required"
	}
	if ph.MimeType == "" {
		fields["mimeType"] = "is required"
	}
	return fields
}

func (l *Location) fieldErrors() map[string]string {
	fields := map[string]string{}
	if l.Lat < -90 || l.Lat > 90 {
		fields["lat"] = "must be between -90 and 90"
	}
	if l.Lng < -180 || l.Lng > 180 {
		fields["lng"] = "must be between -180 and 180"
	}
	if l.AccuracyM < 0 {
		fields["accuracyM"] = "must not be negative"
	}
	if l.Timestamp == "" {
		fields["timestamp"] = "is required"
	}
	if !l.Source.IsValid() {
		fields["source"] = "must be 'gps' or 'manual'"
	}
	return fields
}

func prefixed(prefix string, fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[prefix+k] = v
	}
	return out
}

// ApprovalActionRequest carries a manager's decision from an approval link.
type ApprovalActionRequest struct {
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
	Token     string `json:"token"`
	Reason    string `json:"reason,omitempty"`
}

func (r *ApprovalActionRequest) Normalize() {
	if r == nil {
		return
	}
	r.RequestID = strings.TrimSpace(r.RequestID)
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
	r.Token = strings.TrimSpace(r.Token)
	r.Reason = strings.TrimSpace(r.Reason)
}

// Follows validation order: Size -> Required -> Syntax.
func (r *ApprovalActionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	fields := map[string]string{}
	if len(r.Reason) > maxNoteLength {
		fields["reason"] = fmt.Sprintf("must be %d characters or less", maxNoteLength)
	}
	if r.RequestID == "" {
		fields["requestId"] = "is required"
	} else if _, err := id.ParseRequestID(r.RequestID); err != nil {
		fields["requestId"] = "must be a valid request id"
	}
	if r.Token == "" {
		fields["token"] = "is required"
	}
	if _, err := id.ParseApprovalAction(r.Action); err != nil {
		fields["action"] = "must be one of approve, reject, request-info"
	}
	return dErrors.Validation(fields)
}
