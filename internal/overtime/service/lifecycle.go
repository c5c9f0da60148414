package service

import (
	"context"
	"errors"
	"strconv"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	approvalmodels "otapproval/internal/approval/models"
	"otapproval/internal/overtime/models"
	"otapproval/internal/reference"
	id "otapproval/pkg/domain"
	dErrors "otapproval/pkg/domain-errors"
	"otapproval/pkg/platform/audit"
	"otapproval/pkg/platform/sentinel"
	"otapproval/pkg/requestcontext"
)

// Submit validates and stores a new OT request, then mints its three
// approval tokens.
func (s *Service) Submit(ctx context.Context, input *models.SubmitRequest) (submission *Submission, err error) {
	ctx, finish := s.startSpan(ctx, "submit")
	defer func() { finish(err) }()

	request, err := s.create(ctx, input)
	if err != nil {
		return nil, err
	}

	tokens, err := s.authority.IssueTokens(ctx, request.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue approval tokens",
			"request_id", requestcontext.RequestID(ctx),
			"ot_request_id", request.ID.String(),
			"error", err,
		)
		return nil, err
	}
	s.auditEmitter.emit(ctx, audit.EventTokensIssued, request.ID, request.EmployeeEmail, "", "")

	return &Submission{
		Request: request,
		Tokens:  tokens,
		Links:   s.links.Links(tokens),
	}, nil
}

func (s *Service) create(ctx context.Context, input *models.SubmitRequest) (*models.Request, error) {
	if input == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	company, job, err := s.resolveReferences(ctx, input.CompanyID, input.JobID)
	if err != nil {
		return nil, err
	}

	sites := s.catalog.SitesByCompany(ctx, company.ID)
	evidences := make([]models.EvidenceRecord, 0, len(input.Evidences))
	holder := &models.Request{Evidences: evidences}
	now := requestcontext.Now(ctx)
	for i, payload := range input.Evidences {
		record, err := s.assembler.Assemble(payload, sites)
		if err != nil {
			return nil, prefixFields(err, "evidences", i)
		}
		holder.ReplaceEvidence(record, now)
	}

	docNo, err := models.NewDocumentNumber(company.Code, job.JobCode)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate document number")
	}

	hrEmail := input.HREmail
	if hrEmail == "" {
		hrEmail = company.HREmail
	}

	request := &models.Request{
		ID:             id.NewRequestID(),
		DocNo:          docNo,
		CompanyID:      company.ID,
		JobID:          job.ID,
		Company:        *company,
		Job:            *job,
		StartAt:        input.StartAt,
		EndAt:          input.EndAt,
		EmployeeName:   input.EmployeeName,
		EmployeeTitle:  input.EmployeeTitle,
		EmployeeEmail:  input.EmployeeEmail,
		ManagerName:    input.ManagerName,
		ManagerTitle:   input.ManagerTitle,
		ManagerEmail:   input.ManagerEmail,
		HREmail:        hrEmail,
		Note:           input.Note,
		AttachmentName: input.AttachmentName,
		AttachmentSize: input.AttachmentSize,
		AttachmentType: input.AttachmentType,
		Consent:        input.Consent,
		ProofEnabled:   input.ProofEnabled,
		ProofConsent:   input.ProofConsent,
		Hours:          models.ComputeHours(input.StartAt, input.EndAt),
		Status:         models.StatusSubmitted,
		Evidences:      holder.Evidences,
		AuditLog: []models.AuditEntry{{
			ID:     id.NewAuditEntryID(),
			Actor:  input.EmployeeEmail,
			Action: models.AuditActionSubmitted,
			Meta: map[string]any{
				"managerEmail": input.ManagerEmail,
				"noteLength":   utf8.RuneCountInString(input.Note),
				"evidences":    len(input.Evidences),
			},
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, wrapRequestErr(err, "failed to create request")
	}

	s.metrics.IncrementSubmitted(company.Code, request.Hours)
	for _, record := range request.Evidences {
		s.metrics.IncrementEvidence(string(record.Type), geofenceLabel(record))
	}
	s.auditEmitter.emit(ctx, audit.EventRequestSubmitted, request.ID, request.EmployeeEmail, string(models.StatusSubmitted), "")
	s.logger.InfoContext(ctx, "ot request submitted",
		"request_id", requestcontext.RequestID(ctx),
		"ot_request_id", request.ID.String(),
		"doc_no", request.DocNo,
		"hours", request.Hours,
		"evidences", len(request.Evidences),
	)
	return request.Clone(), nil
}

func (s *Service) resolveReferences(ctx context.Context, companyID, jobID string) (*reference.Company, *reference.Job, error) {
	company, err := s.catalog.FindCompany(ctx, companyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeInvalidReference, "unknown company")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve company")
	}
	job, err := s.catalog.FindJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeInvalidReference, "unknown job")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve job")
	}
	if job.CompanyID != company.ID || !job.Active {
		return nil, nil, dErrors.New(dErrors.CodeInvalidReference, "job is not available for this company")
	}
	return company, job, nil
}

// Get returns the request with the given ID.
func (s *Service) Get(ctx context.Context, requestID id.RequestID) (request *models.Request, err error) {
	ctx, finish := s.startSpan(ctx, "get", attribute.String("ot.request_id", requestID.String()))
	defer func() { finish(err) }()

	request, err = s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err, "failed to load request")
	}
	return request, nil
}

// Tokens returns the request's approval tokens without their secrets.
func (s *Service) Tokens(ctx context.Context, requestID id.RequestID) ([]*approvalmodels.ApprovalToken, error) {
	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		return nil, wrapRequestErr(err, "failed to load request")
	}
	return s.authority.ListForRequest(ctx, requestID)
}

// SubmitEvidence assembles payload against the request company's sites and
// replaces any existing record of the same type.
func (s *Service) SubmitEvidence(ctx context.Context, requestID id.RequestID, payload models.EvidencePayload) (request *models.Request, err error) {
	ctx, finish := s.startSpan(ctx, "submit_evidence",
		attribute.String("ot.request_id", requestID.String()),
		attribute.String("ot.evidence_type", string(payload.Type)),
	)
	defer func() { finish(err) }()

	current, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err, "failed to load request")
	}
	record, err := s.assembler.Assemble(payload, s.catalog.SitesByCompany(ctx, current.CompanyID))
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	request, err = s.requests.Execute(ctx, requestID, nil, func(r *models.Request) {
		r.ReplaceEvidence(record, now)
	})
	if err != nil {
		return nil, wrapRequestErr(err, "failed to store evidence")
	}

	s.metrics.IncrementEvidence(string(record.Type), geofenceLabel(record))
	s.auditEmitter.emit(ctx, audit.EventEvidenceSubmitted, requestID, request.EmployeeEmail, string(record.Type), "")
	s.logger.InfoContext(ctx, "evidence recorded",
		"request_id", requestcontext.RequestID(ctx),
		"ot_request_id", requestID.String(),
		"type", string(record.Type),
		"in_geofence", record.InGeofence,
		"low_accuracy", record.LowAccuracy,
	)
	return request, nil
}

// UpdateStatus overwrites the status and appends an audit entry with the
// given actor and reason. It enforces no transition rules of its own.
func (s *Service) UpdateStatus(ctx context.Context, requestID id.RequestID, status models.Status, actor, reason string) (request *models.Request, err error) {
	ctx, finish := s.startSpan(ctx, "update_status",
		attribute.String("ot.request_id", requestID.String()),
		attribute.String("ot.status", string(status)),
	)
	defer func() { finish(err) }()

	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown status")
	}
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "actor is required")
	}
	now := requestcontext.Now(ctx)
	request, err = s.requests.Execute(ctx, requestID, nil, func(r *models.Request) {
		r.ApplyStatus(status, actor, reason, now)
	})
	if err != nil {
		return nil, wrapRequestErr(err, "failed to update request status")
	}
	s.afterTransition(ctx, request, actor, reason)
	return request, nil
}

// ApplyApprovalAction applies a manager decision carried by an approval
// link. The token is verified, the transition applied, and the token
// consumed as one critical section; a failed transition leaves the token
// usable.
func (s *Service) ApplyApprovalAction(ctx context.Context, input *models.ApprovalActionRequest) (request *models.Request, err error) {
	if input == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}
	requestID, err := id.ParseRequestID(input.RequestID)
	if err != nil {
		return nil, err
	}
	action, err := id.ParseApprovalAction(input.Action)
	if err != nil {
		return nil, err
	}
	status, err := models.StatusForAction(action)
	if err != nil {
		return nil, err
	}

	ctx, finish := s.startSpan(ctx, "apply_approval_action",
		attribute.String("ot.request_id", requestID.String()),
		attribute.String("ot.action", action.String()),
	)
	defer func() { finish(err) }()

	now := requestcontext.Now(ctx)
	_, err = s.authority.Redeem(ctx, input.Token, action, func(token *approvalmodels.ApprovalToken) error {
		if token.RequestID != requestID {
			return dErrors.New(dErrors.CodeTokenRequestMismatch, "this link belongs to a different request")
		}
		updated, err := s.requests.Execute(ctx, requestID,
			func(r *models.Request) error {
				if s.lockAfterDecision && r.Status.IsDecided() {
					return dErrors.New(dErrors.CodeConflict, "a decision has already been recorded for this request")
				}
				return nil
			},
			func(r *models.Request) {
				r.ApplyStatus(status, ManagerActor, input.Reason, now)
			},
		)
		if err != nil {
			return wrapRequestErr(err, "failed to apply decision")
		}
		request = updated
		return nil
	})
	if err != nil {
		s.auditEmitter.emit(ctx, audit.EventTokenRejected, requestID, ManagerActor, action.String(), string(dErrors.CodeOf(err)))
		s.logger.WarnContext(ctx, "approval action refused",
			"request_id", requestcontext.RequestID(ctx),
			"ot_request_id", requestID.String(),
			"action", action.String(),
			"reason", string(dErrors.CodeOf(err)),
		)
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.EventTokenConsumed, requestID, ManagerActor, action.String(), "")
	s.afterTransition(ctx, request, ManagerActor, input.Reason)
	return request, nil
}

func (s *Service) afterTransition(ctx context.Context, request *models.Request, actor, reason string) {
	s.metrics.IncrementTransition(string(request.Status))
	s.auditEmitter.emit(ctx, audit.EventStatusChanged, request.ID, actor, string(request.Status), reason)
	s.logger.InfoContext(ctx, "ot request status changed",
		"request_id", requestcontext.RequestID(ctx),
		"ot_request_id", request.ID.String(),
		"status", string(request.Status),
		"actor", actor,
	)
}

func geofenceLabel(record models.EvidenceRecord) string {
	switch {
	case record.Location == nil:
		return "none"
	case record.InGeofence:
		return "inside"
	default:
		return "outside"
	}
}

// prefixFields re-keys validation fields of an evidence payload under its
// position in the submission.
func prefixFields(err error, list string, index int) error {
	de, ok := dErrors.As(err)
	if !ok || de.Code != dErrors.CodeValidation {
		return err
	}
	fields := make(map[string]string, len(de.Fields))
	for k, v := range de.Fields {
		fields[list+"["+strconv.Itoa(index)+"]."+k] = v
	}
	return dErrors.Validation(fields)
}
