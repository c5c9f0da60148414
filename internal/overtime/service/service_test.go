package service

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	approvalservice "otapproval/internal/approval/service"
	approvalstore "otapproval/internal/approval/store"
	"otapproval/internal/overtime/evidence"
	"otapproval/internal/overtime/metrics"
	"otapproval/internal/overtime/models"
	"otapproval/internal/overtime/store"
	"otapproval/internal/reference"
	id "otapproval/pkg/domain"
	dErrors "otapproval/pkg/domain-errors"
	"otapproval/pkg/platform/audit"
	"otapproval/pkg/platform/audit/publisher"
	auditmemory "otapproval/pkg/platform/audit/store/memory"
	"otapproval/pkg/requestcontext"
)

var docNoPattern = regexp.MustCompile(`^ACM-ENG-2024-\d{6}$`)

type ServiceSuite struct {
	suite.Suite
	now       time.Time
	ctx       context.Context
	requests  *store.InMemory
	authority *approvalservice.Authority
	auditLog  *auditmemory.InMemoryStore
	metrics   *metrics.Metrics
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.requests = store.New()
	s.authority = approvalservice.New(approvalstore.New())
	s.auditLog = auditmemory.NewInMemoryStore()
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.service = s.build()
}

func (s *ServiceSuite) build(opts ...Option) *Service {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithAuditPublisher(publisher.NewPublisher(s.auditLog)),
		WithPublicBaseURL("https://ot.example.test/"),
	}
	return New(s.requests, reference.NewSeededCatalog(), s.authority, evidence.New(), append(base, opts...)...)
}

func (s *ServiceSuite) validSubmit() *models.SubmitRequest {
	return &models.SubmitRequest{
		CompanyID:     "c-acme",
		JobID:         "j-acme-engi",
		StartAt:       "2024-03-10T18:00:00Z",
		EndAt:         "2024-03-10T22:00:00Z",
		EmployeeName:  "Dana Reyes",
		EmployeeTitle: "Engineer",
		EmployeeEmail: " Dana@Acme.test ",
		ManagerName:   "Alicia Keys",
		ManagerTitle:  "Project Lead",
		ManagerEmail:  "alicia@acme.test",
		Note:          "Release night",
		Consent:       true,
		Evidences: []models.EvidencePayload{{
			Type: models.EvidenceStart,
			Location: &models.Location{
				Lat: 13.7563, Lng: 100.5018, AccuracyM: 12,
				Timestamp: "2024-03-10T18:00:00Z",
				Source:    models.SourceGPS,
			},
		}},
	}
}

func (s *ServiceSuite) submit() *Submission {
	submission, err := s.service.Submit(s.ctx, s.validSubmit())
	s.Require().NoError(err)
	return submission
}

func (s *ServiceSuite) secretFor(submission *Submission, action id.ApprovalAction) string {
	for _, token := range submission.Tokens {
		if token.Action == action {
			return token.Secret
		}
	}
	s.FailNow("no token for action " + action.String())
	return ""
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.T().Helper()
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), err.Error())
}

func (s *ServiceSuite) auditActions(requestID id.RequestID) []string {
	events, err := s.auditLog.ListByRequest(context.Background(), requestID)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, event := range events {
		actions = append(actions, event.Action)
	}
	return actions
}

func (s *ServiceSuite) TestSubmit() {
	s.Run("stores the request and mints one token per action", func() {
		submission := s.submit()
		request := submission.Request

		s.Equal(models.StatusSubmitted, request.Status)
		s.Equal(4.0, request.Hours)
		s.Regexp(docNoPattern, request.DocNo)
		s.Equal("Acme Corp", request.Company.Name)
		s.Equal("ENG-2024", request.Job.JobCode)
		s.Equal("dana@acme.test", request.EmployeeEmail)
		s.Equal("hr@acme.test", request.HREmail)
		s.Equal(s.now, request.CreatedAt)

		s.Require().Len(request.AuditLog, 1)
		entry := request.AuditLog[0]
		s.Equal("dana@acme.test", entry.Actor)
		s.Equal(models.AuditActionSubmitted, entry.Action)
		s.Equal("alicia@acme.test", entry.Meta["managerEmail"])
		s.Equal(len("Release night"), entry.Meta["noteLength"])
		s.Equal(1, entry.Meta["evidences"])

		s.Require().Len(request.Evidences, 1)
		s.True(request.Evidences[0].InGeofence)
		s.False(request.Evidences[0].RiskOutOfBounds)
		s.Require().NotNil(request.Evidences[0].SiteID)
		s.Equal("site-acme-bkk", *request.Evidences[0].SiteID)

		s.Require().Len(submission.Tokens, 3)
		s.Len(submission.Links, 3)
		for _, token := range submission.Tokens {
			s.Equal(request.ID, token.RequestID)
			s.NotEmpty(token.Secret)
		}
	})

	s.Run("get returns what submit stored", func() {
		submission := s.submit()
		got, err := s.service.Get(s.ctx, submission.Request.ID)
		s.Require().NoError(err)
		s.Equal(submission.Request, got)
	})

	s.Run("explicit hr email wins over the company default", func() {
		input := s.validSubmit()
		input.HREmail = "payroll@acme.test"
		submission, err := s.service.Submit(s.ctx, input)
		s.Require().NoError(err)
		s.Equal("payroll@acme.test", submission.Request.HREmail)
	})

	s.Run("location outside every site is flagged as a risk", func() {
		input := s.validSubmit()
		input.Evidences[0].Location.Lat = 13.80
		submission, err := s.service.Submit(s.ctx, input)
		s.Require().NoError(err)
		record := submission.Request.Evidences[0]
		s.False(record.InGeofence)
		s.True(record.RiskOutOfBounds)
		s.Nil(record.SiteID)
	})

	s.Run("records metrics and audit events", func() {
		submission := s.submit()
		s.Equal([]string{
			string(audit.EventRequestSubmitted),
			string(audit.EventTokensIssued),
		}, s.auditActions(submission.Request.ID))
		s.GreaterOrEqual(testutil.ToFloat64(s.metrics.RequestsSubmitted.WithLabelValues("ACM")), 1.0)
	})
}

func (s *ServiceSuite) TestSubmitRejects() {
	s.Run("missing consent", func() {
		input := s.validSubmit()
		input.Consent = false
		_, err := s.service.Submit(s.ctx, input)
		s.requireCode(err, dErrors.CodeValidation)
		de, _ := dErrors.As(err)
		s.Contains(de.Fields, "consent")
	})

	s.Run("proof enabled without proof consent", func() {
		input := s.validSubmit()
		input.ProofEnabled = true
		_, err := s.service.Submit(s.ctx, input)
		s.requireCode(err, dErrors.CodeValidation)
		de, _ := dErrors.As(err)
		s.Contains(de.Fields, "proofConsent")
	})

	s.Run("unknown company", func() {
		input := s.validSubmit()
		input.CompanyID = "c-missing"
		_, err := s.service.Submit(s.ctx, input)
		s.requireCode(err, dErrors.CodeInvalidReference)
	})

	s.Run("unknown job", func() {
		input := s.validSubmit()
		input.JobID = "j-missing"
		_, err := s.service.Submit(s.ctx, input)
		s.requireCode(err, dErrors.CodeInvalidReference)
	})

	s.Run("job of another company", func() {
		input := s.validSubmit()
		input.JobID = "j-sun-site"
		_, err := s.service.Submit(s.ctx, input)
		s.requireCode(err, dErrors.CodeInvalidReference)
	})

	s.Run("nothing is stored on failure", func() {
		before := s.requests.Count(s.ctx)
		input := s.validSubmit()
		input.CompanyID = "c-missing"
		_, err := s.service.Submit(s.ctx, input)
		s.Require().Error(err)
		s.Equal(before, s.requests.Count(s.ctx))
	})
}

func (s *ServiceSuite) TestLinks() {
	submission := s.submit()
	for _, action := range id.ApprovalActions {
		link, ok := submission.Links[action]
		s.Require().True(ok, action.String())

		parsed, err := url.Parse(link)
		s.Require().NoError(err)
		s.Equal("ot.example.test", parsed.Host)
		s.Equal("/approve", parsed.Path)
		s.Equal(submission.Request.ID.String(), parsed.Query().Get("requestId"))
		s.Equal(action.String(), parsed.Query().Get("action"))
		s.Equal(s.secretFor(submission, action), parsed.Query().Get("token"))
	}
}

func (s *ServiceSuite) TestApplyApprovalAction() {
	s.Run("approve records the manager decision once", func() {
		submission := s.submit()
		secret := s.secretFor(submission, id.ActionApprove)

		request, err := s.service.ApplyApprovalAction(s.ctx, &models.ApprovalActionRequest{
			RequestID: submission.Request.ID.String(),
			Action:    "APPROVE",
			Token:     secret,
			Reason:    "ok",
		})
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, request.Status)
		s.Require().Len(request.AuditLog, 2)
		s.Equal(ManagerActor, request.AuditLog[1].Actor)
		s.Equal(string(models.StatusApproved), request.AuditLog[1].Action)
		s.Equal("ok", request.AuditLog[1].Meta["reason"])

		_, err = s.service.ApplyApprovalAction(s.ctx, &models.ApprovalActionRequest{
			RequestID: submission.Request.ID.String(),
			Action:    "approve",
			Token:     secret,
		})
		s.requireCode(err, dErrors.CodeTokenAlreadyUsed)

		stored, err := s.service.Get(s.ctx, submission.Request.ID)
		s.Require().NoError(err)
		s.Len(stored.AuditLog, 2)
	})

	s.Run("sibling tokens stay usable after a decision", func() {
		submission := s.submit()
		_, err := s.service.ApplyApprovalAction(s.ctx, &models.ApprovalActionRequest{
			RequestID: submission.Request.ID.String(),
			Action:    "approve",
			Token:     s.secretFor(submission, id.ActionApprove),
		})
		s.Require().NoError(err)

		request, err := s.service.ApplyApprovalAction(s.ctx, &models.ApprovalActionRequest{
			RequestID: submission.Request.ID.String(),
			Action:    "reject",
			Token:     s.secretFor(submission, id.ActionReject),
			Reason:    "changed my mind",
		})
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, request.Status)
		s.Len(request.AuditLog, 3)
	})

	s.Run("token used for a different action", func() {
		submission := s.submit()
		_, err := s.service.ApplyApprovalAction(s.ctx, &models.ApprovalActionRequest{
			RequestID: submission.Request.ID.String(),
			Action:    "approve",
			Token:     s.secretFor(submission, id.ActionReject),
		})
		s.requireCode(err, dErrors.CodeTokenActionMismatch)
	})

	s.Run("token of another request", func() {
		first := s.submit()
		second := s.submit()
		_, err := s.service.ApplyApprovalAction(s.ctx, &models.ApprovalActionRequest{
			RequestID: second.Request.ID.String(),
			Action:    "approve",
			Token:     s.secretFor(first, id.ActionApprove),
		})
		s.requireCode(err, dErrors.CodeTokenRequestMismatch)

		untouched, err := s.service.Get(s.ctx, second.Request.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusSubmitted, untouched.Status)

		// the refused token is still good for its own request
		_, err = s.service.ApplyApprovalAction(s.ctx, &models.ApprovalActionRequest{
			RequestID: first.Request.ID.String(),
			Action:    "approve",
			Token:     s.secretFor(first, id.ActionApprove),
		})
		s.NoError(err)
	})

	s.Run("unknown token", func() {
		submission := s.submit()
		_, err := s.service.ApplyApprovalAction(s.ctx, &models.ApprovalActionRequest{
			RequestID: submission.Request.ID.String(),
			Action:    "approve",
			Token:     "not-a-real-token",
		})
		s.requireCode(err, dErrors.CodeTokenNotFound)
		s.Contains(s.auditActions(submission.Request.ID), string(audit.EventTokenRejected))
	})

	s.Run("expired token", func() {
		submission := s.submit()
		later := requestcontext.WithTime(context.Background(), s.now.Add(73*time.Hour))
		_, err := s.service.ApplyApprovalAction(later, &models.ApprovalActionRequest{
			RequestID: submission.Request.ID.String(),
			Action:    "request-info",
			Token:     s.secretFor(submission, id.ActionRequestInfo),
		})
		s.requireCode(err, dErrors.CodeTokenExpired)
	})

	s.Run("malformed input", func() {
		_, err := s.service.ApplyApprovalAction(s.ctx, &models.ApprovalActionRequest{
			RequestID: "not-a-uuid",
			Action:    "approve",
			Token:     "x",
		})
		s.requireCode(err, dErrors.CodeValidation)
	})
}

func (s *ServiceSuite) TestLockAfterDecision() {
	s.service = s.build(WithLockAfterDecision(true))
	submission := s.submit()

	_, err := s.service.ApplyApprovalAction(s.ctx, &models.ApprovalActionRequest{
		RequestID: submission.Request.ID.String(),
		Action:    "approve",
		Token:     s.secretFor(submission, id.ActionApprove),
	})
	s.Require().NoError(err)

	rejectSecret := s.secretFor(submission, id.ActionReject)
	_, err = s.service.ApplyApprovalAction(s.ctx, &models.ApprovalActionRequest{
		RequestID: submission.Request.ID.String(),
		Action:    "reject",
		Token:     rejectSecret,
	})
	s.requireCode(err, dErrors.CodeConflict)

	_, err = s.authority.Verify(s.ctx, rejectSecret, id.ActionReject)
	s.NoError(err, "a refused decision must not consume the token")
}

func (s *ServiceSuite) TestSubmitEvidence() {
	submission := s.submit()

	s.Run("replaces the record of the same type", func() {
		request, err := s.service.SubmitEvidence(s.ctx, submission.Request.ID, models.EvidencePayload{
			Type: "START",
			Location: &models.Location{
				Lat: 13.80, Lng: 100.5018, AccuracyM: 80,
				Timestamp: "2024-03-10T18:05:00Z",
				Source:    models.SourceManual,
			},
		})
		s.Require().NoError(err)
		s.Require().Len(request.Evidences, 1)
		record := request.Evidences[0]
		s.Equal(models.EvidenceStart, record.Type)
		s.False(record.InGeofence)
		s.True(record.LowAccuracy)
		s.True(record.RiskOutOfBounds)
	})

	s.Run("appends a new type", func() {
		request, err := s.service.SubmitEvidence(s.ctx, submission.Request.ID, models.EvidencePayload{
			Type: models.EvidenceEnd,
		})
		s.Require().NoError(err)
		s.Require().Len(request.Evidences, 2)
		end, ok := request.Evidence(models.EvidenceEnd)
		s.Require().True(ok)
		s.False(end.InGeofence)
		s.False(end.RiskOutOfBounds)
	})

	s.Run("unknown request", func() {
		_, err := s.service.SubmitEvidence(s.ctx, id.NewRequestID(), models.EvidencePayload{Type: models.EvidenceEnd})
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("invalid payload", func() {
		_, err := s.service.SubmitEvidence(s.ctx, submission.Request.ID, models.EvidencePayload{Type: "middle"})
		s.requireCode(err, dErrors.CodeValidation)
	})
}

func (s *ServiceSuite) TestUpdateStatus() {
	submission := s.submit()

	request, err := s.service.UpdateStatus(s.ctx, submission.Request.ID, models.StatusNeedsInfo, "hr@acme.test", "missing timesheet")
	s.Require().NoError(err)
	s.Equal(models.StatusNeedsInfo, request.Status)
	s.Equal("hr@acme.test", request.AuditLog[1].Actor)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StatusTransitions.WithLabelValues("needs_info")))

	_, err = s.service.UpdateStatus(s.ctx, submission.Request.ID, models.Status("archived"), "hr@acme.test", "")
	s.requireCode(err, dErrors.CodeInvalidInput)

	_, err = s.service.UpdateStatus(s.ctx, id.NewRequestID(), models.StatusApproved, "hr@acme.test", "")
	s.requireCode(err, dErrors.CodeNotFound)
}

func (s *ServiceSuite) TestTokens() {
	submission := s.submit()

	tokens, err := s.service.Tokens(s.ctx, submission.Request.ID)
	s.Require().NoError(err)
	s.Require().Len(tokens, 3)
	for _, token := range tokens {
		s.Empty(token.Secret)
	}

	_, err = s.service.Tokens(s.ctx, id.NewRequestID())
	s.requireCode(err, dErrors.CodeNotFound)
}

func (s *ServiceSuite) TestSeedSample() {
	request, err := s.service.SeedSample(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(request)

	s.Equal(models.StatusApproved, request.Status)
	s.Equal(4.0, request.Hours)
	s.Equal("Ethan Carter", request.EmployeeName)
	s.Len(request.Evidences, 2)
	s.Require().Len(request.AuditLog, 2)
	s.Equal("alicia@acme.test", request.AuditLog[1].Actor)

	tokens, err := s.service.Tokens(s.ctx, request.ID)
	s.Require().NoError(err)
	s.Empty(tokens)

	again, err := s.service.SeedSample(s.ctx)
	s.Require().NoError(err)
	s.Nil(again)
	s.Equal(1, s.requests.Count(s.ctx))
}
