// Package service is the OT request lifecycle controller. It validates
// submissions, persists requests, mints approval links, and applies manager
// decisions through the approval token authority.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	approvalmodels "otapproval/internal/approval/models"
	"otapproval/internal/geofence"
	"otapproval/internal/overtime/metrics"
	"otapproval/internal/overtime/models"
	"otapproval/internal/reference"
	id "otapproval/pkg/domain"
	"otapproval/pkg/platform/audit"
)

// ManagerActor is recorded as the actor of decisions made through approval
// links, since the link holder is not an authenticated identity.
const ManagerActor = "manager"

type RequestStore interface {
	Create(ctx context.Context, request *models.Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	Execute(ctx context.Context, requestID id.RequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error)
	Count(ctx context.Context) int
}

type Catalog interface {
	FindCompany(ctx context.Context, companyID string) (*reference.Company, error)
	FindJob(ctx context.Context, jobID string) (*reference.Job, error)
	SitesByCompany(ctx context.Context, companyID string) []geofence.Site
}

type TokenAuthority interface {
	IssueTokens(ctx context.Context, requestID id.RequestID) ([]*approvalmodels.ApprovalToken, error)
	Redeem(ctx context.Context, secret string, action id.ApprovalAction, apply func(*approvalmodels.ApprovalToken) error) (*approvalmodels.ApprovalToken, error)
	ListForRequest(ctx context.Context, requestID id.RequestID) ([]*approvalmodels.ApprovalToken, error)
}

type EvidenceAssembler interface {
	Assemble(payload models.EvidencePayload, sites []geofence.Site) (models.EvidenceRecord, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Submission is the result of a successful submit: the stored request, the
// freshly minted tokens (with secrets), and one approval link per action.
type Submission struct {
	Request *models.Request
	Tokens  []*approvalmodels.ApprovalToken
	Links   map[id.ApprovalAction]string
}

// Service orchestrates the OT request lifecycle.
type Service struct {
	requests          RequestStore
	catalog           Catalog
	authority         TokenAuthority
	assembler         EvidenceAssembler
	links             *LinkBuilder
	lockAfterDecision bool
	logger            *slog.Logger
	metrics           *metrics.Metrics
	auditEmitter      *auditEmitter
	tracer            trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditEmitter.publisher = publisher
	}
}

// WithLockAfterDecision refuses approval actions on requests that are already
// approved or rejected. The refused token stays unconsumed.
func WithLockAfterDecision(lock bool) Option {
	return func(s *Service) {
		s.lockAfterDecision = lock
	}
}

// WithPublicBaseURL sets the origin approval links point at.
func WithPublicBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.links = NewLinkBuilder(baseURL)
	}
}

func New(requests RequestStore, catalog Catalog, authority TokenAuthority, assembler EvidenceAssembler, opts ...Option) *Service {
	s := &Service{
		requests:     requests,
		catalog:      catalog,
		authority:    authority,
		assembler:    assembler,
		links:        NewLinkBuilder(""),
		logger:       slog.Default(),
		auditEmitter: &auditEmitter{},
		tracer:       otel.Tracer("otapproval/overtime"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.auditEmitter.logger = s.logger
	return s
}

func (s *Service) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "overtime."+operation, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.ObserveOperation(operation, start)
	}
}
