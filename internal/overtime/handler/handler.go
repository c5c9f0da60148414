package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	approvalmodels "otapproval/internal/approval/models"
	"otapproval/internal/overtime/models"
	"otapproval/internal/overtime/service"
	id "otapproval/pkg/domain"
	"otapproval/pkg/platform/httputil"
	"otapproval/pkg/requestcontext"
)

// Service defines the lifecycle operations exposed over HTTP.
type Service interface {
	Submit(ctx context.Context, input *models.SubmitRequest) (*service.Submission, error)
	Get(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	Tokens(ctx context.Context, requestID id.RequestID) ([]*approvalmodels.ApprovalToken, error)
	SubmitEvidence(ctx context.Context, requestID id.RequestID, payload models.EvidencePayload) (*models.Request, error)
	ApplyApprovalAction(ctx context.Context, input *models.ApprovalActionRequest) (*models.Request, error)
}

// Handler wires OT request and approval endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts OT request endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/public/ot-requests", func(r chi.Router) {
		r.Post("/", h.HandleSubmit)
		r.Get("/{id}", h.HandleGet)
		r.Get("/{id}/docno", h.HandleDocNo)
		r.Get("/{id}/summary", h.HandleSummary)
		r.Post("/{id}/evidence", h.HandleSubmitEvidence)
	})
	r.Post("/api/approve/confirm", h.HandleConfirm)
}

// HandleSubmit handles POST /api/public/ot-requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[models.SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	submission, err := h.service.Submit(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to submit ot request",
			"request_id", requestID,
			"company_id", req.CompanyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "ot request created",
		"request_id", requestID,
		"ot_request_id", submission.Request.ID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromSubmission(submission))
}

// HandleGet handles GET /api/public/ot-requests/{id}. The response carries
// the state of the request's approval tokens, never their secrets.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	request, ok := h.load(w, r)
	if !ok {
		return
	}
	tokens, err := h.service.Tokens(ctx, request.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list approval tokens",
			"request_id", requestcontext.RequestID(ctx),
			"ot_request_id", request.ID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &DetailResponse{Data: request, Tokens: fromTokenStates(tokens)})
}

// HandleDocNo handles GET /api/public/ot-requests/{id}/docno.
func (h *Handler) HandleDocNo(w http.ResponseWriter, r *http.Request) {
	request, ok := h.load(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dataResponse[DocNoResponse]{Data: DocNoResponse{DocNo: request.DocNo}})
}

// HandleSummary handles GET /api/public/ot-requests/{id}/summary and serves
// a short plain-text rendition of the request.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	request, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", request.DocNo+".txt"))
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, Summary(request))
}

// HandleSubmitEvidence handles POST /api/public/ot-requests/{id}/evidence.
func (h *Handler) HandleSubmitEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	otRequestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	payload, ok := httputil.DecodeAndPrepare[models.EvidencePayload](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	request, err := h.service.SubmitEvidence(ctx, otRequestID, *payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to submit evidence",
			"request_id", requestID,
			"ot_request_id", otRequestID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dataResponse[*models.Request]{Data: request})
}

// HandleConfirm handles POST /api/approve/confirm, the landing action of an
// approval link.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ApprovalActionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	request, err := h.service.ApplyApprovalAction(ctx, req)
	if err != nil {
		// token material is never logged
		h.logger.WarnContext(ctx, "approval action refused",
			"request_id", requestID,
			"ot_request_id", req.RequestID,
			"action", req.Action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "approval action applied",
		"request_id", requestID,
		"ot_request_id", request.ID.String(),
		"status", string(request.Status),
	)
	httputil.WriteJSON(w, http.StatusOK, dataResponse[*models.Request]{Data: request})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.Request, bool) {
	ctx := r.Context()
	otRequestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	request, err := h.service.Get(ctx, otRequestID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to load ot request",
			"request_id", requestcontext.RequestID(ctx),
			"ot_request_id", otRequestID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return nil, false
	}
	return request, true
}

// Summary renders the plain-text summary served for a request.
func Summary(request *models.Request) string {
	return "OT Request " + request.DocNo + "\n" +
		"Employee: " + request.EmployeeName + "\n" +
		"Hours: " + strconv.FormatFloat(request.Hours, 'f', -1, 64) + "\n" +
		"Status: " + string(request.Status) + "\n"
}
