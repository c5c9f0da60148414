package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"otapproval/internal/geofence"
	"otapproval/internal/reference"
	"otapproval/pkg/platform/httputil"
	"otapproval/pkg/requestcontext"
)

// Catalog defines the reference lookups exposed over HTTP.
type Catalog interface {
	SearchCompanies(ctx context.Context, query string) []reference.Option
	SearchJobs(ctx context.Context, companyID, query string) []reference.Option
	SitesByCompany(ctx context.Context, companyID string) []geofence.Site
}

// Handler serves autocomplete and site listing endpoints.
type Handler struct {
	catalog Catalog
	logger  *slog.Logger
}

func New(catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{catalog: catalog, logger: logger}
}

// Register mounts reference endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/public/autocomplete/companies", h.HandleSearchCompanies)
	r.Get("/api/public/autocomplete/jobs", h.HandleSearchJobs)
	r.Get("/api/public/company-sites", h.HandleCompanySites)
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// HandleSearchCompanies handles GET /api/public/autocomplete/companies?q=.
func (h *Handler) HandleSearchCompanies(w http.ResponseWriter, r *http.Request) {
	results := h.catalog.SearchCompanies(r.Context(), r.URL.Query().Get("q"))
	httputil.WriteJSON(w, http.StatusOK, listResponse[reference.Option]{Data: results})
}

// HandleSearchJobs handles GET /api/public/autocomplete/jobs?company_id=&q=.
func (h *Handler) HandleSearchJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	results := h.catalog.SearchJobs(r.Context(), query.Get("company_id"), query.Get("q"))
	httputil.WriteJSON(w, http.StatusOK, listResponse[reference.Option]{Data: results})
}

// HandleCompanySites handles GET /api/public/company-sites?company_id=.
// A missing company id yields an empty list rather than an error.
func (h *Handler) HandleCompanySites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		h.logger.DebugContext(ctx, "company sites requested without company_id",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteJSON(w, http.StatusOK, listResponse[geofence.Site]{Data: []geofence.Site{}})
		return
	}
	sites := h.catalog.SitesByCompany(ctx, companyID)
	httputil.WriteJSON(w, http.StatusOK, listResponse[geofence.Site]{Data: sites})
}
