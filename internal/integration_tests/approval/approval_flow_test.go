package approval

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	approvalmetrics "otapproval/internal/approval/metrics"
	approvalservice "otapproval/internal/approval/service"
	approvalstore "otapproval/internal/approval/store"
	"otapproval/internal/overtime/evidence"
	overtimehandler "otapproval/internal/overtime/handler"
	overtimemetrics "otapproval/internal/overtime/metrics"
	"otapproval/internal/overtime/models"
	overtimeservice "otapproval/internal/overtime/service"
	overtimestore "otapproval/internal/overtime/store"
	"otapproval/internal/platform/middleware"
	"otapproval/internal/reference"
	referencehandler "otapproval/internal/reference/handler"
	id "otapproval/pkg/domain"
	"otapproval/pkg/platform/audit"
	"otapproval/pkg/platform/audit/publisher"
	auditmemory "otapproval/pkg/platform/audit/store/memory"
	"otapproval/pkg/platform/middleware/metadata"
	"otapproval/pkg/testutil"
)

type flowEnv struct {
	router   http.Handler
	auditLog *auditmemory.InMemoryStore
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	auditLog := auditmemory.NewInMemoryStore()

	catalog := reference.NewSeededCatalog()
	authority := approvalservice.New(approvalstore.New(),
		approvalservice.WithLogger(logger),
		approvalservice.WithMetrics(approvalmetrics.NewWith(reg)),
	)
	lifecycle := overtimeservice.New(overtimestore.New(), catalog, authority, evidence.New(),
		overtimeservice.WithLogger(logger),
		overtimeservice.WithMetrics(overtimemetrics.NewWith(reg)),
		overtimeservice.WithAuditPublisher(publisher.NewPublisher(auditLog)),
		overtimeservice.WithPublicBaseURL("https://ot.example.test"),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	referencehandler.New(catalog, logger).Register(r)
	overtimehandler.New(lifecycle, logger).Register(r)
	return &flowEnv{router: r, auditLog: auditLog}
}

func submitBody(startAt, endAt string) map[string]any {
	return map[string]any{
		"companyId":     "c-acme",
		"jobId":         "j-acme-engi",
		"startAt":       startAt,
		"endAt":         endAt,
		"employeeName":  "Dana Reyes",
		"employeeTitle": "Engineer",
		"employeeEmail": "dana@acme.test",
		"managerName":   "Alicia Keys",
		"managerTitle":  "Project Lead",
		"managerEmail":  "alicia@acme.test",
		"consent":       true,
		"evidences": []map[string]any{{
			"type": "start",
			"location": map[string]any{
				"lat": 13.7563, "lng": 100.5018, "accuracyM": 15,
				"timestamp": startAt, "source": "gps",
			},
		}},
	}
}

// linkParams extracts what an approval page would post back from a link.
func linkParams(t *testing.T, link string) (requestID, action, token string) {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	q := parsed.Query()
	return q.Get("requestId"), q.Get("action"), q.Get("token")
}

func (e *flowEnv) confirm(t *testing.T, link, reason string, at time.Time) *http.Response {
	t.Helper()
	requestID, action, token := linkParams(t, link)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/approve/confirm", map[string]string{
		"requestId": requestID,
		"action":    action,
		"token":     token,
		"reason":    reason,
	})
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	if !at.IsZero() {
		req = testutil.WithRequestTime(req, at)
	}
	return testutil.DoRequest(e.router, req).Result()
}

func TestApprovalFlow(t *testing.T) {
	env := newFlowEnv(t)

	var created overtimehandler.SubmitResponse
	testutil.Given(t, "an employee submitted a four hour request", func(t *testing.T) {
		rr := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/public/ot-requests",
			submitBody("2024-03-10T18:00:00Z", "2024-03-10T22:00:00Z")))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		created = *testutil.UnmarshalResponse[overtimehandler.SubmitResponse](t, rr)

		require.NotNil(t, created.Data)
		assert.Equal(t, 4.0, created.Data.Hours)
		assert.Regexp(t, `^ACM-ENG-2024-\d{6}$`, created.Data.DocNo)
		assert.Len(t, created.Tokens, 3)
		assert.Len(t, created.Links, 3)
	})
	require.NotNil(t, created.Data)

	testutil.When(t, "the manager follows the approve link", func(t *testing.T) {
		resp := env.confirm(t, created.Links["approve"], "ok", time.Time{})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	testutil.Then(t, "the request is approved with a manager audit entry", func(t *testing.T) {
		rr := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodGet,
			"/api/public/ot-requests/"+created.Data.ID.String(), nil))
		testutil.AssertStatus(t, rr, http.StatusOK)
		got := testutil.UnmarshalResponse[struct {
			Data models.Request `json:"data"`
		}](t, rr)
		assert.Equal(t, models.StatusApproved, got.Data.Status)
		require.Len(t, got.Data.AuditLog, 2)
		assert.Equal(t, overtimeservice.ManagerActor, got.Data.AuditLog[1].Actor)
		assert.Equal(t, "ok", got.Data.AuditLog[1].Meta["reason"])
	})

	testutil.Then(t, "the approve link cannot be replayed", func(t *testing.T) {
		resp := env.confirm(t, created.Links["approve"], "", time.Time{})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	testutil.Then(t, "the platform audit trail records the approver's device", func(t *testing.T) {
		events, err := env.auditLog.ListByRequest(context.Background(), created.Data.ID)
		require.NoError(t, err)
		var consumed *audit.Event
		for i := range events {
			if events[i].Action == string(audit.EventTokenConsumed) {
				consumed = &events[i]
			}
		}
		require.NotNil(t, consumed)
		assert.Contains(t, consumed.Device, "Chrome")
		assert.NotEmpty(t, consumed.CorrelationID)
	})
}

func TestApprovalFlow_ExpiredLink(t *testing.T) {
	env := newFlowEnv(t)
	now := time.Now()

	rr := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/public/ot-requests",
		submitBody("2024-03-10T18:00:00Z", "2024-03-10T20:30:00Z")))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[overtimehandler.SubmitResponse](t, rr)
	assert.Equal(t, 2.5, created.Data.Hours)

	resp := env.confirm(t, created.Links[id.ActionRequestInfo.String()], "", now.Add(73*time.Hour))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestApprovalFlow_ReferenceLookups(t *testing.T) {
	env := newFlowEnv(t)

	rr := testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodGet, "/api/public/autocomplete/jobs?company_id=c-acme&q=eng", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	jobs := testutil.UnmarshalResponse[struct {
		Data []reference.Option `json:"data"`
	}](t, rr)
	require.Len(t, jobs.Data, 1)
	assert.Equal(t, "j-acme-engi", jobs.Data[0].ID)

	rr = testutil.DoRequest(env.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/public/ot-requests",
		map[string]any{"companyId": "c-acme"}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "validation_error")
}
