package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	approvalmetrics "otapproval/internal/approval/metrics"
	approvalservice "otapproval/internal/approval/service"
	approvalstore "otapproval/internal/approval/store"
	"otapproval/internal/overtime/evidence"
	overtimehandler "otapproval/internal/overtime/handler"
	overtimemetrics "otapproval/internal/overtime/metrics"
	overtimeservice "otapproval/internal/overtime/service"
	overtimestore "otapproval/internal/overtime/store"
	"otapproval/internal/platform/config"
	"otapproval/internal/platform/httpserver"
	"otapproval/internal/platform/logger"
	platformmetrics "otapproval/internal/platform/metrics"
	"otapproval/internal/platform/middleware"
	"otapproval/internal/reference"
	referencehandler "otapproval/internal/reference/handler"
	"otapproval/pkg/platform/audit/publisher"
	auditmemory "otapproval/pkg/platform/audit/store/memory"
	"otapproval/pkg/platform/httputil"
	"otapproval/pkg/platform/middleware/metadata"
	"otapproval/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	auditPublisher := publisher.NewPublisher(auditmemory.NewInMemoryStore(),
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	catalog := reference.NewSeededCatalog()
	authority := approvalservice.New(approvalstore.New(),
		approvalservice.WithTokenTTL(cfg.Approval.TokenTTL),
		approvalservice.WithLogger(log),
		approvalservice.WithMetrics(approvalmetrics.New()),
	)
	lifecycle := overtimeservice.New(
		overtimestore.New(),
		catalog,
		authority,
		evidence.New(evidence.WithLowAccuracyThreshold(cfg.Evidence.LowAccuracyThresholdM)),
		overtimeservice.WithLogger(log),
		overtimeservice.WithMetrics(overtimemetrics.New()),
		overtimeservice.WithAuditPublisher(auditPublisher),
		overtimeservice.WithLockAfterDecision(cfg.Approval.LockAfterDecision),
		overtimeservice.WithPublicBaseURL(cfg.PublicBaseURL),
	)

	if cfg.SeedSampleRequest {
		sample, err := lifecycle.SeedSample(ctx)
		if err != nil {
			return err
		}
		if sample != nil {
			log.Info("seeded sample request", "ot_request_id", sample.ID.String(), "doc_no", sample.DocNo)
		}
	}

	router := newRouter(cfg, log, platformmetrics.New())
	referencehandler.New(catalog, log).Register(router)
	overtimehandler.New(lifecycle, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting ot approval server", "addr", cfg.Addr, "public_base_url", cfg.PublicBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down ot approval server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(cfg config.Server, log *slog.Logger, m *platformmetrics.Metrics) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.LatencyMiddleware(m))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
