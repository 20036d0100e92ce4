package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"campus-resource-monitor/api/internal/core"
	"campus-resource-monitor/api/internal/middleware"
	"campus-resource-monitor/api/internal/models"
	"campus-resource-monitor/api/internal/repos"
	"campus-resource-monitor/api/internal/stream"
	"campus-resource-monitor/shared/authx"
	"campus-resource-monitor/shared/cachex"
	"campus-resource-monitor/shared/config"
	"campus-resource-monitor/shared/dbx"
	"campus-resource-monitor/shared/events"
	"campus-resource-monitor/shared/httpx"
	"campus-resource-monitor/shared/logx"
	"campus-resource-monitor/shared/metricsx"
	"campus-resource-monitor/shared/observability"
)

type statusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Env     string `json:"env,omitempty"`
	Version string `json:"version,omitempty"`
}

type categorySummary struct {
	Category  models.Category           `json:"category"`
	Name      string                    `json:"name"`
	Unit      string                    `json:"unit"`
	Color     string                    `json:"color"`
	Buildings []models.BuildingSnapshot `json:"buildings"`
	Readings  map[string]models.Reading `json:"readings"`
	Stats     *models.CampusStats       `json:"stats,omitempty"`
}

func main() {
	cfg, readyProblems := config.Load("api", 8080)
	version := strings.TrimSpace(os.Getenv("VERSION"))
	logger := logx.New(cfg.ServiceName, cfg.Env, version, cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		readyProblems = append(readyProblems, config.Problem{Field: "DATABASE_URL", Message: "DATABASE_URL is required"})
	}
	if cfg.RedisAddr == "" {
		readyProblems = append(readyProblems, config.Problem{Field: "REDIS_ADDR", Message: "REDIS_ADDR is required"})
	}

	if cfg.OtelEnabled {
		if shutdown, err := observability.InitTracer(context.Background(), observability.TracerConfig{
			ServiceName: cfg.ServiceName,
			Env:         cfg.Env,
			Endpoint:    cfg.OtelEndpoint,
			Insecure:    cfg.OtelInsecure,
			SampleRatio: cfg.OtelSampleRatio,
		}); err == nil {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	var dbPool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		dbPool, err = dbx.NewPool(cfg)
		if err != nil {
			readyProblems = append(readyProblems, config.Problem{Field: "DATABASE_URL", Message: "failed to connect to database"})
			logger.Error(context.Background(), "db_init_failed", "database init failed",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("error", err.Error()),
			)
		}
	}

	var cacheClient *cachex.Client
	if cfg.RedisAddr != "" {
		var err error
		cacheClient, err = cachex.New(cfg)
		if err != nil {
			readyProblems = append(readyProblems, config.Problem{Field: "REDIS_ADDR", Message: "failed to connect to redis"})
			logger.Error(context.Background(), "redis_init_failed", "redis init failed",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("error", err.Error()),
			)
		}
	}
	if cacheClient != nil {
		defer cacheClient.Close()
	}

	readingsRepo := repos.NewReadingsRepo(dbPool)
	alertsRepo := repos.NewAlertsRepo(dbPool)

	var verifier *authx.JWTVerifier
	if cfg.OIDCIssuer != "" && cfg.OIDCAudience != "" {
		var err error
		verifier, err = authx.NewJWTVerifier(cfg.OIDCIssuer, cfg.OIDCAudience, cfg.OIDCJWKSURL, cfg.JWKSTTLSeconds, cfg.JWTClockSkewSec)
		if err != nil {
			readyProblems = append(readyProblems, config.Problem{Field: "OIDC_ISSUER", Message: "failed to initialize JWT verifier"})
		}
	}

	metricsx.Register()

	hub := stream.NewHub()
	lifecycle := core.NewManager(cfg.MaxVisibleAlerts)
	lifecycle.SetOnVisible(func(a models.Alert) {
		hub.Publish("alert", a)
		metricsx.SetAlertsVisible(len(lifecycle.Visible()))
	})

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	if cacheClient != nil {
		go runAlertFeed(rootCtx, cacheClient, lifecycle, hub, logger)
	}
	go runExpiry(rootCtx, lifecycle, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, statusResponse{
			Status:  "ok",
			Service: cfg.ServiceName,
			Env:     cfg.Env,
			Version: version,
		})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if len(readyProblems) > 0 {
			httpx.WriteError(
				w,
				r,
				http.StatusServiceUnavailable,
				"FAILED_PRECONDITION",
				"service not ready: invalid configuration",
				map[string]any{"problems": readyProblems},
			)
			return
		}
		if err := dbx.Ping(r.Context(), dbPool); err != nil {
			httpx.WriteError(
				w,
				r,
				http.StatusServiceUnavailable,
				"FAILED_PRECONDITION",
				"service not ready: database unavailable",
				map[string]any{"problem": "db_ping_failed"},
			)
			return
		}
		if err := cacheClient.Ping(r.Context()); err != nil {
			httpx.WriteError(
				w,
				r,
				http.StatusServiceUnavailable,
				"FAILED_PRECONDITION",
				"service not ready: redis unavailable",
				map[string]any{"problem": "redis_ping_failed"},
			)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, statusResponse{
			Status:  "ready",
			Service: cfg.ServiceName,
			Env:     cfg.Env,
			Version: version,
		})
	})
	mux.Handle("GET /metrics", metricsx.Handler())

	mux.HandleFunc("GET /api/latest", func(w http.ResponseWriter, r *http.Request) {
		out := make(map[models.Category]categorySummary, len(core.Categories))
		for _, category := range core.Categories {
			summary, err := buildSummary(r.Context(), category, cacheClient, readingsRepo, false)
			if err != nil {
				httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load latest readings", nil)
				return
			}
			out[category] = summary
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"categories": out})
	})

	mux.HandleFunc("GET /api/latest/{category}", func(w http.ResponseWriter, r *http.Request) {
		category, ok := core.ValidCategory(r.PathValue("category"))
		if !ok {
			httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "unknown category", nil)
			return
		}
		summary, err := buildSummary(r.Context(), category, cacheClient, readingsRepo, true)
		if err != nil {
			httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load latest readings", nil)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, summary)
	})

	mux.HandleFunc("GET /api/readings/{category}/{building}", func(w http.ResponseWriter, r *http.Request) {
		category, ok := core.ValidCategory(r.PathValue("category"))
		if !ok {
			httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "unknown category", nil)
			return
		}
		building := r.PathValue("building")
		if !knownBuilding(category, building) {
			httpx.WriteError(w, r, http.StatusNotFound, "NOT_FOUND", "unknown building", nil)
			return
		}
		readings, err := readingsRepo.RecentReadings(r.Context(), category, building, queryLimit(r, 50))
		if err != nil {
			httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load readings", nil)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"category": category,
			"building": building,
			"readings": readings,
		})
	})

	mux.HandleFunc("GET /api/series/{category}/{building}", func(w http.ResponseWriter, r *http.Request) {
		category, ok := core.ValidCategory(r.PathValue("category"))
		if !ok {
			httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "unknown category", nil)
			return
		}
		building := r.PathValue("building")
		if !knownBuilding(category, building) {
			httpx.WriteError(w, r, http.StatusNotFound, "NOT_FOUND", "unknown building", nil)
			return
		}
		readings, err := readingsRepo.RecentReadings(r.Context(), category, building, queryLimit(r, 50))
		if err != nil {
			httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load readings", nil)
			return
		}
		points := core.Bucketize(readings, int64(cfg.BucketWidthMS), category)
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"category":        category,
			"building":        building,
			"bucket_width_ms": cfg.BucketWidthMS,
			"points":          points,
		})
	})

	mux.HandleFunc("GET /api/alerts", func(w http.ResponseWriter, r *http.Request) {
		recent, err := alertsRepo.Recent(r.Context(), queryLimit(r, 50))
		if err != nil {
			httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load alerts", nil)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"visible": lifecycle.Visible(),
			"recent":  recent,
		})
	})

	mux.HandleFunc("POST /api/alerts/{id}/dismiss", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.PathValue("id"))
		if id == "" {
			httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "missing alert id", nil)
			return
		}
		now := time.Now().UTC()
		removed := lifecycle.Dismiss(id, now)
		persisted, err := alertsRepo.MarkDismissed(r.Context(), id, now)
		if err != nil {
			logger.Error(r.Context(), "dismiss_persist_failed", "failed to persist dismissal",
				slog.String("alert_id", id),
				slog.String("error", err.Error()),
			)
		}
		notice := events.DismissNotice{AlertID: id, DismissedAt: now}
		if cacheClient != nil {
			_ = cacheClient.PublishJSON(r.Context(), events.ChannelAlertDismiss, notice)
		}
		hub.Publish("dismiss", notice)
		metricsx.SetAlertsVisible(len(lifecycle.Visible()))
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"dismissed": removed || persisted,
		})
	})

	mux.HandleFunc("GET /api/stream", func(w http.ResponseWriter, r *http.Request) {
		serveStream(w, r, hub, lifecycle)
	})

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})

	skipInfra := func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics"
	}

	handler := httpx.WrapServeMux(mux, notFound)
	handler = middleware.RateLimitMiddleware{
		Limiter: middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 2*time.Minute),
		Skip:    skipInfra,
	}.Wrap(handler)
	handler = middleware.AuthMiddleware{
		Verifier: verifier,
		Skip: func(r *http.Request) bool {
			return verifier == nil || skipInfra(r)
		},
	}.Wrap(handler)
	handler = middleware.CORSMiddleware{
		AllowedOrigins: nil,
		Skip:           skipInfra,
	}.Wrap(handler)
	handler = httpx.WithoutTimeout(cfg.RequestTimeout, map[string]bool{"/api/stream": true}, handler)
	handler = httpx.WithRequestID(handler)
	handler = httpx.WithRecover(logger, handler)
	handler = httpx.WithRequestLog(logger, httpx.RequestLogOptions{SkipPaths: map[string]bool{"/healthz": true, "/metrics": true}}, handler)
	handler = metricsx.Instrument(handler)
	handler = otelhttp.NewHandler(handler, "http.server")

	server := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.HTTPPort)),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "service_start", "starting service",
			slog.String("addr", server.Addr),
			slog.Int("http_port", cfg.HTTPPort),
			slog.String("log_level", cfg.LogLevel),
			slog.Int("request_timeout_ms", cfg.RequestTimeoutMS),
		)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info(context.Background(), "shutdown_signal", "received signal", slog.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "server_failed", "server failed",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	rootCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(context.Background(), "shutdown_failed", "shutdown failed",
			slog.String("error_code", "INTERNAL_ERROR"),
			slog.String("error", err.Error()),
		)
	}
	if dbPool != nil {
		dbPool.Close()
	}
	logger.Info(context.Background(), "service_stop", "service stopped")
}

// buildSummary assembles the dashboard payload for one category: the latest
// reading per building (cache first, database on miss), normalized building
// snapshots, and optionally campus-wide stats.
func buildSummary(ctx context.Context, category models.Category, cacheClient *cachex.Client, readingsRepo *repos.ReadingsRepo, withStats bool) (categorySummary, error) {
	latest := map[string]models.Reading{}
	hit := false
	if cacheClient != nil {
		var err error
		hit, err = cacheClient.GetJSON(ctx, cachex.LatestKey(string(category)), &latest)
		if err != nil {
			hit = false
		}
	}
	if !hit {
		var err error
		latest, err = readingsRepo.LatestSnapshot(ctx, category)
		if err != nil {
			return categorySummary{}, err
		}
	}

	usage := make(map[string]float64, len(latest))
	for building, reading := range latest {
		usage[building] = reading.Value
	}
	snapshots := core.NormalizeSnapshot(category, usage)

	summary := categorySummary{
		Category:  category,
		Name:      core.CategoryName(category),
		Unit:      core.Unit(category),
		Color:     core.CategoryColor(category),
		Buildings: snapshots,
		Readings:  latest,
	}
	if withStats {
		histories := make(map[string][]models.Reading, len(snapshots))
		for _, snap := range snapshots {
			history, err := readingsRepo.RecentReadings(ctx, category, snap.Name, 30)
			if err != nil {
				return categorySummary{}, err
			}
			histories[snap.Name] = history
		}
		stats := core.ComputeCampusStats(category, snapshots, histories)
		summary.Stats = &stats
	}
	return summary, nil
}

// runAlertFeed mirrors the evaluator's alert stream into the local lifecycle
// manager so the visible set matches what the evaluator decided.
func runAlertFeed(ctx context.Context, cacheClient *cachex.Client, lifecycle *core.Manager, hub *stream.Hub, logger logx.Logger) {
	sub, err := cacheClient.Subscribe(ctx, events.ChannelAlerts, events.ChannelAlertDismiss)
	if err != nil {
		logger.Error(ctx, "alert_feed_failed", "failed to subscribe to alert channels",
			slog.String("error", err.Error()),
		)
		return
	}
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			switch msg.Channel {
			case events.ChannelAlerts:
				var alert models.Alert
				if err := json.Unmarshal([]byte(msg.Payload), &alert); err != nil || alert.ID == "" {
					continue
				}
				lifecycle.Add(time.Now().UTC(), alert)
			case events.ChannelAlertDismiss:
				var notice events.DismissNotice
				if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil || notice.AlertID == "" {
					continue
				}
				if lifecycle.Dismiss(notice.AlertID, time.Now().UTC()) {
					hub.Publish("dismiss", notice)
				}
			}
			metricsx.SetAlertsVisible(len(lifecycle.Visible()))
		}
	}
}

// runExpiry drives auto-dismiss countdowns and tells connected clients when
// an alert times out.
func runExpiry(ctx context.Context, lifecycle *core.Manager, hub *stream.Hub) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			expired := lifecycle.ExpireDue(now)
			for _, a := range expired {
				hub.Publish("dismiss", events.DismissNotice{AlertID: a.ID, DismissedAt: now})
			}
			if len(expired) > 0 {
				metricsx.SetAlertsVisible(len(lifecycle.Visible()))
			}
		}
	}
}

func serveStream(w http.ResponseWriter, r *http.Request, hub *stream.Hub, lifecycle *core.Manager) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming unsupported", nil)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch, cancel := hub.Subscribe()
	defer cancel()

	// Opening snapshot so clients can render without waiting for traffic.
	if snapshot, err := json.Marshal(lifecycle.Visible()); err == nil {
		fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", snapshot)
		flusher.Flush()
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
			flusher.Flush()
		}
	}
}

func knownBuilding(category models.Category, building string) bool {
	for _, b := range core.Buildings(category) {
		if b == building {
			return true
		}
	}
	return false
}

func queryLimit(r *http.Request, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 500 {
		return fallback
	}
	return n
}
