package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"campus-resource-monitor/api/internal/core"
	"campus-resource-monitor/api/internal/engine"
	"campus-resource-monitor/api/internal/models"
	"campus-resource-monitor/api/internal/repos"
	"campus-resource-monitor/shared/cachex"
	"campus-resource-monitor/shared/config"
	"campus-resource-monitor/shared/dbx"
	"campus-resource-monitor/shared/events"
	"campus-resource-monitor/shared/influxx"
	"campus-resource-monitor/shared/lockx"
	"campus-resource-monitor/shared/logx"
	"campus-resource-monitor/shared/metricsx"
	"campus-resource-monitor/shared/mqx"
	"campus-resource-monitor/shared/observability"
)

const taskEvaluateSweep = "alerts.evaluate"

func main() {
	cfg, problems := config.Load("evaluator", 8082)
	version := strings.TrimSpace(os.Getenv("VERSION"))
	logger := logx.New(cfg.ServiceName, cfg.Env, version, cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		problems = append(problems, config.Problem{Field: "DATABASE_URL", Message: "DATABASE_URL is required"})
	}
	if len(cfg.KafkaBrokers) == 0 {
		problems = append(problems, config.Problem{Field: "KAFKA_BROKERS", Message: "KAFKA_BROKERS is required"})
	}
	if cfg.KafkaGroupID == "" {
		problems = append(problems, config.Problem{Field: "KAFKA_CONSUMER_GROUP", Message: "KAFKA_CONSUMER_GROUP is required"})
	}
	if cfg.RedisAddr == "" {
		problems = append(problems, config.Problem{Field: "REDIS_ADDR", Message: "REDIS_ADDR is required"})
	}
	if cfg.AsynqRedisAddr == "" {
		problems = append(problems, config.Problem{Field: "ASYNQ_REDIS_ADDR", Message: "ASYNQ_REDIS_ADDR is required"})
	}
	if len(problems) > 0 {
		logger.Error(context.Background(), "config_invalid", "invalid config",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.Any("problems", problems),
		)
		os.Exit(1)
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

	metricsx.Register()

	dbPool, err := dbx.NewPool(cfg)
	if err != nil {
		logger.Error(context.Background(), "db_init_failed", "db init failed",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer dbPool.Close()

	cacheClient, err := cachex.New(cfg)
	if err != nil {
		logger.Error(context.Background(), "redis_init_failed", "redis init failed",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()

	producer, err := mqx.NewProducer(cfg)
	if err != nil {
		logger.Error(context.Background(), "kafka_init_failed", "kafka producer init failed",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer producer.Close()

	var influxClient *influxx.Client
	if cfg.InfluxURL != "" && cfg.InfluxToken != "" && cfg.InfluxOrg != "" && cfg.InfluxBucket != "" {
		influxClient, err = influxx.New(cfg)
		if err != nil {
			logger.Warn(context.Background(), "influx_init_failed", "influx init failed",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("error", err.Error()),
			)
		}
	}
	if influxClient != nil {
		defer influxClient.Close()
	}

	reader, err := mqx.NewConsumer(cfg, events.TopicReadings, cfg.KafkaGroupID)
	if err != nil {
		logger.Error(context.Background(), "kafka_init_failed", "kafka reader init failed",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer reader.Close()

	readingsRepo := repos.NewReadingsRepo(dbPool)
	alertsRepo := repos.NewAlertsRepo(dbPool)

	lifecycle := core.NewManager(cfg.MaxVisibleAlerts)
	strategy := core.StrategyFromName(cfg.AlertStrategy)
	decide := core.SeededDecision(time.Now().UnixNano(), cfg.AchievementChance)
	evaluator := engine.New(readingsRepo, strategy, lifecycle, decide, logger)
	evaluator.SetOnEmitted(func(ctx context.Context, alerts []models.Alert) {
		for _, alert := range alerts {
			if err := alertsRepo.Insert(ctx, alert); err != nil {
				logger.Error(ctx, "alert_persist_failed", "failed to persist alert",
					slog.String("alert_id", alert.ID),
					slog.String("error", err.Error()),
				)
			}
			payload, err := json.Marshal(alert)
			if err != nil {
				continue
			}
			envelope, err := json.Marshal(events.Envelope{
				EventID:    uuid.New(),
				OccurredAt: time.UnixMilli(alert.EmittedAt).UTC(),
				Category:   string(alert.Category),
				Building:   alert.Building,
				EventType:  events.EventAlertEmitted,
				Payload:    payload,
			})
			if err != nil {
				continue
			}
			if err := producer.Publish(ctx, events.TopicAlerts, []byte(alert.ID), envelope, nil); err != nil {
				logger.Error(ctx, "alert_publish_failed", "failed to publish alert",
					slog.String("alert_id", alert.ID),
					slog.String("error", err.Error()),
				)
			}
			_ = cacheClient.PublishJSON(ctx, events.ChannelAlerts, alert)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// One category evaluation at a time across evaluator instances.
	evaluateLocked := func(ctx context.Context, category models.Category, now time.Time) {
		lock, acquired, err := lockx.Acquire(ctx, cacheClient.Client(), lockx.EvalKey(string(category)), time.Duration(cfg.EvalLockTTLSec)*time.Second)
		if err != nil {
			logger.Error(ctx, "lock_failed", "failed to acquire evaluation lock",
				slog.String("category", string(category)),
				slog.String("error", err.Error()),
			)
			return
		}
		if !acquired {
			return
		}
		_, _ = evaluator.EvaluateCategory(ctx, category, now)
		_ = lockx.Release(ctx, cacheClient.Client(), lock)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		runReadingConsumer(ctx, cfg, reader, readingsRepo, cacheClient, influxClient, evaluateLocked, logger)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runExpiry(ctx, lifecycle, alertsRepo, cacheClient)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runDismissFeed(ctx, cacheClient, lifecycle, logger)
	}()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.AsynqRedisAddr,
		Password: cfg.AsynqRedisPass,
		DB:       cfg.AsynqRedisDB,
	}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Queues: map[string]int{
			cfg.AsynqQueue: 1,
		},
	})
	defer server.Shutdown()

	mux := asynq.NewServeMux()
	mux.HandleFunc(taskEvaluateSweep, func(ctx context.Context, t *asynq.Task) error {
		now := time.Now().UTC()
		for _, category := range core.Categories {
			evaluateLocked(ctx, category, now)
		}
		return nil
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
	})
	defer scheduler.Shutdown()
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	if _, err := scheduler.Register("@every "+strconv.Itoa(cfg.AlertSweepSec)+"s", asynq.NewTask(taskEvaluateSweep, nil, asynq.Queue(cfg.AsynqQueue))); err != nil {
		logger.Error(context.Background(), "scheduler_init_failed", "scheduler init failed",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		logger.Error(context.Background(), "scheduler_start_failed", "scheduler start failed",
			slog.String("error_code", "INTERNAL_ERROR"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			info, err := inspector.GetQueueInfo(cfg.AsynqQueue)
			if err != nil {
				continue
			}
			metricsx.SetAsynqQueueDepth(cfg.AsynqQueue, info.Size)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "evaluator_start", "evaluator started",
			slog.String("queue", cfg.AsynqQueue),
			slog.String("strategy", cfg.AlertStrategy),
			slog.Int("sweep_seconds", cfg.AlertSweepSec),
		)
		errCh <- server.Run(mux)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, asynq.ErrServerClosed) {
			logger.Error(context.Background(), "evaluator_failed", "evaluator failed",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	cancel()
	wg.Wait()
	logger.Info(context.Background(), "evaluator_stop", "evaluator stopped")
}

// runReadingConsumer drains the readings topic: each message is persisted,
// mirrored into the time-series store and folded into the per-category
// latest-reading cache the API serves from, then the category is re-evaluated
// so a fresh reading can raise or clear alerts without waiting for the sweep.
func runReadingConsumer(ctx context.Context, cfg config.Config, reader *kafka.Reader, readingsRepo *repos.ReadingsRepo, cacheClient *cachex.Client, influxClient *influxx.Client, evaluate func(context.Context, models.Category, time.Time), logger logx.Logger) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error(ctx, "kafka_fetch_failed", "failed to fetch message",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("error", err.Error()),
			)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		spanCtx, span := otel.Tracer("mqx").Start(ctx, "kafka.consume")
		span.SetAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", events.TopicReadings),
		)
		category, err := handleReading(spanCtx, msg.Value, readingsRepo, cacheClient, influxClient)
		if err != nil {
			span.End()
			logger.Error(ctx, "reading_handle_failed", "failed to handle reading",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("error", err.Error()),
			)
			continue
		}
		evaluate(spanCtx, category, time.Now().UTC())
		span.End()
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "kafka_commit_failed", "failed to commit message",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("error", err.Error()),
			)
		}
		stats := reader.Stats()
		metricsx.SetKafkaLag(stats.Topic, cfg.KafkaGroupID, stats.Lag)
	}
}

func handleReading(ctx context.Context, payload []byte, readingsRepo *repos.ReadingsRepo, cacheClient *cachex.Client, influxClient *influxx.Client) (models.Category, error) {
	var envelope events.Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", err
	}
	category, ok := core.ValidCategory(envelope.Category)
	if !ok {
		return "", errors.New("unknown category: " + envelope.Category)
	}
	var reading models.Reading
	if err := json.Unmarshal(envelope.Payload, &reading); err != nil {
		return "", err
	}
	if reading.Building == "" {
		return "", errors.New("missing building")
	}
	if reading.Unit == "" {
		reading.Unit = core.Unit(category)
	}

	if _, err := readingsRepo.Insert(ctx, category, reading); err != nil {
		return "", err
	}

	if influxClient != nil {
		fields := map[string]any{"value": reading.Value}
		if capacity := core.CapacityOrTarget(category, reading.Building); capacity > 0 {
			fields["percentage"] = math.Round(reading.Value / capacity * 100)
		}
		if meals, ok := reading.Meta["mealsServed"]; ok {
			fields["meals_served"] = meals
		}
		if err := influxClient.WritePoint(ctx, "campus_usage", map[string]string{
			"category": string(category),
			"building": reading.Building,
		}, fields, time.UnixMilli(reading.Timestamp).UTC()); err != nil {
			metricsx.IncInfluxWriteFailure()
		}
	}

	// Fold the reading into the category's latest-per-building cache.
	latest := map[string]models.Reading{}
	key := cachex.LatestKey(string(category))
	_, _ = cacheClient.GetJSON(ctx, key, &latest)
	if prev, ok := latest[reading.Building]; !ok || prev.Timestamp <= reading.Timestamp {
		latest[reading.Building] = reading
		return category, cacheClient.SetJSON(ctx, key, latest, 0)
	}
	return category, nil
}

// runExpiry retires visible auto-dismiss alerts whose countdown elapsed,
// records the dismissal and notifies the API fanout channel.
func runExpiry(ctx context.Context, lifecycle *core.Manager, alertsRepo *repos.AlertsRepo, cacheClient *cachex.Client) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, alert := range lifecycle.ExpireDue(now) {
				_, _ = alertsRepo.MarkDismissed(ctx, alert.ID, now)
				_ = cacheClient.PublishJSON(ctx, events.ChannelAlertDismiss, events.DismissNotice{
					AlertID:     alert.ID,
					DismissedAt: now,
				})
			}
			metricsx.SetAlertsVisible(len(lifecycle.Visible()))
		}
	}
}

// runDismissFeed applies user-initiated dismissals coming from the API so
// this instance's visible set stays in step.
func runDismissFeed(ctx context.Context, cacheClient *cachex.Client, lifecycle *core.Manager, logger logx.Logger) {
	sub, err := cacheClient.Subscribe(ctx, events.ChannelAlertDismiss)
	if err != nil {
		logger.Error(ctx, "dismiss_feed_failed", "failed to subscribe to dismiss channel",
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
			var notice events.DismissNotice
			if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil || notice.AlertID == "" {
				continue
			}
			lifecycle.Dismiss(notice.AlertID, time.Now().UTC())
		}
	}
}
