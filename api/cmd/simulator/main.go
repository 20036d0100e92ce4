package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"campus-resource-monitor/api/internal/models"
	"campus-resource-monitor/api/internal/sim"
	"campus-resource-monitor/shared/config"
	"campus-resource-monitor/shared/events"
	"campus-resource-monitor/shared/logx"
	"campus-resource-monitor/shared/metricsx"
	"campus-resource-monitor/shared/mqx"
	"campus-resource-monitor/shared/observability"
)

func main() {
	cfg, problems := config.Load("simulator", 8083)
	version := strings.TrimSpace(os.Getenv("VERSION"))
	logger := logx.New(cfg.ServiceName, cfg.Env, version, cfg.LogLevel)

	if len(cfg.KafkaBrokers) == 0 {
		problems = append(problems, config.Problem{Field: "KAFKA_BROKERS", Message: "KAFKA_BROKERS is required"})
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

	producer, err := mqx.NewProducer(cfg)
	if err != nil {
		logger.Error(context.Background(), "kafka_init_failed", "kafka producer init failed",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer producer.Close()

	generator := sim.New(cfg.SimSeed, cfg.SimSmallDeltaChance)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	logger.Info(ctx, "simulator_start", "simulator started",
		slog.Int("interval_seconds", cfg.SimIntervalSec),
		slog.Int64("seed", cfg.SimSeed),
	)

	// First cycle fires immediately so a fresh stack has data right away.
	publishCycle(ctx, generator, producer, logger)

	ticker := time.NewTicker(time.Duration(cfg.SimIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "simulator_stop", "simulator stopped")
			return
		case <-ticker.C:
			publishCycle(ctx, generator, producer, logger)
		}
	}
}

func publishCycle(ctx context.Context, generator *sim.Generator, producer *mqx.Producer, logger logx.Logger) {
	now := time.Now().UTC()
	cycle := generator.Cycle(now)
	published := 0
	for category, readings := range cycle {
		for _, reading := range readings {
			if err := publishReading(ctx, producer, category, reading, now); err != nil {
				logger.Error(ctx, "reading_publish_failed", "failed to publish reading",
					slog.String("category", string(category)),
					slog.String("building", reading.Building),
					slog.String("error", err.Error()),
				)
				continue
			}
			metricsx.IncReadingGenerated(string(category))
			published++
		}
	}
	logger.Info(ctx, "cycle_published", "simulation cycle published",
		slog.Int("readings", published),
	)
}

func publishReading(ctx context.Context, producer *mqx.Producer, category models.Category, reading models.Reading, now time.Time) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(events.Envelope{
		EventID:    uuid.New(),
		OccurredAt: now,
		Category:   string(category),
		Building:   reading.Building,
		EventType:  events.EventReadingRecorded,
		Payload:    payload,
	})
	if err != nil {
		return err
	}
	key := []byte(string(category) + ":" + reading.Building)
	return producer.Publish(ctx, events.TopicReadings, key, envelope, nil)
}
