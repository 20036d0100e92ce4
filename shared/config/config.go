package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Config struct {
	Env              string
	ServiceName      string
	HTTPPort         int
	LogLevel         string
	ConfigPath       string
	RequestTimeoutMS int
	RequestTimeout   time.Duration

	OIDCIssuer      string
	OIDCAudience    string
	OIDCJWKSURL     string
	JWKSTTLSeconds  int
	JWTClockSkewSec int

	DatabaseURL      string
	DBMaxConns       int
	DBMinConns       int
	DBConnMaxIdleSec int
	DBConnMaxLifeSec int

	KafkaBrokers  []string
	KafkaClientID string
	KafkaGroupID  string
	KafkaRetryMax int
	KafkaWriteMS  int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AsynqRedisAddr   string
	AsynqRedisPass   string
	AsynqRedisDB     int
	AsynqQueue       string
	AsynqConcurrency int

	InfluxURL       string
	InfluxToken     string
	InfluxOrg       string
	InfluxBucket    string
	InfluxTimeoutMS int

	BucketWidthMS     int
	MaxVisibleAlerts  int
	AlertSweepSec     int
	AlertStrategy     string
	AchievementChance float64
	EvalLockTTLSec    int

	SimIntervalSec      int
	SimSeed             int64
	SimSmallDeltaChance float64

	RateLimitRPS   float64
	RateLimitBurst int

	OtelEnabled     bool
	OtelEndpoint    string
	OtelInsecure    bool
	OtelSampleRatio float64
}

const (
	StrategyDelta       = "delta"
	StrategyUtilization = "utilization"
)

func Load(serviceNameDefault string, httpPortDefault int) (Config, []Problem) {
	envRaw := strings.TrimSpace(os.Getenv("ENV"))
	cfg := Config{
		Env:                 envRaw,
		ServiceName:         serviceNameDefault,
		HTTPPort:            httpPortDefault,
		LogLevel:            "info",
		ConfigPath:          strings.TrimSpace(os.Getenv("CONFIG_PATH")),
		RequestTimeoutMS:    30000,
		OIDCIssuer:          strings.TrimSpace(os.Getenv("OIDC_ISSUER")),
		OIDCAudience:        strings.TrimSpace(os.Getenv("OIDC_AUDIENCE")),
		OIDCJWKSURL:         strings.TrimSpace(os.Getenv("OIDC_JWKS_URL")),
		JWKSTTLSeconds:      300,
		JWTClockSkewSec:     60,
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:          10,
		DBMinConns:          1,
		DBConnMaxIdleSec:    300,
		DBConnMaxLifeSec:    1800,
		KafkaRetryMax:       5,
		KafkaWriteMS:        5000,
		AsynqQueue:          "default",
		AsynqConcurrency:    10,
		InfluxTimeoutMS:     5000,
		BucketWidthMS:       5 * 60 * 1000,
		MaxVisibleAlerts:    3,
		AlertSweepSec:       5,
		AlertStrategy:       StrategyDelta,
		AchievementChance:   0.2,
		EvalLockTTLSec:      30,
		SimIntervalSec:      600,
		SimSeed:             0,
		SimSmallDeltaChance: 0.5,
		RateLimitRPS:        10,
		RateLimitBurst:      20,
		OtelInsecure:        true,
		OtelSampleRatio:     1.0,
	}

	problems := make([]Problem, 0, 4)
	envProvided := envRaw != ""

	if repoRoot, ok := findRepoRoot(); ok && cfg.Env != "" && cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(repoRoot, "configs", cfg.Env+".json")
	}

	if fileData, fileProblems, ok := loadConfigFile(cfg.ConfigPath, strings.TrimSpace(os.Getenv("CONFIG_PATH")) != ""); ok {
		problems = append(problems, fileProblems...)
		if fileEnv, ok := readStringKey(fileData, "ENV"); ok && strings.TrimSpace(fileEnv) != "" {
			envProvided = true
		}
		applyConfigMap(&cfg, fileData, &problems)
	} else {
		problems = append(problems, fileProblems...)
	}

	applyEnv(&cfg, &problems)

	if cfg.OIDCIssuer != "" && strings.TrimSpace(cfg.OIDCJWKSURL) == "" {
		cfg.OIDCJWKSURL = strings.TrimRight(cfg.OIDCIssuer, "/") + "/.well-known/jwks.json"
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if !envProvided {
		problems = append(problems, Problem{Field: "ENV", Message: "ENV is required"})
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		problems = append(problems, Problem{Field: "HTTP_PORT", Message: "HTTP_PORT must be 1-65535"})
		cfg.HTTPPort = httpPortDefault
	}
	if cfg.RequestTimeoutMS <= 0 {
		problems = append(problems, Problem{Field: "REQUEST_TIMEOUT_MS", Message: "REQUEST_TIMEOUT_MS must be > 0"})
		cfg.RequestTimeoutMS = 30000
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutMS) * time.Millisecond
	if cfg.JWKSTTLSeconds <= 0 {
		problems = append(problems, Problem{Field: "JWKS_CACHE_TTL_SECONDS", Message: "JWKS_CACHE_TTL_SECONDS must be > 0"})
		cfg.JWKSTTLSeconds = 300
	}
	if cfg.JWTClockSkewSec < 0 {
		problems = append(problems, Problem{Field: "JWT_CLOCK_SKEW_SECONDS", Message: "JWT_CLOCK_SKEW_SECONDS must be >= 0"})
		cfg.JWTClockSkewSec = 60
	}
	if cfg.DBMaxConns <= 0 {
		problems = append(problems, Problem{Field: "DB_MAX_CONNS", Message: "DB_MAX_CONNS must be > 0"})
		cfg.DBMaxConns = 10
	}
	if cfg.DBMinConns < 0 {
		problems = append(problems, Problem{Field: "DB_MIN_CONNS", Message: "DB_MIN_CONNS must be >= 0"})
		cfg.DBMinConns = 1
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		problems = append(problems, Problem{Field: "DB_MIN_CONNS", Message: "DB_MIN_CONNS must be <= DB_MAX_CONNS"})
		cfg.DBMinConns = cfg.DBMaxConns
	}
	if cfg.DBConnMaxIdleSec <= 0 {
		problems = append(problems, Problem{Field: "DB_CONN_MAX_IDLE_SECONDS", Message: "DB_CONN_MAX_IDLE_SECONDS must be > 0"})
		cfg.DBConnMaxIdleSec = 300
	}
	if cfg.DBConnMaxLifeSec <= 0 {
		problems = append(problems, Problem{Field: "DB_CONN_MAX_LIFETIME_SECONDS", Message: "DB_CONN_MAX_LIFETIME_SECONDS must be > 0"})
		cfg.DBConnMaxLifeSec = 1800
	}
	if cfg.KafkaRetryMax < 0 {
		problems = append(problems, Problem{Field: "KAFKA_RETRY_MAX", Message: "KAFKA_RETRY_MAX must be >= 0"})
		cfg.KafkaRetryMax = 5
	}
	if cfg.KafkaWriteMS <= 0 {
		problems = append(problems, Problem{Field: "KAFKA_WRITE_TIMEOUT_MS", Message: "KAFKA_WRITE_TIMEOUT_MS must be > 0"})
		cfg.KafkaWriteMS = 5000
	}
	if cfg.RedisDB < 0 {
		problems = append(problems, Problem{Field: "REDIS_DB", Message: "REDIS_DB must be >= 0"})
		cfg.RedisDB = 0
	}
	if cfg.AsynqRedisDB < 0 {
		problems = append(problems, Problem{Field: "ASYNQ_REDIS_DB", Message: "ASYNQ_REDIS_DB must be >= 0"})
		cfg.AsynqRedisDB = 0
	}
	if cfg.AsynqConcurrency <= 0 {
		problems = append(problems, Problem{Field: "ASYNQ_CONCURRENCY", Message: "ASYNQ_CONCURRENCY must be > 0"})
		cfg.AsynqConcurrency = 10
	}
	if cfg.InfluxTimeoutMS <= 0 {
		problems = append(problems, Problem{Field: "INFLUX_TIMEOUT_MS", Message: "INFLUX_TIMEOUT_MS must be > 0"})
		cfg.InfluxTimeoutMS = 5000
	}
	if cfg.BucketWidthMS <= 0 {
		problems = append(problems, Problem{Field: "BUCKET_WIDTH_MS", Message: "BUCKET_WIDTH_MS must be > 0"})
		cfg.BucketWidthMS = 5 * 60 * 1000
	}
	if cfg.MaxVisibleAlerts <= 0 {
		problems = append(problems, Problem{Field: "MAX_VISIBLE_ALERTS", Message: "MAX_VISIBLE_ALERTS must be > 0"})
		cfg.MaxVisibleAlerts = 3
	}
	if cfg.AlertSweepSec <= 0 {
		problems = append(problems, Problem{Field: "ALERT_SWEEP_SECONDS", Message: "ALERT_SWEEP_SECONDS must be > 0"})
		cfg.AlertSweepSec = 5
	}
	if cfg.AlertStrategy != StrategyDelta && cfg.AlertStrategy != StrategyUtilization {
		problems = append(problems, Problem{Field: "ALERT_STRATEGY", Message: "ALERT_STRATEGY must be delta or utilization"})
		cfg.AlertStrategy = StrategyDelta
	}
	if cfg.AchievementChance < 0 || cfg.AchievementChance > 1 {
		problems = append(problems, Problem{Field: "ACHIEVEMENT_CHANCE", Message: "ACHIEVEMENT_CHANCE must be 0-1"})
		cfg.AchievementChance = 0.2
	}
	if cfg.EvalLockTTLSec <= 0 {
		problems = append(problems, Problem{Field: "EVAL_LOCK_TTL_SECONDS", Message: "EVAL_LOCK_TTL_SECONDS must be > 0"})
		cfg.EvalLockTTLSec = 30
	}
	if cfg.SimIntervalSec <= 0 {
		problems = append(problems, Problem{Field: "SIM_INTERVAL_SECONDS", Message: "SIM_INTERVAL_SECONDS must be > 0"})
		cfg.SimIntervalSec = 600
	}
	if cfg.SimSmallDeltaChance < 0 || cfg.SimSmallDeltaChance > 1 {
		problems = append(problems, Problem{Field: "SIM_SMALL_DELTA_CHANCE", Message: "SIM_SMALL_DELTA_CHANCE must be 0-1"})
		cfg.SimSmallDeltaChance = 0.5
	}
	if cfg.RateLimitRPS <= 0 {
		problems = append(problems, Problem{Field: "RATE_LIMIT_RPS", Message: "RATE_LIMIT_RPS must be > 0"})
		cfg.RateLimitRPS = 10
	}
	if cfg.RateLimitBurst <= 0 {
		problems = append(problems, Problem{Field: "RATE_LIMIT_BURST", Message: "RATE_LIMIT_BURST must be > 0"})
		cfg.RateLimitBurst = 20
	}
	if cfg.OtelSampleRatio < 0 || cfg.OtelSampleRatio > 1 {
		problems = append(problems, Problem{Field: "OTEL_SAMPLE_RATIO", Message: "OTEL_SAMPLE_RATIO must be 0-1"})
		cfg.OtelSampleRatio = 1.0
	}

	return cfg, problems
}

func findRepoRoot() (string, bool) {
	start, err := os.Getwd()
	if err != nil {
		return "", false
	}
	dir := start
	for i := 0; i < 8; i++ {
		candidate := filepath.Join(dir, "configs")
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func loadConfigFile(path string, explicit bool) (map[string]any, []Problem, bool) {
	if strings.TrimSpace(path) == "" {
		return nil, nil, false
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if explicit && !errors.Is(err, os.ErrNotExist) {
			return nil, []Problem{{Field: "CONFIG_PATH", Message: fmt.Sprintf("failed to read config file: %v", err)}}, false
		}
		if explicit && errors.Is(err, os.ErrNotExist) {
			return nil, []Problem{{Field: "CONFIG_PATH", Message: "config file not found"}}, false
		}
		return nil, nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, []Problem{{Field: "CONFIG_PATH", Message: fmt.Sprintf("invalid json: %v", err)}}, false
	}
	return raw, nil, true
}

func applyEnv(cfg *Config, problems *[]Problem) {
	if v := strings.TrimSpace(os.Getenv("SERVICE_NAME")); v != "" {
		cfg.ServiceName = v
	}

	portRaw := strings.TrimSpace(os.Getenv("HTTP_PORT"))
	if portRaw == "" {
		portRaw = strings.TrimSpace(os.Getenv("PORT"))
	}
	if portRaw != "" {
		if p, err := strconv.Atoi(portRaw); err != nil || p <= 0 || p > 65535 {
			*problems = append(*problems, Problem{Field: "HTTP_PORT", Message: "HTTP_PORT must be 1-65535"})
		} else {
			cfg.HTTPPort = p
		}
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}

	setEnvInt(problems, "REQUEST_TIMEOUT_MS", &cfg.RequestTimeoutMS)
	setEnvString("OIDC_ISSUER", &cfg.OIDCIssuer)
	setEnvString("OIDC_AUDIENCE", &cfg.OIDCAudience)
	setEnvString("OIDC_JWKS_URL", &cfg.OIDCJWKSURL)
	setEnvInt(problems, "JWKS_CACHE_TTL_SECONDS", &cfg.JWKSTTLSeconds)
	setEnvInt(problems, "JWT_CLOCK_SKEW_SECONDS", &cfg.JWTClockSkewSec)
	setEnvString("DATABASE_URL", &cfg.DatabaseURL)
	setEnvInt(problems, "DB_MAX_CONNS", &cfg.DBMaxConns)
	setEnvInt(problems, "DB_MIN_CONNS", &cfg.DBMinConns)
	setEnvInt(problems, "DB_CONN_MAX_IDLE_SECONDS", &cfg.DBConnMaxIdleSec)
	setEnvInt(problems, "DB_CONN_MAX_LIFETIME_SECONDS", &cfg.DBConnMaxLifeSec)

	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		cfg.KafkaBrokers = parseCSV(v)
	}
	setEnvString("KAFKA_CLIENT_ID", &cfg.KafkaClientID)
	setEnvString("KAFKA_CONSUMER_GROUP", &cfg.KafkaGroupID)
	setEnvInt(problems, "KAFKA_RETRY_MAX", &cfg.KafkaRetryMax)
	setEnvInt(problems, "KAFKA_WRITE_TIMEOUT_MS", &cfg.KafkaWriteMS)

	setEnvString("REDIS_ADDR", &cfg.RedisAddr)
	setEnvString("REDIS_PASSWORD", &cfg.RedisPassword)
	setEnvInt(problems, "REDIS_DB", &cfg.RedisDB)

	setEnvString("ASYNQ_REDIS_ADDR", &cfg.AsynqRedisAddr)
	setEnvString("ASYNQ_REDIS_PASSWORD", &cfg.AsynqRedisPass)
	setEnvInt(problems, "ASYNQ_REDIS_DB", &cfg.AsynqRedisDB)
	setEnvString("ASYNQ_QUEUE", &cfg.AsynqQueue)
	setEnvInt(problems, "ASYNQ_CONCURRENCY", &cfg.AsynqConcurrency)

	setEnvString("INFLUX_URL", &cfg.InfluxURL)
	setEnvString("INFLUX_TOKEN", &cfg.InfluxToken)
	setEnvString("INFLUX_ORG", &cfg.InfluxOrg)
	setEnvString("INFLUX_BUCKET", &cfg.InfluxBucket)
	setEnvInt(problems, "INFLUX_TIMEOUT_MS", &cfg.InfluxTimeoutMS)

	setEnvInt(problems, "BUCKET_WIDTH_MS", &cfg.BucketWidthMS)
	setEnvInt(problems, "MAX_VISIBLE_ALERTS", &cfg.MaxVisibleAlerts)
	setEnvInt(problems, "ALERT_SWEEP_SECONDS", &cfg.AlertSweepSec)
	setEnvString("ALERT_STRATEGY", &cfg.AlertStrategy)
	setEnvFloat(problems, "ACHIEVEMENT_CHANCE", &cfg.AchievementChance)
	setEnvInt(problems, "EVAL_LOCK_TTL_SECONDS", &cfg.EvalLockTTLSec)

	setEnvInt(problems, "SIM_INTERVAL_SECONDS", &cfg.SimIntervalSec)
	if v := strings.TrimSpace(os.Getenv("SIM_SEED")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err != nil {
			*problems = append(*problems, Problem{Field: "SIM_SEED", Message: "SIM_SEED must be an integer"})
		} else {
			cfg.SimSeed = n
		}
	}
	setEnvFloat(problems, "SIM_SMALL_DELTA_CHANCE", &cfg.SimSmallDeltaChance)

	setEnvFloat(problems, "RATE_LIMIT_RPS", &cfg.RateLimitRPS)
	setEnvInt(problems, "RATE_LIMIT_BURST", &cfg.RateLimitBurst)

	setEnvBool(problems, "OTEL_ENABLED", &cfg.OtelEnabled)
	setEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.OtelEndpoint)
	setEnvBool(problems, "OTEL_EXPORTER_OTLP_INSECURE", &cfg.OtelInsecure)
	setEnvFloat(problems, "OTEL_SAMPLE_RATIO", &cfg.OtelSampleRatio)
}

func setEnvString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setEnvInt(problems *[]Problem, key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*problems = append(*problems, Problem{Field: key, Message: key + " must be an integer"})
		return
	}
	*dst = n
}

func setEnvFloat(problems *[]Problem, key string, dst *float64) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*problems = append(*problems, Problem{Field: key, Message: key + " must be a number"})
		return
	}
	*dst = f
}

func setEnvBool(problems *[]Problem, key string, dst *bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	b, ok := asBool(v)
	if !ok {
		*problems = append(*problems, Problem{Field: key, Message: key + " must be a boolean"})
		return
	}
	*dst = b
}

func applyConfigMap(cfg *Config, raw map[string]any, problems *[]Problem) {
	for k, v := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		switch key {
		case "ENV":
			if s, ok := v.(string); ok {
				cfg.Env = strings.TrimSpace(s)
			}
		case "SERVICE_NAME":
			setMapString(v, &cfg.ServiceName)
		case "HTTP_PORT":
			p, ok := asInt(v)
			if !ok || p <= 0 || p > 65535 {
				*problems = append(*problems, Problem{Field: key, Message: "HTTP_PORT must be 1-65535"})
			} else {
				cfg.HTTPPort = p
			}
		case "LOG_LEVEL":
			setMapString(v, &cfg.LogLevel)
		case "REQUEST_TIMEOUT_MS":
			setMapInt(problems, key, v, &cfg.RequestTimeoutMS)
		case "OIDC_ISSUER":
			setMapString(v, &cfg.OIDCIssuer)
		case "OIDC_AUDIENCE":
			setMapString(v, &cfg.OIDCAudience)
		case "OIDC_JWKS_URL":
			setMapString(v, &cfg.OIDCJWKSURL)
		case "JWKS_CACHE_TTL_SECONDS":
			setMapInt(problems, key, v, &cfg.JWKSTTLSeconds)
		case "JWT_CLOCK_SKEW_SECONDS":
			setMapInt(problems, key, v, &cfg.JWTClockSkewSec)
		case "DATABASE_URL":
			setMapString(v, &cfg.DatabaseURL)
		case "DB_MAX_CONNS":
			setMapInt(problems, key, v, &cfg.DBMaxConns)
		case "DB_MIN_CONNS":
			setMapInt(problems, key, v, &cfg.DBMinConns)
		case "DB_CONN_MAX_IDLE_SECONDS":
			setMapInt(problems, key, v, &cfg.DBConnMaxIdleSec)
		case "DB_CONN_MAX_LIFETIME_SECONDS":
			setMapInt(problems, key, v, &cfg.DBConnMaxLifeSec)
		case "KAFKA_BROKERS":
			if s, ok := v.(string); ok {
				cfg.KafkaBrokers = parseCSV(s)
			} else if arr, ok := v.([]any); ok {
				cfg.KafkaBrokers = parseAnyCSV(arr)
			}
		case "KAFKA_CLIENT_ID":
			setMapString(v, &cfg.KafkaClientID)
		case "KAFKA_CONSUMER_GROUP":
			setMapString(v, &cfg.KafkaGroupID)
		case "KAFKA_RETRY_MAX":
			setMapInt(problems, key, v, &cfg.KafkaRetryMax)
		case "KAFKA_WRITE_TIMEOUT_MS":
			setMapInt(problems, key, v, &cfg.KafkaWriteMS)
		case "REDIS_ADDR":
			setMapString(v, &cfg.RedisAddr)
		case "REDIS_PASSWORD":
			if s, ok := v.(string); ok {
				cfg.RedisPassword = s
			}
		case "REDIS_DB":
			setMapInt(problems, key, v, &cfg.RedisDB)
		case "ASYNQ_REDIS_ADDR":
			setMapString(v, &cfg.AsynqRedisAddr)
		case "ASYNQ_REDIS_PASSWORD":
			if s, ok := v.(string); ok {
				cfg.AsynqRedisPass = s
			}
		case "ASYNQ_REDIS_DB":
			setMapInt(problems, key, v, &cfg.AsynqRedisDB)
		case "ASYNQ_QUEUE":
			setMapString(v, &cfg.AsynqQueue)
		case "ASYNQ_CONCURRENCY":
			setMapInt(problems, key, v, &cfg.AsynqConcurrency)
		case "INFLUX_URL":
			setMapString(v, &cfg.InfluxURL)
		case "INFLUX_TOKEN":
			if s, ok := v.(string); ok {
				cfg.InfluxToken = s
			}
		case "INFLUX_ORG":
			setMapString(v, &cfg.InfluxOrg)
		case "INFLUX_BUCKET":
			setMapString(v, &cfg.InfluxBucket)
		case "INFLUX_TIMEOUT_MS":
			setMapInt(problems, key, v, &cfg.InfluxTimeoutMS)
		case "BUCKET_WIDTH_MS":
			setMapInt(problems, key, v, &cfg.BucketWidthMS)
		case "MAX_VISIBLE_ALERTS":
			setMapInt(problems, key, v, &cfg.MaxVisibleAlerts)
		case "ALERT_SWEEP_SECONDS":
			setMapInt(problems, key, v, &cfg.AlertSweepSec)
		case "ALERT_STRATEGY":
			setMapString(v, &cfg.AlertStrategy)
		case "ACHIEVEMENT_CHANCE":
			setMapFloat(problems, key, v, &cfg.AchievementChance)
		case "EVAL_LOCK_TTL_SECONDS":
			setMapInt(problems, key, v, &cfg.EvalLockTTLSec)
		case "SIM_INTERVAL_SECONDS":
			setMapInt(problems, key, v, &cfg.SimIntervalSec)
		case "SIM_SEED":
			if n, ok := asInt(v); ok {
				cfg.SimSeed = int64(n)
			} else {
				*problems = append(*problems, Problem{Field: key, Message: "SIM_SEED must be an integer"})
			}
		case "SIM_SMALL_DELTA_CHANCE":
			setMapFloat(problems, key, v, &cfg.SimSmallDeltaChance)
		case "RATE_LIMIT_RPS":
			setMapFloat(problems, key, v, &cfg.RateLimitRPS)
		case "RATE_LIMIT_BURST":
			setMapInt(problems, key, v, &cfg.RateLimitBurst)
		case "OTEL_ENABLED":
			setMapBool(problems, key, v, &cfg.OtelEnabled)
		case "OTEL_EXPORTER_OTLP_ENDPOINT":
			setMapString(v, &cfg.OtelEndpoint)
		case "OTEL_EXPORTER_OTLP_INSECURE":
			setMapBool(problems, key, v, &cfg.OtelInsecure)
		case "OTEL_SAMPLE_RATIO":
			setMapFloat(problems, key, v, &cfg.OtelSampleRatio)
		}
	}
}

func setMapString(v any, dst *string) {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		*dst = strings.TrimSpace(s)
	}
}

func setMapInt(problems *[]Problem, field string, v any, dst *int) {
	n, ok := asInt(v)
	if !ok {
		*problems = append(*problems, Problem{Field: field, Message: field + " must be an integer"})
		return
	}
	*dst = n
}

func setMapFloat(problems *[]Problem, field string, v any, dst *float64) {
	f, ok := asFloat(v)
	if !ok {
		*problems = append(*problems, Problem{Field: field, Message: field + " must be a number"})
		return
	}
	*dst = f
}

func setMapBool(problems *[]Problem, field string, v any, dst *bool) {
	switch t := v.(type) {
	case bool:
		*dst = t
	case string:
		if b, ok := asBool(t); ok {
			*dst = b
		} else {
			*problems = append(*problems, Problem{Field: field, Message: field + " must be a boolean"})
		}
	default:
		*problems = append(*problems, Problem{Field: field, Message: field + " must be a boolean"})
	}
}

func readStringKey(raw map[string]any, key string) (string, bool) {
	for k, v := range raw {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			s, ok := v.(string)
			return s, ok
		}
	}
	return "", false
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		i, err := t.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	default:
		return 0, false
	}
}

func asBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "y":
		return true, true
	case "false", "0", "no", "n":
		return false, true
	default:
		return false, false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func parseCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseAnyCSV(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
