package metricsx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	kafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag by topic.",
		},
		[]string{"topic", "group"},
	)
	influxWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "influx_write_failures_total",
			Help: "Total InfluxDB write failures.",
		},
	)
	readingsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readings_generated_total",
			Help: "Total synthetic readings generated by category.",
		},
		[]string{"category"},
	)
	evaluationCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_cycles_total",
			Help: "Total evaluation cycles run by category and outcome.",
		},
		[]string{"category", "outcome"},
	)
	evaluationLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluation_cycle_duration_seconds",
			Help:    "Evaluation cycle latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	alertsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_emitted_total",
			Help: "Total alerts emitted by category and severity.",
		},
		[]string{"category", "severity"},
	)
	alertsVisible = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "alerts_visible",
			Help: "Number of currently visible alerts.",
		},
	)
	asynqQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asynq_queue_depth",
			Help: "Number of tasks pending in an asynq queue.",
		},
		[]string{"queue"},
	)
	sseClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_clients",
			Help: "Number of connected SSE clients.",
		},
	)
)

func Register() {
	prometheus.MustRegister(httpRequests, httpLatency, kafkaConsumerLag, influxWriteFailures, readingsGenerated, evaluationCycles, evaluationLatency, alertsEmitted, alertsVisible, asynqQueueDepth, sseClients)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		status := strconv.Itoa(lrw.statusCode)
		httpRequests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpLatency.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
	})
}

func SetKafkaLag(topic string, group string, lag int64) {
	kafkaConsumerLag.WithLabelValues(topic, group).Set(float64(lag))
}

func IncInfluxWriteFailure() {
	influxWriteFailures.Inc()
}

func IncReadingGenerated(category string) {
	readingsGenerated.WithLabelValues(category).Inc()
}

func IncEvaluationCycle(category string, outcome string) {
	evaluationCycles.WithLabelValues(category, outcome).Inc()
}

func ObserveEvaluationLatency(d time.Duration) {
	evaluationLatency.Observe(d.Seconds())
}

func IncAlertEmitted(category string, severity string) {
	alertsEmitted.WithLabelValues(category, severity).Inc()
}

func SetAlertsVisible(n int) {
	alertsVisible.Set(float64(n))
}

func SetAsynqQueueDepth(queue string, depth int) {
	asynqQueueDepth.WithLabelValues(queue).Set(float64(depth))
}

func SetSSEClients(n int) {
	sseClients.Set(float64(n))
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
