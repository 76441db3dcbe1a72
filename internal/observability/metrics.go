package observability

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

const namespace = "ev"

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge
	sseStreams  prometheus.Gauge

	aggregateOps      *prometheus.CounterVec
	aggregateLatency  *prometheus.HistogramVec
	aggregateConflict *prometheus.CounterVec
	aggregateRetry    *prometheus.CounterVec

	distributions        prometheus.Counter
	distributionSize     prometheus.Histogram
	distributionWarnings prometheus.Counter
	recalculations       *prometheus.CounterVec
	dataQuality          *prometheus.CounterVec

	mqConsumed *prometheus.CounterVec
	mqLatency  *prometheus.HistogramVec

	activeBudgets prometheus.Gauge
	budgetedHours prometheus.Gauge
	earnedHours   prometheus.Gauge

	pgStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

// Init builds the process-wide metrics set. Callers resolve enabled from
// config; Enabled reads METRICS_ENABLED directly.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics(prometheus.NewRegistry())
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// NewMetrics registers every collector on reg. Tests pass a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request latency in seconds by method/route/status.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_inflight_requests",
			Help:      "In-flight API requests.",
		}),
		sseStreams: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_open_streams",
			Help:      "Open project event streams.",
		}),
		aggregateOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_operations_total",
			Help:      "Aggregate write operations by name/status.",
		}, []string{"aggregate", "status"}),
		aggregateLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregate_operation_duration_seconds",
			Help:      "Aggregate write latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"aggregate", "status"}),
		aggregateConflict: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_conflicts_total",
			Help:      "Aggregate writes that ended in a conflict.",
		}, []string{"aggregate"}),
		aggregateRetry: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_retryable_total",
			Help:      "Aggregate writes that ended in a retryable error.",
		}, []string{"aggregate"}),
		distributions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_distributions_total",
			Help:      "Budget versions distributed across components.",
		}),
		distributionSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "budget_distribution_components",
			Help:      "Components allocated per distribution.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
		}),
		distributionWarnings: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_distribution_warnings_total",
			Help:      "Components that fell back to the baseline weight.",
		}),
		recalculations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "earned_value_recalculations_total",
			Help:      "Earned-value recalculations by outcome.",
		}, []string{"status"}),
		dataQuality: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_quality_issues_total",
			Help:      "Input data issues by stage/issue.",
		}, []string{"stage", "issue"}),
		mqConsumed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mq_messages_total",
			Help:      "Consumed broker messages by routing key/outcome.",
		}, []string{"routing_key", "outcome"}),
		mqLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mq_consume_duration_seconds",
			Help:      "Time to handle one broker message.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"routing_key"}),
		activeBudgets: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_budgets",
			Help:      "Projects with an active manhour budget.",
		}),
		budgetedHours: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_budgeted_hours",
			Help:      "Budgeted hours across all active budget versions.",
		}),
		earnedHours: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_earned_hours",
			Help:      "Earned hours across all active budget versions.",
		}),
		pgStats: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "postgres_pool",
			Help:      "database/sql pool statistics.",
		}, []string{"stat"}),
		redisUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redis_up",
			Help:      "1 when the last redis ping succeeded.",
		}),
		redisPing: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redis_ping_seconds",
			Help:      "Latency of the last redis ping.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// SSEStreamOpened and SSEStreamClosed track long-lived event streams, which
// are kept out of the request latency histogram.
func (m *Metrics) SSEStreamOpened() {
	if m == nil {
		return
	}
	m.sseStreams.Inc()
}

func (m *Metrics) SSEStreamClosed() {
	if m == nil {
		return
	}
	m.sseStreams.Dec()
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if name == "" {
		name = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.aggregateOps.WithLabelValues(name, status).Inc()
	m.aggregateLatency.WithLabelValues(name, status).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflict.WithLabelValues(name).Inc()
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetry.WithLabelValues(name).Inc()
}

func (m *Metrics) ObserveDistribution(components, warnings int) {
	if m == nil {
		return
	}
	m.distributions.Inc()
	m.distributionSize.Observe(float64(components))
	if warnings > 0 {
		m.distributionWarnings.Add(float64(warnings))
	}
}

func (m *Metrics) IncRecalculation(status string) {
	if m == nil {
		return
	}
	if status == "" {
		status = "unknown"
	}
	m.recalculations.WithLabelValues(status).Inc()
}

func (m *Metrics) IncDataQuality(stage, issue string) {
	if m == nil {
		return
	}
	m.dataQuality.WithLabelValues(stage, issue).Inc()
}

func (m *Metrics) ObserveMQMessage(routingKey, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.mqConsumed.WithLabelValues(routingKey, outcome).Inc()
	m.mqLatency.WithLabelValues(routingKey).Observe(dur.Seconds())
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := scrapeInterval()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

// StartBudgetCollector polls the active budget versions and their allocation
// totals.
func (m *Metrics) StartBudgetCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.collectBudgets(ctx, db); err != nil && log != nil {
					log.Warn("metrics: active budget query failed", "error", err)
				}
			}
		}
	}()
}

func (m *Metrics) collectBudgets(ctx context.Context, db *gorm.DB) error {
	var active int64
	if err := db.WithContext(ctx).
		Model(&types.ManhourBudget{}).
		Where("is_active = ?", true).
		Count(&active).Error; err != nil {
		return err
	}
	var sums struct {
		Budgeted float64
		Earned   float64
	}
	if err := db.WithContext(ctx).
		Table("component_manhour_allocation AS a").
		Joins("JOIN manhour_budget b ON b.id = a.budget_id AND b.is_active").
		Select("COALESCE(SUM(a.budgeted_hours),0) AS budgeted, COALESCE(SUM(a.earned_hours),0) AS earned").
		Scan(&sums).Error; err != nil {
		return err
	}
	m.activeBudgets.Set(float64(active))
	m.budgetedHours.Set(sums.Budgeted)
	m.earnedHours.Set(sums.Earned)
	return nil
}
