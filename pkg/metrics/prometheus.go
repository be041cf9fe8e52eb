package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics глобальный контейнер метрик
type Metrics struct {
	// Решения
	SolveOperationsTotal *prometheus.CounterVec
	SolveDuration        *prometheus.HistogramVec
	SolvesInFlight       prometheus.Gauge
	MinimumCost          *prometheus.GaugeVec
	BlockedLinks         *prometheus.HistogramVec

	// Бинарный поиск и оракул
	SearchIterationsTotal *prometheus.CounterVec
	OracleCallDuration    *prometheus.HistogramVec
	FormulaClauses        *prometheus.HistogramVec
	FormulaVariables      *prometheus.HistogramVec

	// Размер входной сети
	NetworkNodesTotal *prometheus.HistogramVec
	NetworkLinksTotal *prometheus.HistogramVec

	// Кэш и проверка
	CacheRequestsTotal *prometheus.CounterVec
	VerificationsTotal *prometheus.CounterVec

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics инициализирует метрики в prometheus.DefaultRegisterer
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		SolveOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_operations_total",
				Help:      "Total number of blocking solves",
			},
			[]string{"oracle", "status"},
		),

		SolveDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of blocking solves",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"oracle"},
		),

		SolvesInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solves_in_flight",
				Help:      "Current number of solves being processed",
			},
		),

		MinimumCost: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "minimum_cost",
				Help:      "Last minimum blocking cost found",
			},
			[]string{"oracle"},
		),

		BlockedLinks: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "blocked_links",
				Help:      "Number of links blocked by a solution",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
			[]string{"oracle"},
		),

		SearchIterationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "search_iterations_total",
				Help:      "Total number of binary search oracle queries",
			},
			[]string{"oracle", "verdict"},
		),

		OracleCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "oracle_call_duration_seconds",
				Help:      "Duration of single oracle queries",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"oracle", "verdict"},
		),

		FormulaClauses: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "formula_clauses",
				Help:      "Number of clauses submitted to the oracle",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
			},
			[]string{"oracle"},
		),

		FormulaVariables: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "formula_variables",
				Help:      "Number of variables allocated for a query",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
			},
			[]string{"oracle"},
		),

		NetworkNodesTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_nodes_total",
				Help:      "Number of nodes in processed networks",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
			[]string{"operation"},
		),

		NetworkLinksTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_links_total",
				Help:      "Number of links in processed networks",
				Buckets:   []float64{20, 100, 500, 1000, 5000, 10000, 50000, 100000},
			},
			[]string{"operation"},
		),

		CacheRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_requests_total",
				Help:      "Result cache lookups",
			},
			[]string{"result"},
		),

		VerificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "verifications_total",
				Help:      "Independent max-flow verifications of solutions",
			},
			[]string{"status"},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("netblock", "")
	}
	return defaultMetrics
}

// RecordSolveOperation записывает метрики решения
func (m *Metrics) RecordSolveOperation(oracle string, success bool, duration time.Duration, cost int64, blocked int) {
	status := "success"
	if !success {
		status = "error"
	}

	m.SolveOperationsTotal.WithLabelValues(oracle, status).Inc()
	m.SolveDuration.WithLabelValues(oracle).Observe(duration.Seconds())
	if success {
		m.MinimumCost.WithLabelValues(oracle).Set(float64(cost))
		m.BlockedLinks.WithLabelValues(oracle).Observe(float64(blocked))
	}
}

// RecordIteration записывает один запрос к оракулу
func (m *Metrics) RecordIteration(oracle, verdict string, duration time.Duration, clauses, variables int) {
	m.SearchIterationsTotal.WithLabelValues(oracle, verdict).Inc()
	m.OracleCallDuration.WithLabelValues(oracle, verdict).Observe(duration.Seconds())
	m.FormulaClauses.WithLabelValues(oracle).Observe(float64(clauses))
	m.FormulaVariables.WithLabelValues(oracle).Observe(float64(variables))
}

// RecordNetworkSize записывает размер сети
func (m *Metrics) RecordNetworkSize(operation string, nodes, links int) {
	m.NetworkNodesTotal.WithLabelValues(operation).Observe(float64(nodes))
	m.NetworkLinksTotal.WithLabelValues(operation).Observe(float64(links))
}

// RecordCache записывает попадание или промах кэша
func (m *Metrics) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordVerification записывает результат проверки max-flow
func (m *Metrics) RecordVerification(ok bool) {
	status := "passed"
	if !ok {
		status = "failed"
	}
	m.VerificationsTotal.WithLabelValues(status).Inc()
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer собирает HTTP сервер для метрик, не запуская его
func NewServer(port int, path string) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, ошибка записи не критична
	})

	return &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// StartMetricsServer запускает HTTP сервер для метрик
func StartMetricsServer(port int, path string) error {
	return NewServer(port, path).ListenAndServe()
}
