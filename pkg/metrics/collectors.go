package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheStats срез счётчиков кэша решений
type CacheStats struct {
	Keys   int64
	Hits   int64
	Misses int64
}

// CacheCollector снимает состояние кэша решений в момент scrape.
// Метрики runtime Go уже отдаёт регистратор по умолчанию.
type CacheCollector struct {
	read    func() (CacheStats, error)
	backend string

	keys   *prometheus.Desc
	hits   *prometheus.Desc
	misses *prometheus.Desc
	up     *prometheus.Desc
}

// NewCacheCollector создаёт коллектор; read вызывается на каждый scrape
func NewCacheCollector(namespace, subsystem, backend string, read func() (CacheStats, error)) *CacheCollector {
	labels := prometheus.Labels{"backend": backend}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, labels)
	}
	return &CacheCollector{
		read:    read,
		backend: backend,
		keys:    desc("cache_keys", "Solutions currently held in the cache"),
		hits:    desc("cache_backend_hits_total", "Hits reported by the cache backend"),
		misses:  desc("cache_backend_misses_total", "Misses reported by the cache backend"),
		up:      desc("cache_up", "Whether the last stats read from the cache backend succeeded"),
	}
}

// Describe implements prometheus.Collector
func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.hits
	ch <- c.misses
	ch <- c.up
}

// Collect implements prometheus.Collector
func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	st, err := c.read()
	if err != nil {
		// Бэкенд недоступен: отдаём только cache_up=0
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(st.Keys))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Misses))
}

// SolveTracker отслеживает решения, выполняемые в данный момент
type SolveTracker struct {
	mu       sync.Mutex
	active   map[string]int
	inFlight prometheus.Gauge
}

// NewSolveTracker создаёт трекер; inFlight может быть nil
func NewSolveTracker(inFlight prometheus.Gauge) *SolveTracker {
	return &SolveTracker{
		active:   make(map[string]int),
		inFlight: inFlight,
	}
}

// Start отмечает начало решения для входа input
func (t *SolveTracker) Start(input string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active[input]++
	if t.inFlight != nil {
		t.inFlight.Inc()
	}
}

// End отмечает завершение решения
func (t *SolveTracker) End(input string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active[input] == 0 {
		return
	}
	t.active[input]--
	if t.active[input] == 0 {
		delete(t.active, input)
	}
	if t.inFlight != nil {
		t.inFlight.Dec()
	}
}

// Active возвращает число активных решений
func (t *SolveTracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, c := range t.active {
		n += c
	}
	return n
}
