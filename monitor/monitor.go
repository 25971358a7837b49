// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlineSessions   prometheus.Gauge
	ActiveRooms      prometheus.GaugeFunc
	MessagesReceived prometheus.Counter
	Guesses          *prometheus.CounterVec
	Rounds           *prometheus.CounterVec
	MessageLatency   prometheus.Histogram
}

// NewMetrics 注册所有指标。activeRooms 在每次抓取时调用。
func NewMetrics(namespace string, reg prometheus.Registerer, activeRooms func() int) *Metrics {
	m := &Metrics{
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of open websocket sessions",
		}),
		ActiveRooms: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms in the registry, including empty rooms awaiting teardown",
		}, func() float64 {
			return float64(activeRooms())
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of websocket messages received",
		}),
		Guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "letter_guesses_total",
			Help:      "Letter guesses by result",
		}, []string{"result"}),
		Rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_finished_total",
			Help:      "Finished rounds by outcome",
		}, []string{"outcome"}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	reg.MustRegister(
		m.OnlineSessions,
		m.ActiveRooms,
		m.MessagesReceived,
		m.Guesses,
		m.Rounds,
		m.MessageLatency,
	)

	return m
}

// Monitor 的所有方法都允许 nil 接收者，未启用监控时直接忽略
type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

func NewMonitor(namespace string, activeRooms func() int) *Monitor {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := &Monitor{
		metrics:   NewMetrics(namespace, registry, activeRooms),
		registry:  registry,
		startTime: time.Now(),
	}
	publishExpvar(m)
	return m
}

var expvarOnce sync.Once

// expvar 的名字是进程级的，只发布第一个 Monitor
func publishExpvar(m *Monitor) {
	expvarOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			return m.RequestCount()
		}))
	})
}

// Handler serves the prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (m *Monitor) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Monitor) IncOnlineSessions() {
	if m == nil {
		return
	}
	m.metrics.OnlineSessions.Inc()
}

func (m *Monitor) DecOnlineSessions() {
	if m == nil {
		return
	}
	m.metrics.OnlineSessions.Dec()
}

func (m *Monitor) IncMessagesReceived() {
	if m == nil {
		return
	}
	m.metrics.MessagesReceived.Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) RequestCount() int64 {
	if m == nil {
		return 0
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.requestCount
}

// ObserveGuess 按命中与否统计字母猜测
func (m *Monitor) ObserveGuess(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.metrics.Guesses.WithLabelValues(result).Inc()
}

func (m *Monitor) ObserveRound(win bool) {
	if m == nil {
		return
	}
	outcome := "loss"
	if win {
		outcome = "win"
	}
	m.metrics.Rounds.WithLabelValues(outcome).Inc()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.metrics.MessageLatency.Observe(duration.Seconds())
}
