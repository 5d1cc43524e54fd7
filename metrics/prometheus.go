// Package metrics provides Prometheus metrics for the volume leaderboard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation results.
const (
	ResultOK      = "ok"
	ResultAborted = "aborted"
	ResultInvalid = "invalid"
)

// Recorder is what the application reports to. Metrics and NullMetrics implement it.
type Recorder interface {
	RecordOperation(op, result string)
	IncrementEvictions()
	SetLedgerSize(n int)
	SetTopSize(n int)
	SetPool(pool uint32)
	SetBlockHeight(height int64)
	RecordBlockExecutionTime(d time.Duration)
}

// Metrics holds all Prometheus metrics for the tracker.
type Metrics struct {
	operationsTotal    *prometheus.CounterVec // 연산 종류/결과별 횟수
	evictionsTotal     prometheus.Counter     // 상위 집합 교체 횟수
	ledgerAccounts     prometheus.Gauge       // 원장 계정 수
	topAccounts        prometheus.Gauge       // 상위 집합 크기
	pool               prometheus.Gauge       // 보상 풀
	blockHeight        prometheus.Gauge       // 마지막 블록 높이
	blockExecutionTime prometheus.Histogram   // 블록 실행 시간
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{}

	m.operationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of state machine operations by type and result",
	}, []string{"op", "result"})

	m.evictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "top_evictions_total",
		Help:      "Total number of top set members displaced by a larger account",
	})

	m.ledgerAccounts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_accounts",
		Help:      "Number of accounts in the ledger",
	})

	m.topAccounts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "top_accounts",
		Help:      "Number of occupied top set slots",
	})

	m.pool = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reward_pool",
		Help:      "Current reward pool size",
	})

	m.blockHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "block_height",
		Help:      "Last finalized block height",
	})

	m.blockExecutionTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "block_execution_seconds",
		Help:      "Time to execute blocks in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	})

	reg.MustRegister(
		m.operationsTotal,
		m.evictionsTotal,
		m.ledgerAccounts,
		m.topAccounts,
		m.pool,
		m.blockHeight,
		m.blockExecutionTime,
	)

	return m
}

// RecordOperation counts one operation.
func (m *Metrics) RecordOperation(op, result string) {
	m.operationsTotal.WithLabelValues(op, result).Inc()
}

// IncrementEvictions increments the eviction counter.
func (m *Metrics) IncrementEvictions() {
	m.evictionsTotal.Inc()
}

// SetLedgerSize sets the ledger size gauge.
func (m *Metrics) SetLedgerSize(n int) {
	m.ledgerAccounts.Set(float64(n))
}

// SetTopSize sets the top set size gauge.
func (m *Metrics) SetTopSize(n int) {
	m.topAccounts.Set(float64(n))
}

// SetPool sets the pool gauge.
func (m *Metrics) SetPool(pool uint32) {
	m.pool.Set(float64(pool))
}

// SetBlockHeight sets the current block height.
func (m *Metrics) SetBlockHeight(height int64) {
	m.blockHeight.Set(float64(height))
}

// RecordBlockExecutionTime records the block execution time.
func (m *Metrics) RecordBlockExecutionTime(d time.Duration) {
	m.blockExecutionTime.Observe(d.Seconds())
}

// Server provides 프로메테우스 매트릭을 위한 HTTP 서버를 제공
type Server struct {
	addr   string
	server *http.Server
	errCh  chan error
}

// NewServer creates a new metrics HTTP server backed by gatherer.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		addr: addr,
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		errCh: make(chan error, 1),
	}
}

// Start starts the metrics server in the background.
func (s *Server) Start() error {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.errCh <- err
		}
	}()
	return nil
}

// Err reports a listener failure after Start.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Stop stops the metrics server.
func (s *Server) Stop() error {
	return s.server.Close()
}

// NullMetrics is a no-op implementation of metrics for testing.
type NullMetrics struct{}

func (n *NullMetrics) RecordOperation(op, result string)         {}
func (n *NullMetrics) IncrementEvictions()                       {}
func (n *NullMetrics) SetLedgerSize(c int)                       {}
func (n *NullMetrics) SetTopSize(c int)                          {}
func (n *NullMetrics) SetPool(pool uint32)                       {}
func (n *NullMetrics) SetBlockHeight(height int64)               {}
func (n *NullMetrics) RecordBlockExecutionTime(d time.Duration) {}
