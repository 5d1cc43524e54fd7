package node

import (
	"fmt"
	"sync"

	abciserver "github.com/cometbft/cometbft/abci/server"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ahwlsqja/volrank/abci"
	"github.com/ahwlsqja/volrank/metrics"
	"github.com/ahwlsqja/volrank/persistence"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "volrank"

// Node serves the volrank application to CometBFT.
type Node struct {
	mu sync.RWMutex

	config  *Config
	app     *abci.Application
	store   persistence.Store
	server  service.Service // ABCI 서버
	metrics *metrics.Server // 매트릭 서버

	// State
	running bool
	closed  bool

	logger log.Logger
}

// OpenStore opens the store selected by cfg.DBBackend.
func OpenStore(cfg *Config) (persistence.Store, error) {
	switch cfg.DBBackend {
	case BackendMemDB:
		return persistence.NewMemoryStore(), nil
	case BackendGoLevelDB:
		store, err := persistence.NewLevelStore(cfg.DBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open store at %s: %w", cfg.DBPath(), err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.DBBackend)
	}
}

// NewNode opens the store, restores the application and prepares the ABCI server.
func NewNode(config *Config, logger log.Logger) (*Node, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	store, err := OpenStore(config)
	if err != nil {
		return nil, err
	}

	var rec metrics.Recorder = &metrics.NullMetrics{}
	var metricsServer *metrics.Server
	if config.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		rec = metrics.NewMetrics(MetricsNamespace, reg)
		metricsServer = metrics.NewServer(config.MetricsAddr, reg)
	}

	app, err := abci.NewApplication(store, rec, logger.With("module", "abci"))
	if err != nil {
		store.Close()
		return nil, err
	}

	srv, err := abciserver.NewServer(config.ABCIAddr, config.Transport, app)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create ABCI server: %w", err)
	}
	srv.SetLogger(logger.With("module", "abci-server"))

	return &Node{
		config:  config,
		app:     app,
		store:   store,
		server:  srv,
		metrics: metricsServer,
		logger:  logger,
	}, nil
}

// Start starts the ABCI server and, if enabled, the metrics server.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return fmt.Errorf("node already running")
	}
	if n.closed {
		return fmt.Errorf("node is stopped")
	}

	if err := n.server.Start(); err != nil {
		return fmt.Errorf("failed to start ABCI server: %w", err)
	}
	if n.metrics != nil {
		if err := n.metrics.Start(); err != nil {
			n.server.Stop()
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		n.logger.Info("metrics server started", "addr", n.config.MetricsAddr)
	}
	n.running = true

	n.logger.Info("volrank node started",
		"abci", n.config.ABCIAddr,
		"transport", n.config.Transport,
		"db", n.config.DBBackend,
		"height", n.app.Height(),
	)
	return nil
}

// Stop stops the servers and closes the store.
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}

	if n.running {
		n.logger.Info("stopping volrank node")
		if n.metrics != nil {
			if err := n.metrics.Stop(); err != nil {
				n.logger.Error("failed to stop metrics server", "err", err)
			}
		}
		if err := n.server.Stop(); err != nil {
			n.logger.Error("failed to stop ABCI server", "err", err)
		}
		n.running = false
	}
	n.closed = true
	return n.store.Close()
}

// MetricsErr reports a metrics listener failure. It never fires when metrics are disabled.
func (n *Node) MetricsErr() <-chan error {
	if n.metrics == nil {
		return nil
	}
	return n.metrics.Err()
}

// App returns the application.
func (n *Node) App() *abci.Application {
	return n.app
}

// IsRunning returns true if the node is running.
func (n *Node) IsRunning() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.running
}
