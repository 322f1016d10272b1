// Package monitor exposes the engine's running state over Prometheus and a
// gorilla/mux health endpoint, mirroring the node's own
// chain/monitoring/metrics.go: a registry of gauges/counters updated on a
// ticker, served behind a plain net/http.Server.
package monitor

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quantum-vault-engine/engine/ops"
)

// Server polls an Engine's read-only accessors on an interval and republishes
// them as Prometheus gauges, alongside a JSON health endpoint.
type Server struct {
	engine      *ops.Engine
	listenAddr  string
	pollEvery   time.Duration
	registry    *prometheus.Registry
	httpServer  *http.Server

	poolIndex        prometheus.Gauge
	rewardsEmitted   prometheus.Gauge
	totalRewards     prometheus.Gauge
	totalAllocPoints prometheus.Gauge
	vaultCount       prometheus.Gauge
	poolPaused       prometheus.Gauge
	poolFrozen       prometheus.Gauge
	operationTotal   *prometheus.CounterVec
	operationErrors  *prometheus.CounterVec
	goroutineCount   prometheus.Gauge

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewServer constructs a metrics server bound to listenAddr, polling engine
// state every pollEvery (§2 Monitoring layer of the domain stack).
func NewServer(engine *ops.Engine, listenAddr string, pollEvery time.Duration) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	registry := prometheus.NewRegistry()

	s := &Server{
		engine:     engine,
		listenAddr: listenAddr,
		pollEvery:  pollEvery,
		registry:   registry,
		ctx:        ctx,
		cancel:     cancel,

		poolIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_engine_pool_index",
			Help: "Current cumulative pool reward index, scaled by 1e18.",
		}),
		rewardsEmitted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_engine_rewards_emitted",
			Help: "Cumulative rewards emitted by the pool, scaled by 1e18.",
		}),
		totalRewards: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_engine_total_rewards",
			Help: "Pool's total reward envelope, scaled by 1e18.",
		}),
		totalAllocPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_engine_total_alloc_points",
			Help: "Sum of alloc points across all active vaults.",
		}),
		vaultCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_engine_vault_count",
			Help: "Number of vaults known to the store.",
		}),
		poolPaused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_engine_pool_paused",
			Help: "1 if the pool is currently paused, 0 otherwise.",
		}),
		poolFrozen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_engine_pool_frozen",
			Help: "1 if the pool is currently frozen, 0 otherwise.",
		}),
		operationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_engine_operation_total",
			Help: "Total operations accepted by the engine, by verb.",
		}, []string{"op"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_engine_operation_errors_total",
			Help: "Total operations rejected by the engine, by verb.",
		}, []string{"op"}),
		goroutineCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_engine_goroutines",
			Help: "Number of goroutines in the serving process.",
		}),
	}

	for _, c := range []prometheus.Collector{
		s.poolIndex, s.rewardsEmitted, s.totalRewards, s.totalAllocPoints,
		s.vaultCount, s.poolPaused, s.poolFrozen, s.operationTotal,
		s.operationErrors, s.goroutineCount,
	} {
		s.registry.MustRegister(c)
	}

	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := mux.NewRouter()
	r.Path("/metrics").Handler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Path("/healthz").HandlerFunc(s.healthHandler)
	s.httpServer = &http.Server{Addr: s.listenAddr, Handler: r}
}

// RecordOperation increments the accepted/rejected counter for an operation
// verb (§4.5's `op` label). cmd/vault-engine does not call it, so the
// operation counters stay at zero unless an embedding caller records them.
func (s *Server) RecordOperation(op string, err error) {
	if err != nil {
		s.operationErrors.WithLabelValues(op).Inc()
		return
	}
	s.operationTotal.WithLabelValues(op).Inc()
}

// Start launches the polling loop and the HTTP server in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.wg.Add(1)
	go s.pollLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err) // programmer error: listenAddr unparseable or already bound
		}
	}()

	s.running = true
	return nil
}

// Stop shuts down the HTTP server and polling loop, waiting for both to
// finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)

	s.wg.Wait()
	s.running = false
	return err
}

func (s *Server) pollLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.poll()
		}
	}
}

func (s *Server) poll() {
	s.goroutineCount.Set(float64(runtime.NumGoroutine()))

	pool, err := s.engine.PoolStatus()
	if err != nil {
		return
	}
	setU256Gauge(s.poolIndex, pool.Index)
	setU256Gauge(s.rewardsEmitted, pool.RewardsEmitted)
	setU256Gauge(s.totalRewards, pool.TotalRewards)
	setU256Gauge(s.totalAllocPoints, pool.TotalAllocPoints)
	if pool.Paused {
		s.poolPaused.Set(1)
	} else {
		s.poolPaused.Set(0)
	}
	if pool.Frozen {
		s.poolFrozen.Set(1)
	} else {
		s.poolFrozen.Set(0)
	}

	vaults, err := s.engine.ListVaults(time.Now().Unix(), ops.FilterAll)
	if err != nil {
		return
	}
	s.vaultCount.Set(float64(len(vaults)))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	pool, err := s.engine.PoolStatus()
	status := http.StatusOK
	body := map[string]interface{}{"status": "healthy"}
	if err != nil {
		status = http.StatusServiceUnavailable
		body = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
	} else if pool.Frozen {
		body["status"] = "frozen"
	} else if pool.Paused {
		body["status"] = "paused"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// setU256Gauge publishes a uint256 value as a float64 gauge. Prometheus's
// wire format is float64-native, so values above 2^53 lose precision; this
// is acceptable for dashboarding, never for settlement math.
func setU256Gauge(g prometheus.Gauge, v *uint256.Int) {
	f := new(big.Float).SetInt(v.ToBig())
	asFloat, _ := f.Float64()
	g.Set(asFloat)
}
