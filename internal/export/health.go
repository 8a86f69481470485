package export

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// HealthConfig configures the Prometheus health metrics server.
type HealthConfig struct {
	// Addr is the listen address for the health metrics server.
	// Empty disables the server; metrics are still collected.
	Addr string `yaml:"addr"`
}

// HealthMetrics exposes Prometheus metrics for the recorder and the
// trace reader. Recorder metrics are only touched at flush and lifecycle
// boundaries, never per event.
type HealthMetrics struct {
	log      logrus.FieldLogger
	addr     string
	server   *http.Server
	listener net.Listener
	registry *prometheus.Registry

	// Recorder
	Flushes             prometheus.Counter
	FlushedBytes        prometheus.Counter
	FlushErrors         prometheus.Counter
	InitFailures        prometheus.Counter
	BufferCapacityBytes prometheus.Gauge
	RecorderState       prometheus.Gauge
	FlushSize           prometheus.Histogram

	// Reader
	EventsDecoded *prometheus.CounterVec // kind
	DecodeErrors  *prometheus.CounterVec // error_type

	running atomic.Bool
}

// NewHealthMetrics creates a new health metrics server.
func NewHealthMetrics(
	log logrus.FieldLogger,
	cfg HealthConfig,
) *HealthMetrics {
	reg := prometheus.NewRegistry()

	h := &HealthMetrics{
		log:      log.WithField("component", "health"),
		addr:     cfg.Addr,
		registry: reg,

		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fntrace",
			Name:      "flushes_total",
			Help:      "Total buffer flushes to the trace file.",
		}),
		FlushedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fntrace",
			Name:      "flushed_bytes_total",
			Help:      "Total bytes drained from the buffer to the trace file.",
		}),
		FlushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fntrace",
			Name:      "flush_errors_total",
			Help:      "Total failed trace file writes.",
		}),
		InitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fntrace",
			Name:      "init_failures_total",
			Help:      "Recorder start-ups that left tracing disabled.",
		}),
		BufferCapacityBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fntrace",
			Name:      "buffer_capacity_bytes",
			Help:      "Trace buffer arena size including headroom.",
		}),
		RecorderState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fntrace",
			Name:      "recorder_state",
			Help:      "Recorder lifecycle state (0=uninitialized, 1=ready, 2=shutdown).",
		}),
		FlushSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fntrace",
			Name:      "flush_size_bytes",
			Help:      "Bytes written per flush.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8), // 64B-1MB
		}),

		EventsDecoded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fntrace",
				Name:      "events_decoded_total",
				Help:      "Total events decoded from trace files by kind.",
			},
			[]string{"kind"},
		),
		DecodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fntrace",
				Name:      "decode_errors_total",
				Help:      "Total trace decode errors by error type.",
			},
			[]string{"error_type"},
		),
	}

	reg.MustRegister(
		h.Flushes,
		h.FlushedBytes,
		h.FlushErrors,
		h.InitFailures,
		h.BufferCapacityBytes,
		h.RecorderState,
		h.FlushSize,
		h.EventsDecoded,
		h.DecodeErrors,
	)

	return h
}

// Registry returns the registry the metrics are registered with.
func (h *HealthMetrics) Registry() *prometheus.Registry {
	return h.registry
}

// Start begins serving the /metrics endpoint. It is a no-op when no
// address is configured.
func (h *HealthMetrics) Start(_ context.Context) error {
	if h.addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		h.registry,
		promhttp.HandlerOpts{},
	))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	// pprof endpoints for CPU/memory profiling.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}

	h.listener = ln

	h.server = &http.Server{
		Handler: mux,
	}

	h.running.Store(true)

	go func() {
		h.log.WithField("addr", ln.Addr().String()).
			Info("Health metrics server started")

		if err := h.server.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			h.log.WithError(err).
				Error("Health metrics server error")
		}

		h.running.Store(false)
	}()

	return nil
}

// Addr returns the actual listener address. Useful when started
// with ":0" to get the OS-assigned port.
func (h *HealthMetrics) Addr() string {
	if h.listener != nil {
		return h.listener.Addr().String()
	}

	return h.addr
}

// Stop gracefully shuts down the health metrics server.
func (h *HealthMetrics) Stop() error {
	if h.server == nil {
		return nil
	}

	return h.server.Close()
}
