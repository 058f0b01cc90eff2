// Package metrics exports Prometheus metrics for bridge calls, from
// the client side (as a client.Observer) and the server side (as a
// gRPC interceptor).
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/client"
	bridgegrpc "github.com/Stephen-Kimoi/icp-evm-rust-bridge/grpc"
)

const namespace = "bridge"

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10}

// Compile-time interface check.
var _ client.Observer = (*Collector)(nil)

// Collector holds the bridge metrics.
type Collector struct {
	calls         *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	served        *prometheus.CounterVec
	serveDuration *prometheus.HistogramVec
	appErrs       *prometheus.CounterVec
}

// New creates a Collector and registers it with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "calls_total",
				Help:      "Remote calls by procedure and failure class.",
			},
			[]string{"procedure", "class"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "call_duration_seconds",
				Help:      "Time from dispatch to decoded response.",
				Buckets:   durationBuckets,
			},
			[]string{"procedure"},
		),
		served: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "requests_total",
				Help:      "Served procedures by gRPC status code.",
			},
			[]string{"procedure", "code"},
		),
		serveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "request_duration_seconds",
				Help:      "Time spent serving a procedure.",
				Buckets:   durationBuckets,
			},
			[]string{"procedure"},
		),
		appErrs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "outcome_errors_total",
				Help:      "Decoded outcomes carrying the Err alternative.",
			},
			[]string{"procedure"},
		),
	}
	for _, col := range []prometheus.Collector{c.calls, c.callDuration, c.served, c.serveDuration, c.appErrs} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveInvocation records one finished client call. Calls rejected
// before dispatch are counted but not timed.
func (c *Collector) ObserveInvocation(inv *client.Invocation) {
	c.calls.WithLabelValues(inv.Procedure(), bridge.ErrorClass(inv.Err())).Inc()
	if inv.State() != client.StateIdle {
		c.callDuration.WithLabelValues(inv.Procedure()).Observe(inv.Duration().Seconds())
	}
}

// ObserveOutcomeErr counts a decoded Err outcome. The binding leaves
// outcomes to the caller, so callers that branch on them report here.
func (c *Collector) ObserveOutcomeErr(procedure string) {
	c.appErrs.WithLabelValues(procedure).Inc()
}

// UnaryServerInterceptor records every served procedure.
func (c *Collector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		procedure := bridgegrpc.Procedure(info.FullMethod)
		c.served.WithLabelValues(procedure, status.Code(err).String()).Inc()
		c.serveDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// Handler serves the metrics gathered by g in the Prometheus text
// format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
