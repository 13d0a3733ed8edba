// Package metrics implements the ambient observability layer around
// agent dispatch: Prometheus counters/histograms plus OpenTelemetry spans,
// grounded in the same services-wiring practice the teacher applies
// throughout its component manager, even though hector's own dedicated
// observability package lived in a tree this module did not keep (see
// DESIGN.md).
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/wiseagents/hectormesh/agent"
	"github.com/wiseagents/hectormesh/message"
)

// Observer implements agent.Observer over Prometheus counters/histograms
// and an OpenTelemetry tracer, recording one span plus one metric sample
// per dispatch (spec §4.3's inbound/outbound callback boundary is exactly
// where Base calls it).
type Observer struct {
	dispatches *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	tracer     trace.Tracer
}

// NewObserver registers its collectors on reg and returns an Observer
// plus a shutdown func that flushes the trace exporter. Pass
// prometheus.DefaultRegisterer for reg unless the caller runs its own
// registry (tests do, to avoid cross-test collisions).
func NewObserver(serviceName string, reg prometheus.Registerer) (*Observer, func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, nil, err
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)

	o := &Observer{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wiseagents",
			Name:      "dispatches_total",
			Help:      "Count of inbound/outbound message dispatches per agent.",
		}, []string{"agent", "direction", "message_type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wiseagents",
			Name:      "dispatch_errors_total",
			Help:      "Count of dispatches that returned an error.",
		}, []string{"agent", "direction", "message_type"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wiseagents",
			Name:      "dispatch_duration_seconds",
			Help:      "Hook/send latency per dispatch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"agent", "direction", "message_type"}),
		tracer: provider.Tracer("github.com/wiseagents/hectormesh/agent"),
	}

	for _, c := range []prometheus.Collector{o.dispatches, o.errors, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, nil, err
		}
	}

	return o, provider.Shutdown, nil
}

// ObserveDispatch implements agent.Observer.
func (o *Observer) ObserveDispatch(agentName string, dir agent.Direction, msgType message.Type, duration time.Duration, err error) {
	labels := prometheus.Labels{"agent": agentName, "direction": string(dir), "message_type": string(msgType)}
	o.dispatches.With(labels).Inc()
	o.duration.With(labels).Observe(duration.Seconds())
	if err != nil {
		o.errors.With(labels).Inc()
	}

	start := time.Now().Add(-duration)
	_, span := o.tracer.Start(context.Background(), "agent.dispatch",
		trace.WithTimestamp(start),
		trace.WithAttributes(
			attribute.String("agent", agentName),
			attribute.String("direction", string(dir)),
			attribute.String("message_type", string(msgType)),
		),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(start.Add(duration)))
}
