package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/wiseagents/hectormesh/agent"
	"github.com/wiseagents/hectormesh/message"
)

func TestObserveDispatchRecordsCounterAndErrorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, shutdown, err := NewObserver("test-service", reg)
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	defer shutdown(context.Background())

	o.ObserveDispatch("Answerer", agent.DirectionInbound, message.Query, 5*time.Millisecond, nil)
	o.ObserveDispatch("Answerer", agent.DirectionOutbound, message.Response, 3*time.Millisecond, assertError{})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var dispatchTotal, errorTotal float64
	for _, f := range families {
		switch f.GetName() {
		case "wiseagents_dispatches_total":
			dispatchTotal = sumCounter(f)
		case "wiseagents_dispatch_errors_total":
			errorTotal = sumCounter(f)
		}
	}
	if dispatchTotal != 2 {
		t.Fatalf("dispatches_total = %v, want 2", dispatchTotal)
	}
	if errorTotal != 1 {
		t.Fatalf("dispatch_errors_total = %v, want 1", errorTotal)
	}
}

func sumCounter(f *dto.MetricFamily) float64 {
	var sum float64
	for _, m := range f.GetMetric() {
		sum += m.GetCounter().GetValue()
	}
	return sum
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
