// Package telemetry reports store events as OpenTelemetry counters.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/krisalay/salon-cache/types"
)

const meterName = "github.com/krisalay/salon-cache"

// Metrics implements types.Metrics. Every counter carries a "kind" attribute.
type Metrics struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	coalesced     metric.Int64Counter
	failures      metric.Int64Counter
	discards      metric.Int64Counter
	invalidations metric.Int64Counter
}

var _ types.Metrics = (*Metrics)(nil)

// NewGlobal builds Metrics on the global meter provider.
func NewGlobal() (*Metrics, error) {
	return New(otel.Meter(meterName))
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.hits, "salon.cache.hits", "Fetches served from a fresh cached value"},
		{&m.misses, "salon.cache.misses", "Fetches that started a new data source call"},
		{&m.coalesced, "salon.cache.coalesced", "Fetches that joined a data source call already running"},
		{&m.failures, "salon.cache.fetch_failures", "Data source calls that failed and served the default value"},
		{&m.discards, "salon.cache.discards", "Data source results discarded because the store was invalidated meanwhile"},
		{&m.invalidations, "salon.cache.invalidations", "Times a store was invalidated"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

func record(c metric.Int64Counter, kind types.Kind) {
	c.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}

func (m *Metrics) Hit(k types.Kind)        { record(m.hits, k) }
func (m *Metrics) Miss(k types.Kind)       { record(m.misses, k) }
func (m *Metrics) Coalesced(k types.Kind)  { record(m.coalesced, k) }
func (m *Metrics) Failure(k types.Kind)    { record(m.failures, k) }
func (m *Metrics) Discard(k types.Kind)    { record(m.discards, k) }
func (m *Metrics) Invalidate(k types.Kind) { record(m.invalidations, k) }
