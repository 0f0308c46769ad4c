// Package salon wires the cache layer to the salon's public data: one store
// per data kind, each with its TTL and fallback value, all listening on one
// invalidation bus.
package salon

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	cache "github.com/krisalay/salon-cache"
	"github.com/krisalay/salon-cache/bus"
	"github.com/krisalay/salon-cache/engine"
	"github.com/krisalay/salon-cache/expiration"
	"github.com/krisalay/salon-cache/types"
)

var (
	global     *Registry
	globalOnce sync.Once
)

// NewGlobal initializes the process-wide registry.
// Only the first call initializes it; later calls are no-ops.
func NewGlobal(src Source, opts ...Option) {
	globalOnce.Do(func() {
		global = NewRegistry(src, opts...)
	})
}

// Global returns the process-wide registry.
// Panics if NewGlobal has not been called.
func Global() *Registry {
	if global == nil {
		panic("salon: NewGlobal must be called before Global")
	}
	return global
}

type options struct {
	ttls    map[types.Kind]time.Duration
	clock   types.Clock
	metrics types.Metrics
	bus     *bus.Bus
}

type Option func(*options)

// WithTTLs overrides the freshness window of the given kinds. Kinds not in
// ttls keep their DefaultTTLs entry.
func WithTTLs(ttls map[types.Kind]time.Duration) Option {
	return func(o *options) {
		for k, v := range ttls {
			o.ttls[k] = v
		}
	}
}

func WithClock(c types.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithMetrics(m types.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithBus uses b instead of a private bus, e.g. to share one bus between
// an admin and a public registry.
func WithBus(b *bus.Bus) Option {
	return func(o *options) { o.bus = b }
}

// Registry owns the five stores.
type Registry struct {
	bus *bus.Bus

	Services     *cache.Store[[]Service]
	Hours        *cache.Store[OpeningHours]
	Settings     *cache.Store[Settings]
	Gallery      *cache.Store[[]Photo]
	Testimonials *cache.Store[[]Testimonial]
}

// NewRegistry builds every store and subscribes it to the bus, so a store
// always clears before any binding of its kind hears the same event.
func NewRegistry(src Source, opts ...Option) *Registry {
	o := &options{ttls: make(map[types.Kind]time.Duration, len(DefaultTTLs))}
	for k, v := range DefaultTTLs {
		o.ttls[k] = v
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.bus == nil {
		o.bus = bus.New()
	}

	// OpeningHours is copied by value; the other kinds are shallow-copied on
	// their way out of the store.
	r := &Registry{bus: o.bus}
	r.Services = newStore(o, types.Services, src.FetchServices, []Service{}, slices.Clone[[]Service])
	r.Hours = newStore(o, types.Hours, src.FetchHours, DefaultOpeningHours(), nil)
	r.Settings = newStore(o, types.Settings, src.FetchSettings, Settings{}, maps.Clone[Settings])
	r.Gallery = newStore(o, types.Gallery, src.FetchGalleryPhotos, []Photo{}, slices.Clone[[]Photo])
	r.Testimonials = newStore(o, types.Testimonials, src.FetchTestimonials, []Testimonial{}, slices.Clone[[]Testimonial])
	return r
}

func newStore[T any](o *options, kind types.Kind, fetch func(context.Context) (T, error), def T, clone func(T) T) *cache.Store[T] {
	eng := engine.NewEngine[T](
		&expiration.ExpireAfterWrite{TTL: o.ttls[kind]},
		types.FetcherFunc[T](fetch),
		o.clock,
		o.metrics,
	)
	eng.Clone = clone
	s := cache.NewStore(kind, eng, def)
	o.bus.Subscribe(kind, func(bus.Event) { s.Invalidate() })
	return s
}

// Bus returns the invalidation bus the stores listen on.
func (r *Registry) Bus() *bus.Bus {
	return r.bus
}

// Warm fetches every kind concurrently, typically at startup so the first
// page view is served from cache.
func (r *Registry) Warm(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { r.Services.Fetch(ctx); return nil })
	g.Go(func() error { r.Hours.Fetch(ctx); return nil })
	g.Go(func() error { r.Settings.Fetch(ctx); return nil })
	g.Go(func() error { r.Gallery.Fetch(ctx); return nil })
	g.Go(func() error { r.Testimonials.Fetch(ctx); return nil })
	if err := g.Wait(); err != nil {
		return err
	}
	// a cancelled caller got cached or default values, not a warm cache
	return ctx.Err()
}

// Invalidate publishes invalidate-<kind> for each kind.
func (r *Registry) Invalidate(kinds ...types.Kind) {
	for _, k := range kinds {
		r.bus.Publish(k)
	}
}

// InvalidateAll publishes invalidate-all.
func (r *Registry) InvalidateAll() {
	r.bus.PublishAll()
}

// Fresh reports, per kind, whether its store currently holds a fresh value.
func (r *Registry) Fresh() map[types.Kind]bool {
	return map[types.Kind]bool{
		types.Services:     r.Services.IsFresh(),
		types.Hours:        r.Hours.IsFresh(),
		types.Settings:     r.Settings.IsFresh(),
		types.Gallery:      r.Gallery.IsFresh(),
		types.Testimonials: r.Testimonials.IsFresh(),
	}
}

// ParseKind converts a user-supplied name into a Kind.
func ParseKind(s string) (types.Kind, error) {
	k := types.Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown data kind %q, want one of %v", s, types.Kinds)
	}
	return k, nil
}
