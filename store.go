package cache

import (
	"context"
	"strconv"
	"sync"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/krisalay/salon-cache/api"
	"github.com/krisalay/salon-cache/engine"
	"github.com/krisalay/salon-cache/refresh"
	"github.com/krisalay/salon-cache/types"
)

var _ api.Cache[int] = (*Store[int])(nil)

/*
Store is the cache for a single data kind.
This struct is the orchestrator that connects:
- the cached entry
- freshness (through the engine)
- fetching and coalescing
- generations (stale completion discard)
- refresh hooks
- metrics
*/
type Store[T any] struct {
	// kind is the data kind this store holds.
	kind types.Kind

	// engine contains the "rules" of the store: TTL, fetcher, clock, metrics.
	engine *engine.Engine[T]

	// defaultValue is committed and returned whenever a fetch fails, so
	// callers always have something renderable.
	defaultValue T

	// mu guards entry, gen and seq.
	mu    sync.Mutex
	entry types.Entry[T]

	// gen is bumped by Invalidate and Update. A fetch remembers the gen it
	// started in and only commits if gen has not moved since.
	gen uint64

	// seq numbers flights so every new fetch gets a fresh singleflight key.
	seq uint64

	// sf lets every caller that joins a flight wait on the same result.
	sf singleflight.Group

	hooks refresh.Hooks[T]
}

func NewStore[T any](kind types.Kind, engine *engine.Engine[T], defaultValue T) *Store[T] {
	return &Store[T]{
		kind:         kind,
		engine:       engine,
		defaultValue: defaultValue,
	}
}

// Kind returns the data kind this store holds.
func (s *Store[T]) Kind() types.Kind {
	return s.kind
}

// Default returns the fallback value served when a fetch fails.
func (s *Store[T]) Default() T {
	return s.engine.Copy(s.defaultValue)
}

/*
GetCached returns the current value without side effects.
*/
func (s *Store[T]) GetCached() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Copy(s.entry.Value), s.entry.HasValue
}

/*
IsFresh reports whether the committed value is younger than the TTL.
*/
func (s *Store[T]) IsFresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.IsFresh(&s.entry)
}

/*
InFlight reports whether a fetch is currently pending.
*/
func (s *Store[T]) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry.InFlight()
}

/*
Fetch returns a fresh value, joining or starting a fetch when needed.
*/
func (s *Store[T]) Fetch(ctx context.Context) T {
	s.mu.Lock()

	// Fresh hit
	if s.entry.HasValue && s.engine.IsFresh(&s.entry) {
		v := s.entry.Value
		s.mu.Unlock()
		s.engine.Metrics.Hit(s.kind)
		return s.engine.Copy(v)
	}

	/*
		The flight is registered with singleflight while we still hold the
		lock. The flight can only finish by committing under this same lock,
		so a caller that saw entry.Flight is guaranteed to join that exact
		call and never start a second one behind it.
	*/
	key := s.entry.Flight
	if key == "" {
		s.seq++
		key = strconv.FormatUint(s.seq, 10)
		s.entry.Flight = key
		s.engine.Metrics.Miss(s.kind)
	} else {
		s.engine.Metrics.Coalesced(s.kind)
	}
	gen := s.gen
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(key, func() (any, error) {
		return s.load(fetchCtx, gen, key), nil
	})
	s.mu.Unlock()

	select {
	case res := <-ch:
		return s.engine.Copy(res.Val.(T))
	case <-ctx.Done():
		if v, ok := s.GetCached(); ok {
			return v
		}
		return s.engine.Copy(s.defaultValue)
	}
}

/*
load runs the underlying fetch for one flight and commits its result.

Steps:
------
1. Call the data source (no lock held)
2. Replace an error with the default value, and log it
3. Commit only if no Invalidate/Update happened since the flight started
4. Notify refresh hooks about the commit
*/
func (s *Store[T]) load(ctx context.Context, gen uint64, key string) T {
	v, err := s.engine.Load(ctx)
	if err != nil {
		log.WithError(err).WithField("kind", s.kind).Error("fetch failed, serving default")
		s.engine.Metrics.Failure(s.kind)
		v = s.engine.Copy(s.defaultValue)
	}

	s.mu.Lock()
	current := gen == s.gen && s.entry.Flight == key
	if current {
		s.entry = types.Entry[T]{
			Value:     v,
			HasValue:  true,
			FetchedAt: s.engine.Now(),
		}
	}
	s.mu.Unlock()

	if !current {
		log.WithField("kind", s.kind).WithField("flight", key).Debug("discarding result of invalidated fetch")
		s.engine.Metrics.Discard(s.kind)
		return v
	}

	s.hooks.Notify(s.kind, s.engine.Copy(v))
	return v
}

/*
Invalidate clears the entry and moves to a new generation.
*/
func (s *Store[T]) Invalidate() {
	s.mu.Lock()
	s.gen++
	s.entry = types.Entry[T]{}
	s.mu.Unlock()

	s.engine.Metrics.Invalidate(s.kind)
	log.WithField("kind", s.kind).Debug("cache invalidated")
}

/*
Update commits value directly, stamped now.
The generation moves too, so a fetch that started before the update cannot
overwrite the newer value when it completes.
*/
func (s *Store[T]) Update(value T) {
	value = s.engine.Copy(value)

	s.mu.Lock()
	s.gen++
	s.entry = types.Entry[T]{
		Value:     value,
		HasValue:  true,
		FetchedAt: s.engine.Now(),
	}
	s.mu.Unlock()

	s.hooks.Notify(s.kind, s.engine.Copy(value))
}

/*
Watch registers hook to run after every commit.
*/
func (s *Store[T]) Watch(hook refresh.Hook[T]) (cancel func()) {
	return s.hooks.Add(hook)
}
