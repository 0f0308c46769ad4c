package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/krisalay/salon-cache/binding"
	"github.com/krisalay/salon-cache/salon"
	"github.com/krisalay/salon-cache/types"
	"github.com/krisalay/salon-cache/writepolicy"
)

// ================= BACKING STORE =================

// memorySource is the demo's booking backend. Every fetch is slow enough for
// concurrent callers to overlap.
type memorySource struct {
	mu       sync.Mutex
	services []salon.Service
	hours    salon.OpeningHours
	settings salon.Settings
	calls    map[types.Kind]*atomic.Int64

	failTestimonials bool
}

func newMemorySource() *memorySource {
	s := &memorySource{
		services: []salon.Service{
			{ID: "1", Name: "Cut & Finish", Price: 45, Duration: 60},
			{ID: "2", Name: "Colour", Price: 80, Duration: 120},
		},
		hours:    salon.DefaultOpeningHours(),
		settings: salon.Settings{"phone": "020 7946 0000"},
		calls:    make(map[types.Kind]*atomic.Int64),
	}
	for _, k := range types.Kinds {
		s.calls[k] = &atomic.Int64{}
	}
	return s
}

func (s *memorySource) call(k types.Kind) {
	n := s.calls[k].Add(1)
	fmt.Printf("STORE  → fetch %s (call #%d)\n", k, n)
	time.Sleep(50 * time.Millisecond)
}

func (s *memorySource) FetchServices(context.Context) ([]salon.Service, error) {
	s.call(types.Services)
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]salon.Service(nil), s.services...), nil
}

func (s *memorySource) FetchHours(context.Context) (salon.OpeningHours, error) {
	s.call(types.Hours)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hours, nil
}

func (s *memorySource) FetchSettings(context.Context) (salon.Settings, error) {
	s.call(types.Settings)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(salon.Settings, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

func (s *memorySource) FetchGalleryPhotos(context.Context) ([]salon.Photo, error) {
	s.call(types.Gallery)
	return []salon.Photo{}, nil
}

func (s *memorySource) FetchTestimonials(context.Context) ([]salon.Testimonial, error) {
	s.call(types.Testimonials)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTestimonials {
		return nil, errors.New("503 service unavailable")
	}
	return []salon.Testimonial{{ID: "1", Name: "Ana", Text: "Lovely", Rating: 5}}, nil
}

func (s *memorySource) SaveSettings(_ context.Context, v salon.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, val := range v {
		s.settings[k] = val
	}
	fmt.Println("STORE  → save settings")
	return nil
}

func (s *memorySource) SaveServices(_ context.Context, v []salon.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = append(s.services, v...)
	fmt.Println("STORE  → save services")
	return nil
}

func (s *memorySource) setHours(d time.Weekday, h salon.DayHours) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hours.SetDay(d, h)
}

// ================= CLOCK =================

// demoClock is the wall clock plus an offset the demo can advance.
type demoClock struct {
	offset atomic.Int64
}

func (c *demoClock) Now() time.Time { return time.Now().Add(time.Duration(c.offset.Load())) }

func (c *demoClock) Advance(d time.Duration) { c.offset.Add(int64(d)) }

// ================= DEMO =================

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk through caching, coalescing and invalidation with an in-memory backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.Context())
	},
}

func runDemo(ctx context.Context) error {
	fmt.Println("\n==================== SYSTEM BOOT ====================")
	ttls := cfg.TTL.Table()
	for _, k := range types.Kinds {
		fmt.Printf("TTL %-13s: %v\n", k, ttls[k])
	}

	src := newMemorySource()
	clock := &demoClock{}

	metrics, report, err := setupMetrics()
	if err != nil {
		return err
	}
	defer report.shutdown()

	salon.NewGlobal(src,
		salon.WithTTLs(ttls),
		salon.WithClock(clock),
		salon.WithMetrics(metrics),
	)
	reg := salon.Global()

	// ====================================================
	fmt.Println("\n==================== 1) CACHE MISS ====================")
	services := reg.Services.Fetch(ctx)
	fmt.Println("CACHE  → services =", len(services))

	// ====================================================
	fmt.Println("\n==================== 2) CACHE HIT ====================")
	services = reg.Services.Fetch(ctx)
	fmt.Println("CACHE  → services =", len(services), "(no fetch)")

	// ====================================================
	fmt.Println("\n==================== 3) TTL EXPIRATION ====================")
	clock.Advance(ttls[types.Services] + time.Second)
	fmt.Println("CLOCK  → advanced past the services TTL")
	fmt.Println("CACHE  → fresh =", reg.Services.IsFresh())
	reg.Services.Fetch(ctx)

	// ====================================================
	fmt.Println("\n==================== 4) COALESCING ====================")
	reg.Invalidate(types.Gallery)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			photos := reg.Gallery.Fetch(ctx)
			fmt.Printf("GOROUTINE-%d → gallery = %d photos\n", id, len(photos))
		}(i)
	}
	wg.Wait()
	fmt.Println("STORE  → gallery calls =", src.calls[types.Gallery].Load())

	// ====================================================
	fmt.Println("\n==================== 5) BUS INVALIDATION ====================")
	hours := reg.BindHours(func(s binding.Snapshot[salon.OpeningHours]) {
		fmt.Printf("VIEW   → hours %-7s saturday=%+v\n", s.State, s.Value.Saturday)
	})
	hours.Mount(ctx)
	hours.Wait()

	src.setHours(time.Saturday, salon.DayHours{Open: "10:00", Close: "16:00"})
	fmt.Println("ADMIN  → publish invalidate-hours")
	reg.Bus().Publish(types.Hours)
	hours.Wait()
	hours.Unmount()

	// ====================================================
	fmt.Println("\n==================== 6) WRITE-THROUGH ====================")
	settings := reg.BindSettings(func(s binding.Snapshot[salon.Settings]) {
		fmt.Printf("VIEW   → settings %-7s %v\n", s.State, s.Value)
	})
	settings.Mount(ctx)
	settings.Wait()

	wt := writepolicy.NewWriteThroughPolicy[salon.Settings](
		writepolicy.SaverFunc[salon.Settings](src.SaveSettings), reg.Settings, reg.Bus())
	if err := wt.OnWrite(ctx, salon.Settings{"phone": "020 7946 0999"}); err != nil {
		return err
	}
	settings.Wait()
	settings.Unmount()
	fmt.Println("STORE  → settings calls =", src.calls[types.Settings].Load())

	// ====================================================
	fmt.Println("\n==================== 7) WRITE-BACK ====================")
	wb := writepolicy.NewWriteBackPolicy[[]salon.Service](types.Services,
		writepolicy.SaverFunc[[]salon.Service](src.SaveServices), reg.Bus(), 16)
	if err := wb.OnWrite(ctx, []salon.Service{{ID: "3", Name: "Blow Dry", Price: 30, Duration: 30}}); err != nil {
		return err
	}
	fmt.Println("ADMIN  → services write queued")
	wb.Close()
	fmt.Println("CACHE  → services fresh =", reg.Services.IsFresh())
	fmt.Println("CACHE  → services =", len(reg.Services.Fetch(ctx)))

	// ====================================================
	fmt.Println("\n==================== 8) FAILURE FALLBACK ====================")
	src.mu.Lock()
	src.failTestimonials = true
	src.mu.Unlock()
	testimonials := reg.Testimonials.Fetch(ctx)
	fmt.Printf("CACHE  → testimonials = %v (default %v, fresh=%t)\n",
		testimonials, reg.Testimonials.Default(), reg.Testimonials.IsFresh())

	// ====================================================
	fmt.Println("\n==================== 9) INVALIDATE ALL ====================")
	reg.InvalidateAll()
	for _, k := range types.Kinds {
		fmt.Printf("CACHE  → %-13s fresh=%t\n", k, reg.Fresh()[k])
	}

	// ====================================================
	return report.print(ctx)
}
