package salon

import "context"

// Source is the booking backend as the cache sees it. Each call may fail;
// the stores are the only callers.
type Source interface {
	FetchServices(ctx context.Context) ([]Service, error)
	FetchHours(ctx context.Context) (OpeningHours, error)
	FetchGalleryPhotos(ctx context.Context) ([]Photo, error)
	FetchTestimonials(ctx context.Context) ([]Testimonial, error)
	FetchSettings(ctx context.Context) (Settings, error)
}
