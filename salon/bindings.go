package salon

import (
	"github.com/krisalay/salon-cache/binding"
)

// The Bind* helpers create a consumer binding over one of the registry's
// stores, listening on the registry's bus. Call Mount to start it.

func (r *Registry) BindServices(render binding.RenderFunc[[]Service]) *binding.Binding[[]Service] {
	return binding.New[[]Service](r.Services, r.bus, render)
}

func (r *Registry) BindHours(render binding.RenderFunc[OpeningHours]) *binding.Binding[OpeningHours] {
	return binding.New[OpeningHours](r.Hours, r.bus, render)
}

func (r *Registry) BindSettings(render binding.RenderFunc[Settings]) *binding.Binding[Settings] {
	return binding.New[Settings](r.Settings, r.bus, render)
}

func (r *Registry) BindGallery(render binding.RenderFunc[[]Photo]) *binding.Binding[[]Photo] {
	return binding.New[[]Photo](r.Gallery, r.bus, render)
}

func (r *Registry) BindTestimonials(render binding.RenderFunc[[]Testimonial]) *binding.Binding[[]Testimonial] {
	return binding.New[[]Testimonial](r.Testimonials, r.bus, render)
}
