package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/salon-cache/types"
)

func TestPublishReachesOnlyThatKind(t *testing.T) {
	b := New()
	var hours, services []Event

	b.Subscribe(types.Hours, func(e Event) { hours = append(hours, e) })
	b.Subscribe(types.Services, func(e Event) { services = append(services, e) })

	b.Publish(types.Hours)

	require.Len(t, hours, 1)
	assert.Equal(t, "invalidate-hours", hours[0].Name())
	assert.False(t, hours[0].All)
	assert.Empty(t, services)
}

func TestPublishAllReachesEveryKind(t *testing.T) {
	b := New()
	got := map[types.Kind]int{}

	for _, k := range types.Kinds {
		b.Subscribe(k, func(e Event) {
			assert.True(t, e.All)
			assert.Equal(t, "invalidate-all", e.Name())
			got[e.Kind]++
		})
	}

	b.PublishAll()

	for _, k := range types.Kinds {
		assert.Equal(t, 1, got[k], "kind %s", k)
	}
}

func TestHandlersRunInSubscriptionOrder(t *testing.T) {
	b := New()
	var order []int

	for i := 1; i <= 3; i++ {
		b.Subscribe(types.Gallery, func(Event) { order = append(order, i) })
	}

	b.Publish(types.Gallery)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	calls := 0

	unsubscribe := b.Subscribe(types.Settings, func(Event) { calls++ })
	b.Publish(types.Settings)

	unsubscribe()
	unsubscribe()
	b.Publish(types.Settings)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.Subscribers(types.Settings))
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	b := New()
	var second int

	var unsubscribe func()
	unsubscribe = b.Subscribe(types.Testimonials, func(Event) { unsubscribe() })
	b.Subscribe(types.Testimonials, func(Event) { second++ })

	b.Publish(types.Testimonials)
	b.Publish(types.Testimonials)

	assert.Equal(t, 2, second)
	assert.Equal(t, 1, b.Subscribers(types.Testimonials))
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	b := New()
	assert.NotPanics(t, func() {
		b.Publish(types.Services)
		b.PublishAll()
	})

	// a late subscriber does not see earlier events
	calls := 0
	b.Subscribe(types.Services, func(Event) { calls++ })
	assert.Equal(t, 0, calls)
}

func TestUnknownKind(t *testing.T) {
	b := New()
	assert.Panics(t, func() {
		b.Subscribe(types.Kind("bookings"), func(Event) {})
	})
	assert.NotPanics(t, func() {
		b.Publish(types.Kind("bookings"))
	})
}
