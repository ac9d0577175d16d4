package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	bus.Publish(Event{Type: JobAcquired, JobID: "j1"})

	select {
	case evt := <-sub.C:
		assert.Equal(t, JobAcquired, evt.Type)
		assert.Equal(t, "j1", evt.JobID)
	default:
		t.Fatal("expected event on subscriber channel")
	}
}

func TestUnsubscribeStopsDeliveryAndClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	sub.Unsubscribe()

	bus.Publish(Event{Type: JobCompleted, JobID: "j2"})

	evt, ok := <-sub.C
	assert.False(t, ok, "channel should be closed after Unsubscribe")
	assert.Zero(t, evt)
}

func TestPublishFansOutToEverySubscriber(t *testing.T) {
	bus := NewBus()
	sub1 := bus.Subscribe()
	sub2 := bus.Subscribe()
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	bus.Publish(Event{Type: JobAborted, JobID: "j3"})

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case evt := <-sub.C:
			assert.Equal(t, JobAborted, evt.Type)
		default:
			t.Fatal("expected every subscriber to receive the event")
		}
	}
}

// TestPublishDropsForLaggedSubscriber exercises §8's S6 scenario: a
// subscriber that never drains must not block the publisher, and the
// excess events are simply dropped for it rather than queued unbounded.
func TestPublishDropsForLaggedSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	for i := 0; i < subscriberBuffer+48; i++ {
		bus.Publish(Event{Type: JobCompleted, JobID: "lagged"})
	}

	require.Len(t, sub.C, subscriberBuffer, "channel should be full but never overrun")
}
