package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestBrokerDelivers(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	first := broker.Subscribe()
	second := broker.Subscribe()
	assert.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(&Event{Type: EventNodeDraining, Message: "n1 stale"})

	for _, sub := range []Subscriber{first, second} {
		select {
		case ev := <-sub:
			assert.Equal(t, EventNodeDraining, ev.Type)
			assert.NotEmpty(t, ev.ID)
			assert.False(t, ev.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	broker.Unsubscribe(first)
	broker.Unsubscribe(first)
	assert.Equal(t, 1, broker.SubscriberCount())

	_, open := <-first
	assert.False(t, open)
}

func TestBrokerSlowSubscriberDropsEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	slow := broker.Subscribe()
	for i := 0; i < 80; i++ {
		broker.Publish(&Event{Type: EventPlacementCreated})
	}

	require.Eventually(t, func() bool { return len(slow) == cap(slow) }, time.Second, 5*time.Millisecond)
}

func TestBrokerPublishAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewBroker()
	broker.Start()
	broker.Stop()
	broker.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			broker.Publish(&Event{Type: EventPolicyUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after Stop")
	}
}
