package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	assert.Equal(t, 1, b.SubscriberCount())

	b.Publish(&Event{Type: EventDrainStarted, Node: "hv-01", Message: "stopping controller VM"})

	select {
	case evt := <-sub:
		assert.Equal(t, EventDrainStarted, evt.Type)
		assert.Equal(t, "hv-01", evt.Node)
		assert.False(t, evt.Timestamp.IsZero(), "publish stamps events without a timestamp")
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBrokerMultipleSubscribers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	first := b.Subscribe()
	second := b.Subscribe()
	require.Equal(t, 2, b.SubscriberCount())

	b.Publish(&Event{Type: EventPhaseChanged, Node: "hv-01", Message: "draining"})

	for _, sub := range []Subscriber{first, second} {
		select {
		case evt := <-sub:
			assert.Equal(t, EventPhaseChanged, evt.Type)
		case <-time.After(time.Second):
			t.Fatal("subscriber missed broadcast")
		}
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	// Channel is closed after unsubscribe.
	_, open := <-sub
	assert.False(t, open)
}
