package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateHubDeliversInOrder(t *testing.T) {
	h := newStateHub()
	ch, cancel := h.subscribe()
	defer cancel()

	for i := 0; i < 10; i++ {
		h.publish(StateChange{Field: FieldRecording, Value: i})
	}
	for i := 0; i < 10; i++ {
		change := <-ch
		assert.Equal(t, i, change.Value)
	}
}

func TestStateHubIndependentSubscribers(t *testing.T) {
	h := newStateHub()
	a, cancelA := h.subscribe()
	b, cancelB := h.subscribe()
	defer cancelB()

	h.publish(StateChange{Field: FieldFlashMode, Value: "on"})
	assert.Equal(t, "on", (<-a).Value)
	assert.Equal(t, "on", (<-b).Value)

	cancelA()
	h.publish(StateChange{Field: FieldFlashMode, Value: "off"})
	assert.Equal(t, "off", (<-b).Value)

	_, open := <-a
	assert.False(t, open, "cancelled subscription channel is closed")
}

func TestStateHubDropsWhenSubscriberStalls(t *testing.T) {
	h := newStateHub()
	ch, cancel := h.subscribe()
	defer cancel()

	// Overfill the buffer; publish must not block.
	for i := 0; i < 200; i++ {
		h.publish(StateChange{Field: FieldDevices, Value: fmt.Sprintf("v%d", i)})
	}

	// The retained prefix is still in order.
	require.Equal(t, "v0", (<-ch).Value)
	require.Equal(t, "v1", (<-ch).Value)
}

func TestStateHubCancelTwice(t *testing.T) {
	h := newStateHub()
	_, cancel := h.subscribe()
	cancel()
	cancel() // must not panic
}
