package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterClosesLaggingSubscriber(t *testing.T) {
	b := newBroadcaster()
	slow, unsubscribeSlow := b.subscribe()
	fast, unsubscribeFast := b.subscribe()
	defer unsubscribeFast()

	received := 0
	for i := 0; i <= subscriberBuffer; i++ {
		b.publish(Event{Type: EventMessageAppended, SessionID: "s1"})
		<-fast
		received++
	}
	b.publish(Event{Type: EventMessageReplaced, SessionID: "s1"})

	drained := 0
	for range slow {
		drained++
	}
	assert.Equal(t, subscriberBuffer, drained, "buffered events stay readable before the close")
	assert.Equal(t, subscriberBuffer+1, received)

	evt, ok := <-fast
	require.True(t, ok)
	assert.Equal(t, EventMessageReplaced, evt.Type)

	unsubscribeSlow()
	b.publish(Event{Type: EventVoiceState, SessionID: "s1"})
	_, ok = <-fast
	assert.True(t, ok)
}
