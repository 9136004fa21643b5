package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New()
	ch, unsubscribe := bus.Subscribe(TopicUnauthenticated, 1)
	defer unsubscribe()

	n := bus.Publish(TopicUnauthenticated, "401 on DELETE /students/42")
	assert.Equal(t, 1, n)

	select {
	case e := <-ch:
		assert.Equal(t, TopicUnauthenticated, e.Topic)
		assert.Equal(t, "401 on DELETE /students/42", e.Data)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestWildcardPattern(t *testing.T) {
	bus := New()
	ch, unsubscribe := bus.Subscribe(TopicSessionAll, 2)
	defer unsubscribe()

	bus.Publish(TopicAuthenticated, nil)
	bus.Publish(TopicUnauthenticated, nil)
	bus.Publish("other.topic", nil)

	require.Len(t, ch, 2)
	assert.Equal(t, TopicAuthenticated, (<-ch).Topic)
	assert.Equal(t, TopicUnauthenticated, (<-ch).Topic)
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	bus := New()
	_, unsubscribe := bus.Subscribe(TopicUnauthenticated, 1)
	defer unsubscribe()

	assert.Equal(t, 1, bus.Publish(TopicUnauthenticated, 1))
	assert.Equal(t, 0, bus.Publish(TopicUnauthenticated, 2))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	ch, unsubscribe := bus.Subscribe(TopicUnauthenticated, 1)
	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Publish(TopicUnauthenticated, nil))
}

func TestShutdown(t *testing.T) {
	bus := New()
	ch1, _ := bus.Subscribe("*", 1)
	ch2, _ := bus.Subscribe(TopicAuthenticated, 1)
	bus.Shutdown()

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	assert.False(t, ok1)
	assert.False(t, ok2)
}

func TestMatchTopic(t *testing.T) {
	assert.True(t, matchTopic("*", "session.authenticated"))
	assert.True(t, matchTopic("session.*", "session.authenticated"))
	assert.False(t, matchTopic("session.*", "session"))
	assert.False(t, matchTopic("", "session"))
	assert.False(t, matchTopic("session.authenticated", "session.unauthenticated"))
}
