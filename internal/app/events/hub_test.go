package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesEverySubscriber(t *testing.T) {
	hub := NewHub(4)

	_, first := hub.Subscribe()
	_, second := hub.Subscribe()
	assert.Equal(t, 2, hub.SubscriberCount())

	hub.Publish(Response{URL: "http://www.xiami.com/song/gethqsong/sid/1", Status: 200})

	for _, ch := range []<-chan Response{first, second} {
		select {
		case ev := <-ch:
			assert.Equal(t, "http://www.xiami.com/song/gethqsong/sid/1", ev.URL)
			assert.Equal(t, 200, ev.Status)
			assert.False(t, ev.ObservedAt.IsZero())
		default:
			t.Fatal("expected an event")
		}
	}
}

func TestHub_FullSubscriberDropsWithoutBlocking(t *testing.T) {
	hub := NewHub(1)
	_, ch := hub.Subscribe()

	hub.Publish(Response{URL: "a"})
	hub.Publish(Response{URL: "b"})

	assert.Equal(t, uint64(1), hub.Dropped())
	ev := <-ch
	assert.Equal(t, "a", ev.URL)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(1)
	id, ch := hub.Subscribe()

	hub.Unsubscribe(id)
	assert.Equal(t, 0, hub.SubscriberCount())

	_, ok := <-ch
	assert.False(t, ok, "stream should be closed")

	// unknown ids are ignored
	hub.Unsubscribe("missing")
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(0)
	_, ch := hub.Subscribe()

	hub.Close()
	_, ok := <-ch
	assert.False(t, ok)

	hub.Publish(Response{URL: "ignored"})

	_, late := hub.Subscribe()
	_, ok = <-late
	require.False(t, ok, "subscriptions after Close are already closed")
}
