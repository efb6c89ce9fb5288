package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBrokerPublishReachesSubscribers(t *testing.T) {
	b := NewBroker[string]()
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := b.Subscribe(ctx)
	second := b.Subscribe(ctx)
	require.Equal(t, 2, b.SubscriberCount())

	b.Publish(CreatedEvent, "hello")

	for _, ch := range []<-chan Event[string]{first, second} {
		select {
		case ev := <-ch:
			require.Equal(t, CreatedEvent, ev.Type)
			require.Equal(t, "hello", ev.Payload)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestBrokerUnsubscribeOnContextCancel(t *testing.T) {
	b := NewBroker[int]()
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription was not closed")
	}
	require.Equal(t, 0, b.SubscriberCount())
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBrokerWithBuffer[int](1)
	defer b.Shutdown()

	ch := b.Subscribe(context.Background())
	b.Publish(UpdatedEvent, 1)
	b.Publish(UpdatedEvent, 2)

	ev := <-ch
	require.Equal(t, 1, ev.Payload)
	select {
	case <-ch:
		t.Fatal("expected second event to be dropped")
	default:
	}
}

func TestBrokerShutdownClosesSubscribers(t *testing.T) {
	b := NewBroker[int]()
	ch := b.Subscribe(context.Background())
	b.Shutdown()

	_, ok := <-ch
	require.False(t, ok)

	late := b.Subscribe(context.Background())
	_, ok = <-late
	require.False(t, ok)
}
