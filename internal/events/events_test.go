package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/go-serial-ide/internal/logging"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(logging.Discard(), 8)
	ch, cancel := bus.Subscribe()
	defer cancel()

	require.NoError(t, bus.Emit(TopicBuildOutput, "Compiling blink"))
	require.NoError(t, bus.Emit(TopicBuildOutput, "ERROR: warning: unused"))
	require.NoError(t, bus.Emit(TopicFlashOutput, "Programming done"))

	assert.Equal(t, Event{TopicBuildOutput, "Compiling blink"}, <-ch)
	assert.Equal(t, Event{TopicBuildOutput, "ERROR: warning: unused"}, <-ch)
	assert.Equal(t, Event{TopicFlashOutput, "Programming done"}, <-ch)
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus(logging.Discard(), 1)
	ch, cancel := bus.Subscribe()
	defer cancel()

	require.NoError(t, bus.Emit(TopicBuildOutput, "one"))
	require.NoError(t, bus.Emit(TopicBuildOutput, "two"))

	assert.Equal(t, uint64(1), bus.Dropped())
	assert.Equal(t, "one", (<-ch).Payload)
}

func TestBusNotifiesLaggingSubscriber(t *testing.T) {
	bus := NewBus(logging.Discard(), 2)
	ch, cancel := bus.Subscribe()
	defer cancel()

	for _, line := range []string{"a", "b", "c", "d"} {
		require.NoError(t, bus.Emit(TopicBuildOutput, line))
	}
	assert.Equal(t, uint64(2), bus.Dropped())
	assert.Equal(t, "a", (<-ch).Payload)
	assert.Equal(t, "b", (<-ch).Payload)

	require.NoError(t, bus.Emit(TopicBuildOutput, "e"))
	assert.Equal(t, Event{TopicDropped, "2 output lines dropped"}, <-ch)
	assert.Equal(t, Event{TopicBuildOutput, "e"}, <-ch)
	assert.Len(t, ch, 0)
}

func TestNewBusDefaultDepth(t *testing.T) {
	bus := NewBus(logging.Discard(), 0)
	ch, cancel := bus.Subscribe()
	defer cancel()
	assert.Equal(t, DefaultDepth, cap(ch))
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus(logging.Discard(), 1)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.NoError(t, bus.Emit(TopicBuildOutput, "after cancel"))
}

func TestEmitterFunc(t *testing.T) {
	var got []Event
	em := EmitterFunc(func(topic Topic, payload string) error {
		got = append(got, Event{topic, payload})
		if payload == "fail" {
			return errors.New("frontend gone")
		}
		return nil
	})

	assert.NoError(t, em.Emit(TopicFlashOutput, "ok"))
	assert.Error(t, em.Emit(TopicFlashOutput, "fail"))
	assert.Len(t, got, 2)
	assert.NoError(t, Discard.Emit(TopicBuildOutput, "x"))
}
