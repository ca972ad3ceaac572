// Package events delivers build and flash output lines to whichever
// frontend is attached.
package events

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Topic identifies an output stream pushed to the frontend.
type Topic string

const (
	// TopicBuildOutput carries toolchain output lines.
	TopicBuildOutput Topic = "build-output"
	// TopicFlashOutput carries flash tool output lines.
	TopicFlashOutput Topic = "flash-output"
	// TopicDropped tells a subscriber how many events it missed.
	TopicDropped Topic = "output-dropped"
)

// DefaultDepth is the per-subscriber buffer used when none is given.
const DefaultDepth = 4096

// Event is a single line published on a topic.
type Event struct {
	Topic   Topic  `json:"topic"`
	Payload string `json:"payload"`
}

// Emitter publishes events to the frontend.
type Emitter interface {
	Emit(topic Topic, payload string) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(topic Topic, payload string) error

// Emit calls f.
func (f EmitterFunc) Emit(topic Topic, payload string) error {
	return f(topic, payload)
}

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(Topic, string) error { return nil })

// Bus fans events out to subscribers. Slow subscribers lose events
// instead of blocking the publisher; once a lagging subscriber has room
// again it first receives a TopicDropped event with the number missed.
type Bus struct {
	mu      sync.Mutex
	subs    map[chan Event]*subscriber
	log     logrus.FieldLogger
	depth   int
	dropped uint64
}

type subscriber struct {
	lost int
}

// NewBus constructs a Bus with the given per-subscriber buffer depth.
func NewBus(log logrus.FieldLogger, depth int) *Bus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Bus{
		subs:  make(map[chan Event]*subscriber),
		log:   log.WithField("component", "events"),
		depth: depth,
	}
}

// Subscribe registers a subscriber and returns its channel and a cancel func.
// The channel is closed by cancel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = &subscriber{}
	count := len(b.subs)
	b.mu.Unlock()
	b.log.WithField("subs", count).Debug("subscribe")

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			close(ch)
			b.mu.Unlock()
			b.log.Debug("unsubscribe")
		})
	}
}

// Emit publishes payload on topic. It never blocks.
func (b *Bus) Emit(topic Topic, payload string) error {
	event := Event{Topic: topic, Payload: payload}
	dropped := 0
	b.mu.Lock()
	for ch, sub := range b.subs {
		if !sub.deliver(ch, event) {
			dropped++
		}
	}
	b.dropped += uint64(dropped)
	b.mu.Unlock()
	if dropped > 0 {
		b.log.WithFields(logrus.Fields{"topic": topic, "dropped": dropped}).Warn("subscriber buffer full")
	}
	return nil
}

// deliver sends a pending drop notice and then event without blocking.
// It reports whether event was queued.
func (s *subscriber) deliver(ch chan Event, event Event) bool {
	if s.lost > 0 {
		notice := Event{Topic: TopicDropped, Payload: fmt.Sprintf("%d output lines dropped", s.lost)}
		select {
		case ch <- notice:
			s.lost = 0
		default:
			s.lost++
			return false
		}
	}
	select {
	case ch <- event:
		return true
	default:
		s.lost++
		return false
	}
}

// Dropped reports how many deliveries were lost to full buffers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
