package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the event types the Vessel Registry emits (spec.md
// §9). Subscribers must never block the write path — Publish is
// non-blocking and drops the event for any subscriber whose channel is
// full, matching the teacher's Bus.Dirty semantics.
type EventKind string

const (
	EventVesselEntered EventKind = "vessel:entered"
	EventVesselUpdated EventKind = "vessel:updated"
	EventVesselRemoved EventKind = "vessel:removed"
	EventStatusChanged EventKind = "status:changed"
	EventBoatNear      EventKind = "boat_near"
)

// Event is published to every registered observer whenever the Vessel
// Registry's write path makes a user-visible change. ID lets a downstream
// consumer (the structured event log, a trigger-card webhook) dedupe a
// redelivered event rather than relying on Timestamp equality. OldStatus
// is set only on status:changed events; Bridge only on boat_near triggers.
type Event struct {
	ID        string
	Kind      EventKind
	MMSI      string
	Status    VesselStatus
	OldStatus VesselStatus
	Bridge    string
	Reason    string
	Timestamp time.Time
}

// NewEventID returns a fresh random event identifier.
func NewEventID() string {
	return uuid.NewString()
}

// Bus is a small non-blocking pub-sub, generalized from the teacher's
// engine.Bus/observer pair for a single typed event instead of a protobuf
// entity-change envelope.
type Bus struct {
	register   chan *observer
	unregister chan *observer
	publish    chan Event
	done       chan struct{}

	mu     sync.Mutex
	byChan map[<-chan Event]*observer
}

type observer struct {
	c chan Event
}

// NewBus starts the bus's dispatch loop and returns it ready to use.
func NewBus() *Bus {
	b := &Bus{
		register:   make(chan *observer),
		unregister: make(chan *observer),
		publish:    make(chan Event, 64),
		done:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	observers := make(map[*observer]struct{})
	for {
		select {
		case o := <-b.register:
			observers[o] = struct{}{}
		case o := <-b.unregister:
			delete(observers, o)
			close(o.c)
		case ev := <-b.publish:
			for o := range observers {
				select {
				case o.c <- ev:
				default:
					// Slow subscriber: drop rather than block the write path.
				}
			}
		case <-b.done:
			for o := range observers {
				close(o.c)
			}
			return
		}
	}
}

// Register returns a channel that receives every future event until
// Unregister is called with the same channel.
func (b *Bus) Register() <-chan Event {
	o := &observer{c: make(chan Event, 32)}
	b.register <- o
	b.observersByChan(o)
	return o.c
}

// observersByChan keeps the reverse lookup needed by Unregister without
// exposing the observer type to callers.
func (b *Bus) observersByChan(o *observer) {
	b.mu.Lock()
	if b.byChan == nil {
		b.byChan = make(map[<-chan Event]*observer)
	}
	b.byChan[o.c] = o
	b.mu.Unlock()
}

// Unregister stops delivery to a channel previously returned by Register.
func (b *Bus) Unregister(c <-chan Event) {
	b.mu.Lock()
	o, ok := b.byChan[c]
	if ok {
		delete(b.byChan, c)
	}
	b.mu.Unlock()
	if ok {
		b.unregister <- o
	}
}

// Publish delivers ev to every current subscriber without blocking the
// caller; if the internal publish buffer is full the event is dropped.
func (b *Bus) Publish(ev Event) {
	select {
	case b.publish <- ev:
	default:
	}
}

// Close stops the dispatch loop and closes all subscriber channels.
func (b *Bus) Close() {
	close(b.done)
}
