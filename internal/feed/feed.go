// Package feed keeps a bounded, sequenced history of library events and fans
// new events out to the current subscribers.
package feed

import (
	"sync"
	"time"

	"github.com/channel-music/channel/internal/models"
)

const DefaultMaxEvents = 256

type Config struct {
	MaxEvents     int
	EventCallback func(receiverID string, event models.LibraryEvent)
}

type Feed struct {
	events    []models.LibraryEvent // ring buffer, head is the oldest event
	head      int
	lastSeq   int64
	maxEvents int

	members       map[string]bool // receiver id -> online
	eventCallback func(receiverID string, event models.LibraryEvent)
	now           func() time.Time

	mux sync.RWMutex
}

func New(config Config) *Feed {
	if config.MaxEvents <= 0 {
		config.MaxEvents = DefaultMaxEvents
	}
	return &Feed{
		events:        make([]models.LibraryEvent, 0, config.MaxEvents),
		maxEvents:     config.MaxEvents,
		members:       make(map[string]bool),
		eventCallback: config.EventCallback,
		now:           time.Now,
	}
}

// Add appends an event, assigns it the next sequence number and hands it to
// every online member. Callbacks run after the feed lock is released.
func (f *Feed) Add(eventType models.EventType, song models.Song) models.LibraryEvent {
	f.mux.Lock()
	f.lastSeq++
	event := models.LibraryEvent{
		Seq:       f.lastSeq,
		Type:      eventType,
		Timestamp: f.now().Unix(),
		Song:      song,
	}

	if len(f.events) < f.maxEvents {
		f.events = append(f.events, event)
	} else {
		f.events[f.head] = event
		f.head = (f.head + 1) % f.maxEvents
	}

	var receivers []string
	for id, online := range f.members {
		if online {
			receivers = append(receivers, id)
		}
	}
	callback := f.eventCallback
	f.mux.Unlock()

	if callback != nil {
		for _, id := range receivers {
			callback(id, event)
		}
	}
	return event
}

// LastSeq returns the sequence number of the newest event, 0 if none.
func (f *Feed) LastSeq() int64 {
	f.mux.RLock()
	defer f.mux.RUnlock()
	return f.lastSeq
}

// Since returns the retained events newer than seq, oldest first. complete is
// false when events after seq were already evicted from the history.
func (f *Feed) Since(seq int64) (events []models.LibraryEvent, complete bool) {
	f.mux.RLock()
	defer f.mux.RUnlock()

	if seq < 0 {
		seq = 0
	}
	if seq >= f.lastSeq {
		return []models.LibraryEvent{}, true
	}

	firstSeq := f.lastSeq - int64(len(f.events)) + 1
	complete = seq+1 >= firstSeq
	if seq < firstSeq-1 {
		seq = firstSeq - 1
	}

	count := int(f.lastSeq - seq)
	return f.tail(count), complete
}

// Last returns up to count newest events, oldest first.
func (f *Feed) Last(count int) []models.LibraryEvent {
	f.mux.RLock()
	defer f.mux.RUnlock()

	if count > len(f.events) {
		count = len(f.events)
	}
	if count <= 0 {
		return []models.LibraryEvent{}
	}
	return f.tail(count)
}

// tail copies the newest count events. Callers hold the lock.
func (f *Feed) tail(count int) []models.LibraryEvent {
	result := make([]models.LibraryEvent, count)
	start := (f.head + len(f.events) - count) % len(f.events)
	if start+count <= len(f.events) {
		copy(result, f.events[start:start+count])
	} else {
		n1 := copy(result, f.events[start:])
		copy(result[n1:], f.events[:count-n1])
	}
	return result
}

func (f *Feed) Join(id string) {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.members[id] = true
}

func (f *Feed) Leave(id string) {
	f.mux.Lock()
	defer f.mux.Unlock()

	delete(f.members, id)
}
