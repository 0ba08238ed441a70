package events

import (
	"sync"
	"sync/atomic"
	"time"

	"hearthfield.game/internal/sim/calendar"
)

// Hub fans events out to subscribers without ever blocking the publisher.
// A subscriber whose buffer is full misses the event and the drop is counted.
type Hub struct {
	mu     sync.RWMutex
	subs   map[EventType][]chan Event
	global []chan Event

	published atomic.Uint64
	dropped   atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[EventType][]chan Event)}
}

func (h *Hub) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	h.published.Add(1)
	for _, ch := range h.subs[e.Type] {
		h.send(ch, e)
	}
	for _, ch := range h.global {
		h.send(ch, e)
	}
}

func (h *Hub) send(ch chan Event, e Event) {
	select {
	case ch <- e:
	default:
		h.dropped.Add(1)
	}
}

// Subscribe returns a channel receiving the given types, or every event when no
// types are given. The caller must drain it.
func (h *Hub) Subscribe(bufSize int, types ...EventType) <-chan Event {
	if bufSize <= 0 {
		bufSize = 256
	}
	ch := make(chan Event, bufSize)

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(types) == 0 {
		h.global = append(h.global, ch)
	} else {
		for _, t := range types {
			h.subs[t] = append(h.subs[t], ch)
		}
	}
	return ch
}

// Unsubscribe removes ch from every subscription. The channel is not closed.
func (h *Hub) Unsubscribe(ch <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.global = removeFromSlice(h.global, ch)
	for t, subs := range h.subs {
		h.subs[t] = removeFromSlice(subs, ch)
		if len(h.subs[t]) == 0 {
			delete(h.subs, t)
		}
	}
}

func (h *Hub) Stats() (published, dropped uint64) {
	return h.published.Load(), h.dropped.Load()
}

func removeFromSlice(slice []chan Event, target <-chan Event) []chan Event {
	result := make([]chan Event, 0, len(slice))
	for _, ch := range slice {
		if ch != target {
			result = append(result, ch)
		}
	}
	return result
}

// Constructors for each event type. The world loop queues these during a step
// and publishes them once the step's phases are done.

func NewDayEnd(step uint64, ev calendar.DayEndEvent) Event {
	return Event{Type: EventDayEnd, Source: "calendar", Step: step, Data: ev}
}

func NewSeasonChange(step uint64, ev calendar.SeasonChangeEvent) Event {
	return Event{Type: EventSeasonChange, Source: "calendar", Step: step, Data: ev}
}

func NewFestival(step uint64, f calendar.Festival, date calendar.Date) Event {
	return Event{
		Type:   EventFestival,
		Source: "festival",
		Step:   step,
		Data:   FestivalData{Festival: f, MusicTrack: f.MusicTrack(), Date: date},
	}
}

func NewDayEndSkipped(step uint64, ev calendar.DayEndEvent, reason string) Event {
	return Event{
		Type:   EventDayEndSkipped,
		Source: "calendar",
		Step:   step,
		Data:   SkippedData{Event: ev, Reason: reason},
	}
}

func NewMode(step uint64, paused bool, mode string, view calendar.View) Event {
	t := EventResumed
	if paused {
		t = EventPaused
	}
	return Event{Type: t, Source: "clock", Step: step, Data: ModeData{Mode: mode, View: view}}
}

func NewSaved(step uint64, path, reason string, date calendar.Date) Event {
	return Event{
		Type:   EventSaved,
		Source: "save",
		Step:   step,
		Data:   SavedData{Path: path, Reason: reason, Date: date},
	}
}
