package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearthfield.game/internal/sim/calendar"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestHub_TypedSubscription(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(10, EventDayEnd)

	hub.Publish(NewSeasonChange(1, calendar.SeasonChangeEvent{NewSeason: calendar.Summer, Year: 1}))
	hub.Publish(NewDayEnd(2, calendar.DayEndEvent{Day: 28, Season: calendar.Spring, Year: 1, Cause: calendar.CauseAuto2AM}))

	e := recv(t, ch)
	assert.Equal(t, EventDayEnd, e.Type)
	assert.Equal(t, uint64(2), e.Step)
	assert.False(t, e.Timestamp.IsZero())
	data, ok := e.Data.(DayEndData)
	require.True(t, ok)
	assert.Equal(t, uint8(28), data.Day)

	select {
	case e := <-ch:
		t.Fatalf("unexpected event %s", e.Type)
	default:
	}
}

func TestHub_GlobalOrder(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(10)

	hub.Publish(NewDayEnd(5, calendar.DayEndEvent{Day: 28}))
	hub.Publish(NewSeasonChange(5, calendar.SeasonChangeEvent{NewSeason: calendar.Summer}))
	hub.Publish(NewFestival(6, calendar.Luau, calendar.Date{Year: 1, Season: calendar.Summer, Day: 11}))

	assert.Equal(t, EventDayEnd, recv(t, ch).Type)
	assert.Equal(t, EventSeasonChange, recv(t, ch).Type)
	f := recv(t, ch)
	require.Equal(t, EventFestival, f.Type)
	assert.Equal(t, "festival_luau", f.Data.(FestivalData).MusicTrack)
}

func TestNewDayEndSkipped(t *testing.T) {
	ev := calendar.DayEndEvent{Day: 3, Season: calendar.Fall, Year: 2, Cause: calendar.CauseExternalSleep}
	e := NewDayEndSkipped(40, ev, "duplicate")
	assert.Equal(t, EventDayEndSkipped, e.Type)
	assert.Equal(t, uint64(40), e.Step)
	assert.Equal(t, SkippedData{Event: ev, Reason: "duplicate"}, e.Data)
}

func TestHub_DropsWhenFull(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(1)

	hub.Publish(NewMode(1, true, "MENU", calendar.View{}))
	hub.Publish(NewMode(2, false, "PLAYING", calendar.View{}))

	published, dropped := hub.Stats()
	assert.Equal(t, uint64(2), published)
	assert.Equal(t, uint64(1), dropped)
	assert.Equal(t, EventPaused, recv(t, ch).Type)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(4, EventSaved, EventDayEnd)
	hub.Unsubscribe(ch)

	hub.Publish(NewSaved(1, "/tmp/x", "manual", calendar.Date{}))
	_, dropped := hub.Stats()
	assert.Zero(t, dropped)
	assert.Empty(t, ch)
}

func TestHub_ConcurrentPublish(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(step uint64) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish(NewDayEnd(step, calendar.DayEndEvent{}))
			}
		}(uint64(i))
	}
	wg.Wait()

	published, dropped := hub.Stats()
	assert.Equal(t, uint64(500), published)
	assert.Zero(t, dropped)
	assert.Len(t, ch, 500)
}
