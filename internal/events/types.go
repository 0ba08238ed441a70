// Package events is the in-process pub/sub bus that carries calendar
// notifications from the world loop to every interested domain.
package events

import (
	"time"

	"hearthfield.game/internal/sim/calendar"
)

type EventType string

const (
	EventDayEnd        EventType = "calendar.day_end"
	EventSeasonChange  EventType = "calendar.season_change"
	EventFestival      EventType = "calendar.festival"
	EventDayEndSkipped EventType = "calendar.day_end_skipped"

	EventPaused  EventType = "clock.paused"
	EventResumed EventType = "clock.resumed"

	EventSaved EventType = "save.written"
)

// Event is the message passed through the hub. Data holds one of the payload
// types below, matching Type.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Step      uint64    `json:"step"`
	Data      any       `json:"data"`
}

// DayEndData is the payload for EventDayEnd.
type DayEndData = calendar.DayEndEvent

// SeasonChangeData is the payload for EventSeasonChange.
type SeasonChangeData = calendar.SeasonChangeEvent

type FestivalData struct {
	Festival   calendar.Festival `json:"festival"`
	MusicTrack string            `json:"music_track"`
	Date       calendar.Date     `json:"date"`
}

type SkippedData struct {
	Event  calendar.DayEndEvent `json:"event"`
	Reason string               `json:"reason"`
}

// ModeData is the payload for EventPaused/EventResumed.
type ModeData struct {
	Mode string        `json:"mode"`
	View calendar.View `json:"view"`
}

type SavedData struct {
	Path   string        `json:"path"`
	Reason string        `json:"reason"`
	Date   calendar.Date `json:"date"`
}
