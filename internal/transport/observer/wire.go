package observer

import (
	"hearthfield.game/internal/events"
	"hearthfield.game/internal/protocol"
	"hearthfield.game/internal/sim/calendar"
)

var kindTypes = map[string]events.EventType{
	protocol.KindDayEnd:       events.EventDayEnd,
	protocol.KindSeasonChange: events.EventSeasonChange,
	protocol.KindFestival:     events.EventFestival,
	protocol.KindPaused:       events.EventPaused,
	protocol.KindResumed:      events.EventResumed,
}

// EventTypes maps subscribed kinds to hub event types. An empty list means all kinds.
func EventTypes(kinds []string) []events.EventType {
	if len(kinds) == 0 {
		kinds = protocol.AllKinds
	}
	out := make([]events.EventType, 0, len(kinds))
	for _, k := range kinds {
		if t, ok := kindTypes[k]; ok {
			out = append(out, t)
		}
	}
	return out
}

func ClockView(v calendar.View) protocol.ClockView {
	return protocol.ClockView{
		Year:               v.Year,
		Season:             v.Season.String(),
		Day:                v.Day,
		Hour:               v.Hour,
		Minute:             v.Minute,
		Weather:            v.Weather.String(),
		PreviousDayWeather: v.PreviousWeather.String(),
		DayOfWeek:          v.DayOfWeek.String(),
		TotalDaysElapsed:   v.TotalDaysElapsed,
		TimeFloat:          v.TimeFloat,
		FestivalDay:        v.FestivalDay,
		Paused:             v.Paused,
	}
}

// CalendarEvent converts a hub event to its wire form. ok is false for events
// observers do not receive.
func CalendarEvent(e events.Event) (protocol.CalendarEventMsg, bool) {
	m := protocol.CalendarEventMsg{
		Type:            protocol.TypeCalendarEvent,
		ProtocolVersion: protocol.Version,
		Step:            e.Step,
	}
	switch d := e.Data.(type) {
	case calendar.DayEndEvent:
		m.Kind = protocol.KindDayEnd
		m.Year, m.Season, m.Day = d.Year, d.Season.String(), d.Day
		m.Cause = d.Cause.String()
	case calendar.SeasonChangeEvent:
		m.Kind = protocol.KindSeasonChange
		m.Year, m.Season = d.Year, d.NewSeason.String()
	case events.FestivalData:
		m.Kind = protocol.KindFestival
		m.Year, m.Season, m.Day = d.Date.Year, d.Date.Season.String(), d.Date.Day
		m.Festival = d.Festival.String()
		m.MusicTrack = d.MusicTrack
	case events.ModeData:
		m.Kind = protocol.KindResumed
		if e.Type == events.EventPaused {
			m.Kind = protocol.KindPaused
		}
		m.Year, m.Season, m.Day = d.View.Year, d.View.Season.String(), d.View.Day
		m.Mode = d.Mode
		cv := ClockView(d.View)
		m.Clock = &cv
	default:
		return m, false
	}
	return m, true
}
