package main

import (
	"encoding/json"
	"strings"
	"testing"

	"hearthfield.game/internal/protocol"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestDescribe(t *testing.T) {
	clock := protocol.ClockView{Year: 1, Season: "Summer", Day: 1, Hour: 6, DayOfWeek: "Monday", Weather: "Sunny"}
	msg := mustJSON(t, protocol.CalendarEventMsg{
		Type: protocol.TypeCalendarEvent, ProtocolVersion: protocol.Version,
		Kind: protocol.KindDayEnd, Step: 90, Year: 1, Season: "Spring", Day: 28,
		Cause: "EXTERNAL_SLEEP", Clock: &clock,
	})
	line, ok := describe(protocol.TypeCalendarEvent, msg)
	if !ok {
		t.Fatalf("expected a line")
	}
	for _, want := range []string{"DAY_END", "day=28", "cause=EXTERNAL_SLEEP", "Y1 Summer 1 (Monday) 06:00 Sunny"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}

	fest := mustJSON(t, protocol.CalendarEventMsg{
		Type: protocol.TypeCalendarEvent, Kind: protocol.KindFestival, Year: 1, Season: "Summer", Day: 11,
		Festival: "Luau", MusicTrack: "festival_luau",
	})
	if line, _ := describe(protocol.TypeCalendarEvent, fest); !strings.Contains(line, `festival="Luau" music=festival_luau`) {
		t.Fatalf("festival line %q", line)
	}

	if _, ok := describe(protocol.TypeAck, []byte(`{}`)); ok {
		t.Fatalf("ACK is not printed by the observer loop")
	}
	if _, ok := describe(protocol.TypeClock, []byte(`{`)); ok {
		t.Fatalf("malformed message should be skipped")
	}
}

func TestSplitKinds(t *testing.T) {
	got := splitKinds(" day_end, ,Festival")
	if len(got) != 2 || got[0] != protocol.KindDayEnd || got[1] != protocol.KindFestival {
		t.Fatalf("got %v", got)
	}
	if splitKinds("") != nil {
		t.Fatalf("empty flag means all kinds")
	}
}

func TestSleeperDue_OncePerDay(t *testing.T) {
	s := &sleeper{hour: 22}
	c := protocol.ClockView{Hour: 21, TotalDaysElapsed: 3}
	if s.due(c) {
		t.Fatalf("too early")
	}
	c.Hour = 22
	if !s.due(c) {
		t.Fatalf("expected due at 22:00")
	}
	s.lastDay = c.TotalDaysElapsed + 1
	c.Hour = 23
	if s.due(c) {
		t.Fatalf("already slept this day")
	}
	c.TotalDaysElapsed++
	c.Paused = true
	if s.due(c) {
		t.Fatalf("paused clock should not trigger")
	}
	c.Paused = false
	if !s.due(c) {
		t.Fatalf("expected due on the next day")
	}
}
