package calendar

import (
	"fmt"
	"strings"
)

// Cause records which path produced a DayEndEvent.
type Cause uint8

const (
	// CauseUnspecified events are classified from their payload alone.
	CauseUnspecified Cause = iota
	// CauseAuto2AM is emitted by the accumulator after it already advanced the clock.
	CauseAuto2AM
	// CauseExternalSleep is emitted by a collaborator that has not touched the clock.
	CauseExternalSleep
)

var causeNames = [...]string{"UNSPECIFIED", "AUTO_2AM", "EXTERNAL_SLEEP"}

func (c Cause) String() string {
	if int(c) < len(causeNames) {
		return causeNames[c]
	}
	return fmt.Sprintf("Cause(%d)", uint8(c))
}

func (c Cause) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Cause) UnmarshalText(b []byte) error {
	for i, n := range causeNames {
		if strings.EqualFold(n, string(b)) {
			*c = Cause(i)
			return nil
		}
	}
	return fmt.Errorf("unknown day end cause %q", string(b))
}

// DayEndEvent carries the date of the day that is ending.
type DayEndEvent struct {
	Day    uint8  `json:"day"`
	Season Season `json:"season"`
	Year   uint32 `json:"year"`
	Cause  Cause  `json:"cause"`
}

func (e DayEndEvent) Date() Date { return Date{Year: e.Year, Season: e.Season, Day: e.Day} }

// SleepEvent builds the DayEndEvent an external trigger emits for the current clock.
func SleepEvent(c Clock) DayEndEvent { return SleepEventOn(c.Date()) }

// SleepEventOn is an external day end for a date fixed when the player went to bed.
func SleepEventOn(d Date) DayEndEvent {
	return DayEndEvent{Day: d.Day, Season: d.Season, Year: d.Year, Cause: CauseExternalSleep}
}

type SeasonChangeEvent struct {
	NewSeason Season `json:"new_season"`
	Year      uint32 `json:"year"`
}
