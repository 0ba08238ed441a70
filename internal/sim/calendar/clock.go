package calendar

import (
	"fmt"
	"time"
)

// Clock is the calendar state record. It is serialized verbatim into save files,
// so fields stay exported and flat.
type Clock struct {
	Year    uint32
	Season  Season
	Day     uint8
	Hour    uint8
	Minute  uint8
	Weather Weather

	// TimeScale is game-minutes per real second.
	TimeScale  float64
	TimePaused bool
	// Elapsed is the real-time remainder not yet converted into a game minute.
	Elapsed time.Duration
}

func NewClock() Clock {
	return Clock{
		Year:      1,
		Season:    Spring,
		Day:       1,
		Hour:      DayStartHour,
		Minute:    0,
		Weather:   Sunny,
		TimeScale: DefaultTimeScale,
	}
}

// EffectiveTimeScale substitutes the default for non-positive scales.
func (c Clock) EffectiveTimeScale() float64 {
	if c.TimeScale > 0 {
		return c.TimeScale
	}
	return DefaultTimeScale
}

// PerMinute is the real time that makes up one game minute.
func (c Clock) PerMinute() time.Duration {
	d := time.Duration(float64(time.Second) / c.EffectiveTimeScale())
	if d <= 0 {
		return time.Nanosecond
	}
	return d
}

func (c Clock) Date() Date { return Date{Year: c.Year, Season: c.Season, Day: c.Day} }

func (c Clock) TotalDaysElapsed() uint32 { return c.Date().Ordinal() }

func (c Clock) DayOfWeek() DayOfWeek { return DayOfWeek(c.TotalDaysElapsed() % 7) }

func (c Clock) IsFestivalDay() bool { return IsFestivalDay(c.Season, c.Day) }

// TimeFloat returns the time of day as fractional hours, e.g. 14.5 for 14:30.
func (c Clock) TimeFloat() float64 { return float64(c.Hour) + float64(c.Minute)/60 }

func (c Clock) String() string {
	return fmt.Sprintf("Y%d %s %d %02d:%02d %s", c.Year, c.Season, c.Day, c.Hour, c.Minute, c.Weather)
}

// Date identifies a single game day.
type Date struct {
	Year   uint32 `json:"year"`
	Season Season `json:"season"`
	Day    uint8  `json:"day"`
}

// Ordinal counts days since Spring 1, Year 1.
func (d Date) Ordinal() uint32 {
	var years uint32
	if d.Year > 0 {
		years = d.Year - 1
	}
	var day uint32
	if d.Day > 0 {
		day = uint32(d.Day) - 1
	}
	return years*DaysPerYear + uint32(d.Season.Index())*DaysPerSeason + day
}

func (d Date) String() string { return fmt.Sprintf("Day %d %s Year %d", d.Day, d.Season, d.Year) }

// View is the read-only snapshot handed to collaborators.
type View struct {
	Year             uint32    `json:"year"`
	Season           Season    `json:"season"`
	Day              uint8     `json:"day"`
	Hour             uint8     `json:"hour"`
	Minute           uint8     `json:"minute"`
	Weather          Weather   `json:"weather"`
	PreviousWeather  Weather   `json:"previous_day_weather"`
	DayOfWeek        DayOfWeek `json:"day_of_week"`
	TotalDaysElapsed uint32    `json:"total_days_elapsed"`
	TimeFloat        float64   `json:"time_float"`
	FestivalDay      bool      `json:"festival_day"`
	Paused           bool      `json:"paused"`
}

// State bundles the clock with the weather of the day that most recently ended.
type State struct {
	Clock              Clock
	PreviousDayWeather Weather
}

func NewState() State { return State{Clock: NewClock(), PreviousDayWeather: Sunny} }

func (s State) View() View {
	c := s.Clock
	return View{
		Year:             c.Year,
		Season:           c.Season,
		Day:              c.Day,
		Hour:             c.Hour,
		Minute:           c.Minute,
		Weather:          c.Weather,
		PreviousWeather:  s.PreviousDayWeather,
		DayOfWeek:        c.DayOfWeek(),
		TotalDaysElapsed: c.TotalDaysElapsed(),
		TimeFloat:        c.TimeFloat(),
		FestivalDay:      c.IsFestivalDay(),
		Paused:           c.TimePaused,
	}
}
