package calendar

import (
	"time"

	"go.uber.org/zap"
)

// DefaultMaxCatchupMinutes bounds the minutes converted in a single step to one game day.
const DefaultMaxCatchupMinutes = MinutesPerDay

type TickResult struct {
	Minutes int
	// Capped is set when surplus real time was discarded.
	Capped  bool
	Dropped time.Duration
	DayEnds []DayEndEvent
}

// Accumulator converts real elapsed time into game minutes and performs the
// automatic 2:00 AM rollover.
type Accumulator struct {
	weather    *WeatherGenerator
	maxCatchup int
	log        *zap.Logger
}

func NewAccumulator(weather *WeatherGenerator, maxCatchup int, log *zap.Logger) *Accumulator {
	if log == nil {
		log = zap.NewNop()
	}
	if maxCatchup <= 0 {
		maxCatchup = DefaultMaxCatchupMinutes
	}
	return &Accumulator{weather: weather, maxCatchup: maxCatchup, log: log}
}

// Step adds dt to the accumulator and converts every whole game minute it holds.
// Nothing happens while the clock is paused.
func (a *Accumulator) Step(s *State, dt time.Duration) TickResult {
	var res TickResult
	c := &s.Clock
	if c.TimePaused || dt <= 0 {
		return res
	}
	per := c.PerMinute()
	c.Elapsed += dt
	for c.Elapsed >= per {
		if res.Minutes >= a.maxCatchup {
			res.Capped = true
			res.Dropped = c.Elapsed - c.Elapsed%per
			c.Elapsed %= per
			a.log.Warn("catch-up capped",
				zap.Int("minutes", res.Minutes),
				zap.Duration("dropped", res.Dropped),
			)
			break
		}
		c.Elapsed -= per
		res.Minutes++
		if ev, ended := a.advanceMinute(s); ended {
			res.DayEnds = append(res.DayEnds, ev)
		}
	}
	return res
}

func (a *Accumulator) advanceMinute(s *State) (DayEndEvent, bool) {
	c := &s.Clock
	c.Minute++
	if c.Minute < MinutesPerHour {
		return DayEndEvent{}, false
	}
	c.Minute = 0
	c.Hour++
	if c.Hour < DayEndHour {
		return DayEndEvent{}, false
	}
	ev := DayEndEvent{Day: c.Day, Season: c.Season, Year: c.Year, Cause: CauseAuto2AM}
	a.log.Info("day ended at 2am", zap.Stringer("date", ev.Date()))
	advanceDay(s, a.weather, a.log)
	return ev, true
}

// advanceDay moves the clock to 06:00 of the next day, wrapping season and year,
// and rolls the new day's weather. It reports whether the season changed.
func advanceDay(s *State, gen *WeatherGenerator, log *zap.Logger) bool {
	c := &s.Clock
	s.PreviousDayWeather = c.Weather

	c.Day++
	c.Hour = DayStartHour
	c.Minute = 0
	c.Elapsed = 0

	seasonChanged := false
	if c.Day > DaysPerSeason {
		c.Day = 1
		c.Season = c.Season.Next()
		seasonChanged = true
		if c.Season == Spring {
			c.Year++
			log.Info("new year", zap.Uint32("year", c.Year))
		}
	}
	c.Weather = gen.Roll(c.Season)
	log.Debug("new day",
		zap.Stringer("date", c.Date()),
		zap.Stringer("weather", c.Weather),
		zap.Stringer("previous_weather", s.PreviousDayWeather),
	)
	return seasonChanged
}
