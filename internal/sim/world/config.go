package world

import (
	"hearthfield.game/internal/sim/calendar"
	"hearthfield.game/internal/sim/sleep"
)

type WorldConfig struct {
	ID         string
	TickRateHz int
	Seed       int64

	// TimeScale is game-minutes per real second for a fresh calendar.
	TimeScale         float64
	MaxCatchupMinutes int

	AutosaveOnDayEnd bool
	SleepLocations   []string
	PassOutHour      int

	// Queue sizes for cross-goroutine requests.
	RequestBuffer int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "farm"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 30
	}
	if c.MaxCatchupMinutes <= 0 {
		c.MaxCatchupMinutes = calendar.DefaultMaxCatchupMinutes
	}
	if len(c.SleepLocations) == 0 {
		c.SleepLocations = []string{sleep.DefaultLocation}
	}
	if c.PassOutHour <= 0 {
		c.PassOutHour = sleep.DefaultPassOutHour
	}
	if c.RequestBuffer <= 0 {
		c.RequestBuffer = 64
	}
	// Non-positive TimeScale is kept as-is; the clock substitutes the default.
}
