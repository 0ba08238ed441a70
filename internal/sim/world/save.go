package world

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"hearthfield.game/internal/persistence/snapshot"
	"hearthfield.game/internal/sim/calendar"
)

// ExportSave captures the calendar after step. Must run on the world loop goroutine.
func (w *World) ExportSave(step uint64, reason string) snapshot.SaveV1 {
	rng, err := w.pcg.MarshalBinary()
	if err != nil {
		w.log.Error("marshal rng", zap.Error(err))
	}
	c := w.state.Clock
	var stamina *float64
	if w.hasStamina {
		v := w.stamina
		stamina = &v
	}
	return snapshot.SaveV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			RunID:   w.runID,
			Step:    step,
			Reason:  reason,
			SavedAt: time.Now().UTC().Format(time.RFC3339),
			Summary: snapshot.SummaryOf(c),
		},
		Seed:               w.cfg.Seed,
		Clock:              c,
		PreviousDayWeather: w.state.PreviousDayWeather,
		Festival: snapshot.FestivalV1{
			LastAnnounced: w.festivals.LastAnnounced,
			Active:        w.festivals.Active,
		},
		RNG:       rng,
		Mode:      string(w.mode),
		PassedOut: w.passOut.Tripped(),
		Stamina:   stamina,
	}
}

// ImportSave restores a save into a world that has not started running.
func (w *World) ImportSave(s snapshot.SaveV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("%w: %d", snapshot.ErrVersion, s.Header.Version)
	}
	if err := validateClock(s.Clock); err != nil {
		return fmt.Errorf("import save: %w", err)
	}
	if len(s.RNG) > 0 {
		if err := w.pcg.UnmarshalBinary(s.RNG); err != nil {
			return fmt.Errorf("import save: rng: %w", err)
		}
	}
	mode := ModePlaying
	if s.Mode != "" {
		m, err := ParseMode(s.Mode)
		if err != nil {
			return fmt.Errorf("import save: %w", err)
		}
		mode = m
	}

	if s.Clock.TimeScale != w.cfg.TimeScale {
		w.log.Info("keeping saved time scale",
			zap.Float64("saved", s.Clock.TimeScale),
			zap.Float64("configured", w.cfg.TimeScale),
		)
	}
	w.cfg.Seed = s.Seed
	w.state = calendar.State{Clock: s.Clock, PreviousDayWeather: s.PreviousDayWeather}
	w.festivals = calendar.FestivalAnnouncer{LastAnnounced: s.Festival.LastAnnounced, Active: s.Festival.Active}
	w.mode = mode
	w.state.Clock.TimePaused = mode != ModePlaying
	w.passOut.Restore(s.PassedOut)
	w.stamina, w.hasStamina = 0, s.Stamina != nil
	if s.Stamina != nil {
		w.stamina = *s.Stamina
	}
	w.rec.Reset()
	w.step.Store(s.Header.Step + 1)
	w.publishView()

	w.log.Info("save loaded",
		zap.Uint64("step", s.Header.Step),
		zap.Stringer("clock", w.state.Clock),
		zap.String("saved_run_id", s.Header.RunID),
	)
	return nil
}

func validateClock(c calendar.Clock) error {
	switch {
	case c.Season > calendar.Winter:
		return fmt.Errorf("season %d out of range", c.Season)
	case c.Day < 1 || c.Day > calendar.DaysPerSeason:
		return fmt.Errorf("day %d out of range", c.Day)
	case c.Hour < calendar.DayStartHour || c.Hour >= calendar.DayEndHour:
		return fmt.Errorf("hour %d out of range", c.Hour)
	case c.Minute >= calendar.MinutesPerHour:
		return fmt.Errorf("minute %d out of range", c.Minute)
	case c.Year < 1:
		return fmt.Errorf("year %d out of range", c.Year)
	case c.Weather > calendar.Snowy:
		return fmt.Errorf("weather %d out of range", c.Weather)
	}
	return nil
}
