package world

import (
	"time"

	"go.uber.org/zap"

	"hearthfield.game/internal/events"
	"hearthfield.game/internal/persistence/snapshot"
	"hearthfield.game/internal/sim/calendar"
)

// stepInternal runs one step: mode transitions, the time tick, external day-end
// triggers, reconciliation, festival detection, then notification and sinks.
func (w *World) stepInternal(in StepInput) {
	start := time.Now()
	step := w.step.Load()
	w.outbox = w.outbox[:0]
	w.entries = w.entries[:0]
	w.ended = 0

	for _, m := range in.Modes {
		w.applyMode(step, m)
	}

	tick := w.acc.Step(&w.state, in.Dt)
	if tick.Capped {
		w.totals.capped++
		if w.metrics != nil {
			w.metrics.CatchupCapped.Inc()
			w.metrics.DroppedRealSec.Add(tick.Dropped.Seconds())
		}
	}
	batch := tick.DayEnds

	for _, r := range in.Sleeps {
		ev := calendar.SleepEvent(w.state.Clock)
		if r.Date.Year != 0 {
			ev = calendar.SleepEventOn(r.Date)
		}
		w.log.Info("sleep requested",
			zap.String("location", r.Location),
			zap.Stringer("slept_on", ev.Date()),
			zap.Stringer("clock", w.state.Clock),
		)
		batch = append(batch, ev)
	}
	for _, v := range in.Stamina {
		w.stamina, w.hasStamina = v, true
	}
	if w.hasStamina && w.mode == ModePlaying && w.passOut.Observe(w.stamina, w.state.Clock.Hour) {
		w.log.Info("player passed out", zap.Float64("stamina", w.stamina), zap.Stringer("clock", w.state.Clock))
		batch = append(batch, calendar.SleepEvent(w.state.Clock))
	}

	w.rec.Reconcile(&w.state, batch, stepEmitter{w: w, step: step})

	if w.mode == ModePlaying && !w.state.Clock.TimePaused {
		if f, announce := w.festivals.Check(w.state.Clock); announce {
			w.announceFestival(step, f)
		}
	}

	w.publishView()
	for _, e := range w.outbox {
		w.hub.Publish(e)
	}
	if w.eventLogger != nil {
		for _, e := range w.entries {
			if err := w.eventLogger.WriteEvent(e); err != nil {
				w.log.Warn("event log write", zap.Error(err))
			}
		}
	}

	digest := w.stateDigest(step)
	if w.stepLogger != nil {
		c := w.state.Clock
		_ = w.stepLogger.WriteStep(StepLogEntry{
			Step:    step,
			DtNS:    int64(in.Dt),
			Modes:   in.Modes,
			Sleeps:  in.Sleeps,
			Stamina: in.Stamina,
			Date:    c.Date(),
			Hour:    c.Hour,
			Minute:  c.Minute,
			Digest:  digest,
		})
	}

	if w.ended > 0 && w.cfg.AutosaveOnDayEnd && w.saveSink != nil {
		select {
		case w.saveSink <- w.ExportSave(step, snapshot.ReasonDayEnd):
		default:
			w.log.Warn("autosave dropped: save sink backed up", zap.Uint64("step", step))
			if w.metrics != nil {
				w.metrics.SaveErrors.Inc()
			}
		}
	}

	w.step.Add(1)
	w.storeMetrics(step, time.Since(start))
}

func (w *World) applyMode(step uint64, m Mode) {
	prev := w.mode
	if m == prev {
		return
	}
	w.mode = m
	c := &w.state.Clock
	switch {
	case m == ModePlaying:
		c.TimePaused = false
		w.log.Info("clock resumed", zap.String("from", string(prev)))
		w.queue(events.NewMode(step, false, string(m), w.state.View()))
		w.record(EventLogEntry{Step: step, Type: string(events.EventResumed), Mode: string(m)})
	case prev == ModePlaying:
		c.TimePaused = true
		w.log.Info("clock paused", zap.String("mode", string(m)))
		w.queue(events.NewMode(step, true, string(m), w.state.View()))
		w.record(EventLogEntry{Step: step, Type: string(events.EventPaused), Mode: string(m)})
	}
}

func (w *World) announceFestival(step uint64, f calendar.Festival) {
	c := w.state.Clock
	w.totals.festivals++
	w.log.Info("festival today",
		zap.Stringer("festival", f),
		zap.String("music_track", f.MusicTrack()),
		zap.Stringer("date", c.Date()),
	)
	if w.metrics != nil {
		w.metrics.Festivals.WithLabelValues(f.String()).Inc()
	}
	w.queue(events.NewFestival(step, f, c.Date()))
	w.record(withDate(EventLogEntry{Step: step, Type: string(events.EventFestival), Festival: f.String()}, c.Date()))
}

func (w *World) queue(e events.Event)   { w.outbox = append(w.outbox, e) }
func (w *World) record(e EventLogEntry) { w.entries = append(w.entries, e) }

func withDate(e EventLogEntry, d calendar.Date) EventLogEntry {
	e.Year, e.Season, e.Day = d.Year, d.Season.String(), d.Day
	return e
}
