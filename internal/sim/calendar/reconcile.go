package calendar

import (
	"go.uber.org/zap"
)

// SkipReason explains why a DayEndEvent was not acted upon.
type SkipReason string

const (
	SkipDuplicate     SkipReason = "duplicate"
	SkipStale         SkipReason = "stale"
	SkipFuture        SkipReason = "future"
	SkipCauseMismatch SkipReason = "cause_mismatch"
)

// Emitter receives the notifications produced by reconciliation, in order.
type Emitter interface {
	DayEnded(ev DayEndEvent)
	SeasonChanged(ev SeasonChangeEvent)
	DayEndSkipped(ev DayEndEvent, reason SkipReason)
}

type ReconcileResult struct {
	Accepted      int
	Advanced      int
	SeasonChanges int
	Skipped       int
}

// Reconciler consumes every DayEndEvent emitted during a step, whichever path
// produced it, and makes sure the calendar advanced exactly once per logical day end.
type Reconciler struct {
	weather *WeatherGenerator
	log     *zap.Logger

	// lastEnded is the ordinal of the most recently accepted day end, plus one.
	lastEnded uint32
}

func NewReconciler(weather *WeatherGenerator, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{weather: weather, log: log}
}

// Reconcile processes batch in emission order. Auto events were already applied by
// the accumulator, so only their season transition is announced here. External
// events advance the clock when their date still matches it; anything else is a
// duplicate or a stale report and is skipped.
func (r *Reconciler) Reconcile(s *State, batch []DayEndEvent, emit Emitter) ReconcileResult {
	var res ReconcileResult
	for _, ev := range batch {
		cause, reason := classify(s.Clock, ev)
		if reason == "" && ev.Date().Ordinal()+1 == r.lastEnded {
			reason = SkipDuplicate
		}
		if reason != "" {
			res.Skipped++
			r.log.Warn("day end skipped",
				zap.Stringer("event_date", ev.Date()),
				zap.Stringer("clock_date", s.Clock.Date()),
				zap.Stringer("cause", ev.Cause),
				zap.String("reason", string(reason)),
			)
			if emit != nil {
				emit.DayEndSkipped(ev, reason)
			}
			continue
		}

		res.Accepted++
		r.lastEnded = ev.Date().Ordinal() + 1
		switch cause {
		case CauseExternalSleep:
			advanceDay(s, r.weather, r.log)
			res.Advanced++
		case CauseAuto2AM:
			// Clock already sits on the following day.
		}
		if emit != nil {
			emit.DayEnded(ev)
		}
		if ev.Season != s.Clock.Season {
			change := SeasonChangeEvent{NewSeason: s.Clock.Season, Year: s.Clock.Year}
			res.SeasonChanges++
			r.log.Info("season changed",
				zap.Stringer("from", ev.Season),
				zap.Stringer("to", change.NewSeason),
				zap.Uint32("year", change.Year),
			)
			if emit != nil {
				emit.SeasonChanged(change)
			}
		}
	}
	return res
}

// classify resolves the effective cause of ev against the clock, or returns the
// reason it must be skipped.
func classify(c Clock, ev DayEndEvent) (Cause, SkipReason) {
	now := c.TotalDaysElapsed()
	at := ev.Date().Ordinal()

	var inferred Cause
	var reason SkipReason
	switch {
	case at == now:
		inferred = CauseExternalSleep
	case at+1 == now:
		inferred = CauseAuto2AM
	case at > now:
		reason = SkipFuture
	default:
		reason = SkipStale
	}
	if reason != "" {
		return CauseUnspecified, reason
	}

	switch ev.Cause {
	case CauseUnspecified:
		return inferred, ""
	case inferred:
		return inferred, ""
	case CauseExternalSleep:
		// A sleep for a day the clock already left: another event advanced it first.
		return CauseUnspecified, SkipDuplicate
	default:
		return CauseUnspecified, SkipCauseMismatch
	}
}

// Reset forgets the last accepted day end, e.g. after a save is loaded.
func (r *Reconciler) Reset() { r.lastEnded = 0 }
