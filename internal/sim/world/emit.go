package world

import (
	"hearthfield.game/internal/events"
	"hearthfield.game/internal/sim/calendar"
)

// stepEmitter turns reconciliation results into bus events and journal rows for
// the current step.
type stepEmitter struct {
	w    *World
	step uint64
}

func (e stepEmitter) DayEnded(ev calendar.DayEndEvent) {
	w := e.w
	w.ended++
	w.totals.dayEnds++
	w.festivals.EndDay()
	if w.metrics != nil {
		w.metrics.DayEnds.WithLabelValues(ev.Cause.String()).Inc()
	}
	w.queue(events.NewDayEnd(e.step, ev))
	entry := withDate(EventLogEntry{
		Step:        e.step,
		Type:        string(events.EventDayEnd),
		Cause:       ev.Cause.String(),
		Weather:     w.state.PreviousDayWeather.String(),
		NextWeather: w.state.Clock.Weather.String(),
		Watered:     w.state.PreviousDayWeather.IsWet(),
	}, ev.Date())
	w.record(entry)
}

func (e stepEmitter) SeasonChanged(ev calendar.SeasonChangeEvent) {
	w := e.w
	w.totals.seasonChanges++
	if w.metrics != nil {
		w.metrics.SeasonChanges.Inc()
	}
	w.queue(events.NewSeasonChange(e.step, ev))
	w.record(EventLogEntry{
		Step:   e.step,
		Type:   string(events.EventSeasonChange),
		Year:   ev.Year,
		Season: ev.NewSeason.String(),
	})
}

func (e stepEmitter) DayEndSkipped(ev calendar.DayEndEvent, reason calendar.SkipReason) {
	w := e.w
	w.totals.skipped++
	if w.metrics != nil {
		w.metrics.ReconcileSkipped.WithLabelValues(string(reason)).Inc()
	}
	w.queue(events.NewDayEndSkipped(e.step, ev, string(reason)))
	w.record(withDate(EventLogEntry{
		Step:   e.step,
		Type:   string(events.EventDayEndSkipped),
		Cause:  ev.Cause.String(),
		Reason: string(reason),
	}, ev.Date()))
}
