package world

import (
	"time"

	"hearthfield.game/internal/sim/calendar"
)

// WorldMetrics is a thread-safe read-only view of key runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Step uint64 `json:"step"`
	Mode Mode   `json:"mode"`

	Calendar calendar.View `json:"calendar"`

	DayEnds       uint64 `json:"day_ends"`
	SeasonChanges uint64 `json:"season_changes"`
	Skipped       uint64 `json:"reconcile_skipped"`
	CatchupCapped uint64 `json:"catchup_capped"`
	Festivals     uint64 `json:"festivals"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Mode    int `json:"mode"`
	Sleep   int `json:"sleep"`
	Stamina int `json:"stamina"`
	Save    int `json:"save"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	m, _ := w.published.Load().(WorldMetrics)
	return m
}

func (w *World) storeMetrics(step uint64, took time.Duration) {
	view := w.View()
	w.published.Store(WorldMetrics{
		Step:          step + 1,
		Mode:          w.mode,
		Calendar:      view,
		DayEnds:       w.totals.dayEnds,
		SeasonChanges: w.totals.seasonChanges,
		Skipped:       w.totals.skipped,
		CatchupCapped: w.totals.capped,
		Festivals:     w.totals.festivals,
		QueueDepths: QueueDepths{
			Mode:    len(w.modeReq),
			Sleep:   len(w.sleepReq),
			Stamina: len(w.staminaReq),
			Save:    len(w.saveReq),
		},
		StepMS: float64(took.Microseconds()) / 1000.0,
	})
	if w.metrics != nil {
		w.metrics.Steps.Inc()
		w.metrics.StepDuration.Observe(took.Seconds())
		w.metrics.TotalDays.Set(float64(view.TotalDaysElapsed))
		if view.Paused {
			w.metrics.Paused.Set(1)
		} else {
			w.metrics.Paused.Set(0)
		}
	}
}
