package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hearthfield"

// Registry holds the calendar runtime metrics on a private prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	// Calendar
	DayEnds          *prometheus.CounterVec
	SeasonChanges    prometheus.Counter
	ReconcileSkipped *prometheus.CounterVec
	Festivals        *prometheus.CounterVec
	TotalDays        prometheus.Gauge
	Paused           prometheus.Gauge

	// Loop
	Steps          prometheus.Counter
	StepDuration   prometheus.Histogram
	CatchupCapped  prometheus.Counter
	DroppedRealSec prometheus.Counter
	QueueRejected  *prometheus.CounterVec

	// Persistence
	Saves      *prometheus.CounterVec
	SaveErrors prometheus.Counter

	// Observers
	Observers prometheus.Gauge
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	r := &Registry{reg: reg}

	r.DayEnds = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "day_ends_total",
		Help:      "Accepted day ends, by cause",
	}, []string{"cause"})
	r.SeasonChanges = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "season_changes_total",
		Help:      "Season transitions announced",
	})
	r.ReconcileSkipped = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_skipped_total",
		Help:      "Day end events skipped during reconciliation, by reason",
	}, []string{"reason"})
	r.Festivals = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "festival_announcements_total",
		Help:      "Festival announcements, by festival",
	}, []string{"festival"})
	r.TotalDays = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "total_days_elapsed",
		Help:      "Days since Spring 1, Year 1",
	})
	r.Paused = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "clock_paused",
		Help:      "1 while game time is frozen",
	})

	r.Steps = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "steps_total",
		Help:      "Simulation steps executed",
	})
	r.StepDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "step_duration_seconds",
		Help:      "Wall time spent inside one simulation step",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
	})
	r.CatchupCapped = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catchup_capped_total",
		Help:      "Steps whose real elapsed time exceeded the catch-up cap",
	})
	r.DroppedRealSec = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catchup_dropped_seconds_total",
		Help:      "Real time discarded by the catch-up cap",
	})
	r.QueueRejected = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_rejected_total",
		Help:      "Requests rejected because the world queue was full",
	}, []string{"queue"})

	r.Saves = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "saves_total",
		Help:      "Save files written, by reason",
	}, []string{"reason"})
	r.SaveErrors = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "save_errors_total",
		Help:      "Save files that failed to write",
	})

	r.Observers = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "observers",
		Help:      "Connected observer streams",
	})
	return r
}

// RegisterHubStats exposes event bus counters read through stats at scrape time.
func (r *Registry) RegisterHubStats(stats func() (published, dropped uint64)) {
	f := promauto.With(r.reg)
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Events published on the in-process bus",
	}, func() float64 {
		p, _ := stats()
		return float64(p)
	})
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Events dropped because a subscriber was full",
	}, func() float64 {
		_, d := stats()
		return float64(d)
	})
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
