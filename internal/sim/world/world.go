package world

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hearthfield.game/internal/events"
	"hearthfield.game/internal/metrics"
	"hearthfield.game/internal/persistence/snapshot"
	"hearthfield.game/internal/sim/calendar"
	"hearthfield.game/internal/sim/sleep"
)

// World owns the calendar and is the only writer of its state. All fields below
// the request channels are accessed only from the world loop goroutine.
type World struct {
	cfg   WorldConfig
	runID string
	log   *zap.Logger

	step atomic.Uint64

	modeReq    chan Mode
	sleepReq   chan SleepRequest
	staminaReq chan float64
	saveReq    chan saveReq
	stop       chan struct{}
	stopped    atomic.Bool

	state     calendar.State
	pcg       *rand.PCG
	acc       *calendar.Accumulator
	rec       *calendar.Reconciler
	festivals calendar.FestivalAnnouncer

	mode       Mode
	gate       *sleep.Gate
	passOut    *sleep.PassOutMonitor
	stamina    float64
	hasStamina bool

	hub     *events.Hub
	metrics *metrics.Registry

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	stepLogger  StepLogger
	eventLogger EventLogger
	saveSink    chan<- snapshot.SaveV1

	// Per-step buffers, reset at the start of every step.
	outbox  []events.Event
	entries []EventLogEntry
	ended   int

	totals    totals
	view      atomic.Value // calendar.View
	published atomic.Value // WorldMetrics
}

type totals struct {
	dayEnds       uint64
	seasonChanges uint64
	skipped       uint64
	capped        uint64
	festivals     uint64
}

func New(cfg WorldConfig, log *zap.Logger) (*World, error) {
	cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TickRateHz > 1000 {
		return nil, fmt.Errorf("tick rate %d Hz out of range", cfg.TickRateHz)
	}

	runID := uuid.NewString()
	log = log.Named("world").With(zap.String("world_id", cfg.ID), zap.String("run_id", runID))

	pcg := calendar.NewSeededPCG(cfg.Seed)
	// #nosec G404 -- deterministic simulation randomness.
	gen := calendar.NewWeatherGenerator(rand.New(pcg))
	calLog := log.Named("calendar")

	state := calendar.NewState()
	state.Clock.TimeScale = cfg.TimeScale

	w := &World{
		cfg:        cfg,
		runID:      runID,
		log:        log,
		modeReq:    make(chan Mode, cfg.RequestBuffer),
		sleepReq:   make(chan SleepRequest, cfg.RequestBuffer),
		staminaReq: make(chan float64, cfg.RequestBuffer),
		saveReq:    make(chan saveReq, cfg.RequestBuffer),
		stop:       make(chan struct{}),
		state:      state,
		pcg:        pcg,
		acc:        calendar.NewAccumulator(gen, cfg.MaxCatchupMinutes, calLog),
		rec:        calendar.NewReconciler(gen, calLog),
		mode:       ModePlaying,
		gate:       sleep.NewGate(cfg.SleepLocations),
		passOut:    sleep.NewPassOutMonitor(cfg.PassOutHour),
		hub:        events.NewHub(),
	}
	w.publishView()
	return w, nil
}

func (w *World) SetStepLogger(l StepLogger)            { w.stepLogger = l }
func (w *World) SetEventLogger(l EventLogger)          { w.eventLogger = l }
func (w *World) SetSaveSink(ch chan<- snapshot.SaveV1) { w.saveSink = ch }

func (w *World) SetMetrics(m *metrics.Registry) {
	w.metrics = m
	if m != nil {
		m.RegisterHubStats(w.hub.Stats)
	}
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) RunID() string { return w.runID }

func (w *World) TickRateHz() int { return w.cfg.TickRateHz }

func (w *World) Seed() int64 { return w.cfg.Seed }

// SleepLocations lists where RequestSleep is accepted.
func (w *World) SleepLocations() []string { return w.gate.Locations() }

// Events is the bus every calendar notification is published on.
func (w *World) Events() *events.Hub { return w.hub }

// CurrentStep is the index of the next step to execute.
func (w *World) CurrentStep() uint64 { return w.step.Load() }

// View returns the calendar as of the last completed step. Safe for concurrent use.
func (w *World) View() calendar.View {
	v, _ := w.view.Load().(calendar.View)
	return v
}

func (w *World) publishView() { w.view.Store(w.state.View()) }
