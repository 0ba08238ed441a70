package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hearthfield.game/internal/metrics"
	persistlog "hearthfield.game/internal/persistence/log"
	"hearthfield.game/internal/persistence/snapshot"
	"hearthfield.game/internal/sim/tuning"
	"hearthfield.game/internal/sim/world"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "farm", "world id")
		seed       = flag.Int64("seed", 0, "weather seed for a fresh world (0: use tuning seed)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (day ends, seasons, saves)")
		logDev     = flag.Bool("log_dev", false, "human-readable development logging")

		savePath   = flag.String("snapshot", "", "path to a save to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load the latest save from the data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := newLogger(*logDev)
	defer func() { _ = logger.Sync() }()

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatal("create world dir", zap.Error(err))
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	saveToLoad := strings.TrimSpace(*savePath)
	if saveToLoad == "" && *loadLatest {
		saveToLoad = snapshot.Latest(filepath.Join(worldDir, "saves"))
	}

	// Tuning is required for a fresh world; a resumed save carries its own clock.
	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil {
		if saveToLoad == "" || !os.IsNotExist(tuneErr) {
			logger.Fatal("load tuning", zap.String("path", tp), zap.Error(tuneErr))
		}
		logger.Warn("tuning not found; using defaults", zap.String("path", tp))
		tune = tuning.Defaults()
	}
	for _, warning := range tune.Warnings() {
		logger.Warn("tuning", zap.String("warning", warning))
	}
	if *seed != 0 {
		tune.Seed = *seed
	}

	// Optional read-model index (does not affect the simulation).
	idx, err := openRuntimeIndex(worldDir, *disableDB, logger)
	if err != nil {
		logger.Fatal("open index backend", zap.Error(err))
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Warn("index backend: upsert tuning", zap.Error(err))
		}
	}

	w, err := world.New(world.WorldConfig{
		ID:                *worldID,
		TickRateHz:        tune.TickRateHz,
		Seed:              tune.Seed,
		TimeScale:         tune.TimeScale,
		MaxCatchupMinutes: tune.MaxCatchupMinutes,
		AutosaveOnDayEnd:  tune.AutosaveOnDayEnd,
		SleepLocations:    tune.SleepLocations,
		PassOutHour:       tune.PassOutHour,
	}, logger)
	if err != nil {
		logger.Fatal("world", zap.Error(err))
	}
	if saveToLoad != "" {
		s, err := snapshot.ReadSave(saveToLoad)
		if err != nil {
			logger.Fatal("read save", zap.String("path", saveToLoad), zap.Error(err))
		}
		if s.Header.WorldID != "" && s.Header.WorldID != *worldID {
			logger.Fatal("save world id mismatch", zap.String("flag", *worldID), zap.String("save", s.Header.WorldID))
		}
		if err := w.ImportSave(s); err != nil {
			logger.Fatal("import save", zap.Error(err))
		}
		logger.Info("resumed from save", zap.String("save", filepath.Base(saveToLoad)), zap.Uint64("step", w.CurrentStep()))
	}

	reg := metrics.New()
	w.SetMetrics(reg)

	stepLog := persistlog.NewStepLogger(worldDir)
	eventLog := persistlog.NewEventLogger(worldDir)
	defer stepLog.Close()
	defer eventLog.Close()
	w.SetStepLogger(stepLog)
	var idxLogger world.EventLogger
	if idx != nil {
		idxLogger = idx
	}
	w.SetEventLogger(multiEventLogger{a: eventLog, b: idxLogger})

	ctx, cancel := signalContext()
	defer cancel()

	saves := &saveWriter{worldDir: worldDir, idx: idx, hub: w.Events(), metrics: reg, log: logger.Named("saves")}
	saveCh := make(chan snapshot.SaveV1, 4)
	w.SetSaveSink(saveCh)
	saverDone := make(chan struct{})
	go func() {
		defer close(saverDone)
		saves.run(ctx, saveCh)
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("world stopped", zap.Error(err))
		}
	}()

	mux := newMux(routeConfig{
		World:          w,
		Metrics:        reg,
		ObserverBuffer: tune.ObserverBuffer,
		EnableAdmin:    envBool("HF_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		Log:            logger,
	})
	if envBool("HF_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening", zap.String("addr", *addr), zap.String("world_id", w.ID()), zap.String("run_id", w.RunID()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("ListenAndServe", zap.Error(err))
	}

	// The world loop has exited, so exporting from this goroutine is safe.
	<-worldDone
	<-saverDone
	if step := w.CurrentStep(); step > 0 {
		if _, err := saves.persist(w.ExportSave(step-1, snapshot.ReasonShutdown)); err != nil {
			logger.Error("shutdown save", zap.Error(err))
		}
	}
}

func newLogger(dev bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("server")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
