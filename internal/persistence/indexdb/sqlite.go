package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"hearthfield.game/internal/events"
	"hearthfield.game/internal/persistence/snapshot"
	"hearthfield.game/internal/sim/calendar"
	"hearthfield.game/internal/sim/tuning"
	"hearthfield.game/internal/sim/world"
)

const SchemaVersion = "1"

// SQLiteIndex is a secondary read model over the journals and saves. Writes are
// queued and applied by one goroutine; the JSONL journals remain the source of truth.
type SQLiteIndex struct {
	db  *sql.DB
	log *zap.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvent  atomic.Uint64
	dropSave   atomic.Uint64
	dropSeason atomic.Uint64
	writeErrs  atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqSave
	reqSeason
	reqFlush
)

type req struct {
	kind reqKind

	event  world.EventLogEntry
	save   saveRow
	season seasonRow
	done   chan struct{}
}

type saveRow struct {
	Step   uint64
	Path   string
	Reason string
	RunID  string
	Year   uint32
	Season string
	Day    uint8
}

type seasonRow struct {
	Year        uint32
	Season      string
	EndStep     uint64
	Seed        int64
	ArchivePath string
	RecordedAt  string
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropEvent     uint64 `json:"drop_event_total"`
	DropSave      uint64 `json:"drop_save_total"`
	DropSeason    uint64 `json:"drop_season_total"`
	WriteErrors   uint64 `json:"write_errors_total"`
}

func OpenSQLite(path string, log *zap.Logger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	s := &SQLiteIndex{
		db:  db,
		log: log.Named("indexdb"),
		ch:  make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS day_ends (
			year INTEGER NOT NULL,
			season TEXT NOT NULL,
			day INTEGER NOT NULL,
			cause TEXT NOT NULL,
			weather_ended TEXT NOT NULL,
			weather_next TEXT NOT NULL,
			step INTEGER NOT NULL,
			PRIMARY KEY (year, season, day)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_day_ends_step ON day_ends(step);`,
		`CREATE TABLE IF NOT EXISTS calendar_events (
			step INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			year INTEGER NOT NULL,
			season TEXT NOT NULL,
			day INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (step, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_events_type ON calendar_events(type, step);`,
		`CREATE TABLE IF NOT EXISTS seasons (
			year INTEGER NOT NULL,
			season TEXT NOT NULL,
			started_step INTEGER,
			end_step INTEGER,
			seed INTEGER,
			archive_path TEXT,
			recorded_at TEXT,
			PRIMARY KEY (year, season)
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			step INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			reason TEXT NOT NULL,
			run_id TEXT NOT NULL,
			year INTEGER NOT NULL,
			season TEXT NOT NULL,
			day INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// DB exposes the handle for read-only queries.
func (s *SQLiteIndex) DB() *sql.DB { return s.db }

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropEvent:     s.dropEvent.Load(),
		DropSave:      s.dropSave.Load(),
		DropSeason:    s.dropSeason.Load(),
		WriteErrors:   s.writeErrs.Load(),
	}
}

// WriteEvent implements world.EventLogger.
func (s *SQLiteIndex) WriteEvent(entry world.EventLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, event: entry}:
	default:
		s.dropEvent.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSave(path string, sv snapshot.SaveV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := saveRow{
		Step:   sv.Header.Step,
		Path:   path,
		Reason: sv.Header.Reason,
		RunID:  sv.Header.RunID,
		Year:   sv.Clock.Year,
		Season: sv.Clock.Season.String(),
		Day:    sv.Clock.Day,
	}
	select {
	case s.ch <- req{kind: reqSave, save: r}:
	default:
		s.dropSave.Add(1)
	}
}

// RecordSeason marks a season closed and points it at its archived save.
func (s *SQLiteIndex) RecordSeason(year uint32, season calendar.Season, endStep uint64, archivePath string, seed int64) {
	if s == nil || s.closed.Load() {
		return
	}
	if year == 0 || archivePath == "" {
		return
	}
	r := seasonRow{
		Year:        year,
		Season:      season.String(),
		EndStep:     endStep,
		Seed:        seed,
		ArchivePath: archivePath,
		RecordedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqSeason, season: r}:
	default:
		s.dropSeason.Add(1)
	}
}

// Flush blocks until everything queued before it is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertTuning stores the tuning actually applied, with its digest.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows := [][2]string{
		{"schema_version", SchemaVersion},
		{"tuning", string(b)},
		{"tuning_digest", hex.EncodeToString(sum[:])},
		{"updated_at", time.Now().UTC().Format(time.RFC3339Nano)},
	}
	for _, r := range rows {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, r[0], r[1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertDayEnd, _ := s.db.Prepare(`INSERT OR REPLACE INTO day_ends(year,season,day,cause,weather_ended,weather_next,step) VALUES(?,?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO calendar_events(step,seq,type,year,season,day,raw_json) VALUES(?,?,?,?,?,?,?)`)
	startSeason, _ := s.db.Prepare(`INSERT INTO seasons(year,season,started_step) VALUES(?,?,?) ON CONFLICT(year,season) DO UPDATE SET started_step=COALESCE(seasons.started_step, excluded.started_step)`)
	closeSeason, _ := s.db.Prepare(`INSERT INTO seasons(year,season,end_step,seed,archive_path,recorded_at) VALUES(?,?,?,?,?,?) ON CONFLICT(year,season) DO UPDATE SET end_step=excluded.end_step, seed=excluded.seed, archive_path=excluded.archive_path, recorded_at=excluded.recorded_at`)
	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(step,path,reason,run_id,year,season,day) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertDayEnd, insertEvent, startSeason, closeSeason, insertSave} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second

		lastEventStep uint64
		eventSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.log.Warn("begin tx", zap.Error(err))
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrs.Add(1)
			s.log.Warn("commit", zap.Error(err))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func(err error) {
		s.writeErrs.Add(1)
		s.log.Warn("index write failed; batch rolled back", zap.Error(err))
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback(err)
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEvent:
			e := r.event
			if e.Step != lastEventStep {
				lastEventStep = e.Step
				eventSeq = 0
			}
			seq := eventSeq
			eventSeq++
			raw, _ := json.Marshal(e)
			if !exec(insertEvent, int64(e.Step), seq, e.Type, e.Year, e.Season, e.Day, string(raw)) {
				continue
			}
			switch events.EventType(e.Type) {
			case events.EventDayEnd:
				exec(insertDayEnd, e.Year, e.Season, e.Day, e.Cause, e.Weather, e.NextWeather, int64(e.Step))
			case events.EventSeasonChange:
				exec(startSeason, e.Year, e.Season, int64(e.Step))
			}

		case reqSave:
			sv := r.save
			exec(insertSave, int64(sv.Step), sv.Path, sv.Reason, sv.RunID, sv.Year, sv.Season, sv.Day)

		case reqSeason:
			se := r.season
			exec(closeSeason, se.Year, se.Season, int64(se.EndStep), se.Seed, se.ArchivePath, se.RecordedAt)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
