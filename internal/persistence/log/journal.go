package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"hearthfield.game/internal/sim/world"
)

const (
	StepsDir    = "steps"
	StepsPrefix = "steps"

	EventsDir    = "events"
	EventsPrefix = "events"

	segmentExt    = ".jsonl.zst"
	segmentLayout = "2006-01-02-15"
)

// segmentName is the file holding one UTC hour of a journal.
func segmentName(prefix string, t time.Time) string {
	return prefix + "-" + t.UTC().Format(segmentLayout) + segmentExt
}

// segmentHour parses a segment file name back to its hour.
func segmentHour(prefix, name string) (time.Time, bool) {
	stamp, ok := strings.CutPrefix(name, prefix+"-")
	if !ok {
		return time.Time{}, false
	}
	stamp, ok = strings.CutSuffix(stamp, segmentExt)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(segmentLayout, stamp)
	return t, err == nil
}

// Journal appends typed records as JSON lines to hourly zstd segments. Each
// open of a segment starts a new zstd frame, so a restart within the same
// hour appends to the file it left.
type Journal[T any] struct {
	dir    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	open string
	f    *os.File
	zw   *zstd.Encoder
	enc  *json.Encoder
}

func NewJournal[T any](dir, prefix string) *Journal[T] {
	return &Journal[T]{dir: dir, prefix: prefix, now: time.Now}
}

func (j *Journal[T]) Append(v T) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if name := segmentName(j.prefix, j.now()); name != j.open {
		if err := j.switchTo(name); err != nil {
			return fmt.Errorf("journal %s: %w", j.prefix, err)
		}
	}
	if err := j.enc.Encode(v); err != nil {
		return fmt.Errorf("journal %s: %w", j.prefix, err)
	}
	return nil
}

func (j *Journal[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finish()
}

func (j *Journal[T]) switchTo(name string) error {
	if err := j.finish(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(j.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	enc := json.NewEncoder(zw)
	enc.SetEscapeHTML(false)
	j.open, j.f, j.zw, j.enc = name, f, zw, enc
	return nil
}

// finish ends the open frame and closes the segment.
func (j *Journal[T]) finish() error {
	if j.f == nil {
		return nil
	}
	err := j.zw.Close()
	if cerr := j.f.Close(); err == nil {
		err = cerr
	}
	j.open, j.f, j.zw, j.enc = "", nil, nil, nil
	return err
}

// StepLogger journals one entry per world step; the journal drives replay.
type StepLogger struct{ j *Journal[world.StepLogEntry] }

func NewStepLogger(worldDir string) *StepLogger {
	return &StepLogger{j: NewJournal[world.StepLogEntry](filepath.Join(worldDir, StepsDir), StepsPrefix)}
}

func (l *StepLogger) WriteStep(v world.StepLogEntry) error { return l.j.Append(v) }
func (l *StepLogger) Close() error                         { return l.j.Close() }

// EventLogger journals calendar notifications (day ends, season changes, festivals).
type EventLogger struct{ j *Journal[world.EventLogEntry] }

func NewEventLogger(worldDir string) *EventLogger {
	return &EventLogger{j: NewJournal[world.EventLogEntry](filepath.Join(worldDir, EventsDir), EventsPrefix)}
}

func (l *EventLogger) WriteEvent(v world.EventLogEntry) error { return l.j.Append(v) }
func (l *EventLogger) Close() error                          { return l.j.Close() }
