package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hearthfield.game/internal/sim/calendar"
	"hearthfield.game/internal/sim/world"
)

func TestStepLoggerRoundTripAcrossRotation(t *testing.T) {
	dir := t.TempDir()
	l := NewStepLogger(dir)
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.j.now = func() time.Time { return now }

	for i := uint64(0); i < 5; i++ {
		if i == 3 {
			now = now.Add(2 * time.Minute)
		}
		err := l.WriteStep(world.StepLogEntry{
			Step:   i,
			DtNS:   int64(50 * time.Millisecond),
			Sleeps: []world.SleepRequest{{Location: "PlayerHouse"}},
			Date:   calendar.Date{Year: 1, Season: calendar.Spring, Day: 1},
			Hour:   6,
			Digest: "d",
		})
		if err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := ListFiles(filepath.Join(dir, StepsDir), StepsPrefix)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%v", files)
	}
	if filepath.Base(files[0]) != "steps-2026-03-01-10.jsonl.zst" {
		t.Fatalf("first file %s", files[0])
	}

	var steps []uint64
	err = ScanSteps(dir, func(e world.StepLogEntry) error {
		steps = append(steps, e.Step)
		if e.Input().Dt != 50*time.Millisecond || len(e.Sleeps) != 1 {
			t.Fatalf("entry=%+v", e)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(steps) != 5 || steps[0] != 0 || steps[4] != 4 {
		t.Fatalf("steps=%v", steps)
	}
}

func TestEventLoggerAppendsAfterReopen(t *testing.T) {
	dir := t.TempDir()
	fixed := func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }

	for round := 0; round < 2; round++ {
		l := NewEventLogger(dir)
		l.j.now = fixed
		if err := l.WriteEvent(world.EventLogEntry{Step: uint64(round), Type: "calendar.day_end", Year: 1, Season: "Spring", Day: 1}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	var got []world.EventLogEntry
	if err := ScanEvents(dir, func(e world.EventLogEntry) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 || got[1].Step != 1 || got[0].Type != "calendar.day_end" {
		t.Fatalf("got=%+v", got)
	}
}

func TestScanStopsEarly(t *testing.T) {
	dir := t.TempDir()
	l := NewStepLogger(dir)
	for i := uint64(0); i < 10; i++ {
		if err := l.WriteStep(world.StepLogEntry{Step: i}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	_ = l.Close()

	n := 0
	err := ScanSteps(dir, func(e world.StepLogEntry) error {
		n++
		if e.Step == 3 {
			return ErrStop
		}
		return nil
	})
	if err != nil || n != 4 {
		t.Fatalf("n=%d err=%v", n, err)
	}

	boom := errors.New("boom")
	if err := ScanSteps(dir, func(world.StepLogEntry) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestScanMissingDir(t *testing.T) {
	if err := ScanEvents(t.TempDir(), func(world.EventLogEntry) error { return nil }); err == nil {
		t.Fatalf("expected error for missing journal dir")
	}
}

func TestListFilesSkipsForeignNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"steps-2026-03-01-11.jsonl.zst",
		"steps-2026-02-28-23.jsonl.zst",
		"steps-latest.jsonl.zst",
		"events-2026-03-01-10.jsonl.zst",
		"steps-2026-03-01-09.jsonl",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	files, err := ListFiles(dir, StepsPrefix)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "steps-2026-02-28-23.jsonl.zst" || filepath.Base(files[1]) != "steps-2026-03-01-11.jsonl.zst" {
		t.Fatalf("files=%v", files)
	}
}

func TestSegmentNameRoundTrip(t *testing.T) {
	hour := time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC)
	name := segmentName(EventsPrefix, hour.Add(42*time.Minute))
	if name != "events-2026-12-31-23.jsonl.zst" {
		t.Fatalf("name=%s", name)
	}
	got, ok := segmentHour(EventsPrefix, name)
	if !ok || !got.Equal(hour) {
		t.Fatalf("hour=%v ok=%v", got, ok)
	}
	if _, ok := segmentHour(StepsPrefix, name); ok {
		t.Fatalf("prefix mismatch accepted")
	}
}
