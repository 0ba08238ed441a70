package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hearthfield.game/internal/events"
	"hearthfield.game/internal/persistence/indexdb"
	"hearthfield.game/internal/persistence/snapshot"
	"hearthfield.game/internal/sim/calendar"
	"hearthfield.game/internal/sim/world"
)

func TestListSaves_ReadsHeadersNewestLast(t *testing.T) {
	dir := t.TempDir()
	for _, step := range []uint64{10, 250, 90} {
		c := calendar.NewClock()
		s := snapshot.SaveV1{
			Header: snapshot.Header{WorldID: "farm", RunID: "r", Step: step, Reason: snapshot.ReasonManual, Summary: snapshot.SummaryOf(c)},
			Clock:  c,
		}
		if err := snapshot.WriteSave(filepath.Join(dir, snapshot.FileName(step)), s); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, snapshot.FileName(300)), []byte("junk"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	lines, err := listSaves(dir, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("lines=%+v", lines)
	}
	if lines[0].Step != 90 || lines[1].Step != 250 || lines[2].Step != 300 {
		t.Fatalf("order=%+v", lines)
	}
	if lines[1].Reason != snapshot.ReasonManual || lines[1].Summary.Season != calendar.Spring {
		t.Fatalf("header=%+v", lines[1])
	}
	if lines[2].Error == "" {
		t.Fatalf("expected header error for corrupt save")
	}
}

func TestRunQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.sqlite")
	idx, err := indexdb.OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()
	_ = idx.WriteEvent(world.EventLogEntry{
		Step: 12, Type: string(events.EventDayEnd), Year: 1, Season: "Spring", Day: 1,
		Cause: "EXTERNAL_SLEEP", Weather: "Sunny", NextWeather: "Rainy",
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	var got []any
	if err := runQuery(ctx, idx.DB(), "days", 0, func(v any) { got = append(got, v) }); err != nil {
		t.Fatalf("days: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got=%v", got)
	}
	row, ok := got[0].(indexdb.DayEndRow)
	if !ok || row.Cause != "EXTERNAL_SLEEP" || row.WeatherNext != "Rainy" {
		t.Fatalf("row=%+v", got[0])
	}

	if err := runQuery(ctx, idx.DB(), "bogus", 5, func(any) {}); err == nil {
		t.Fatalf("expected error for unknown query")
	}
}

func TestAdminURL(t *testing.T) {
	if got := adminURL(" http://h:1/ ", "/admin/v1/state", nil); got != "http://h:1/admin/v1/state" {
		t.Fatalf("got %q", got)
	}
	q := map[string][]string{"location": {"Tent"}}
	if got := adminURL("http://h:1", "/admin/v1/sleep", q); got != "http://h:1/admin/v1/sleep?location=Tent" {
		t.Fatalf("got %q", got)
	}
}
