package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"hearthfield.game/internal/persistence/snapshot"
)

func scriptedInputs(n int) []StepInput {
	out := make([]StepInput, 0, n)
	for i := 0; i < n; i++ {
		in := StepInput{Dt: time.Duration(20+i%17) * time.Millisecond * 10}
		switch {
		case i%97 == 0:
			in.Sleeps = []SleepRequest{{Location: "PlayerHouse"}}
		case i%113 == 0:
			in.Modes = []Mode{ModeMenu}
		case i%113 == 3:
			in.Modes = []Mode{ModePlaying}
		case i%61 == 0:
			in.Stamina = []float64{0}
		case i%61 == 5:
			in.Stamina = []float64{3}
		}
		out = append(out, in)
	}
	return out
}

func TestDeterminism_SameSeedSameInputs(t *testing.T) {
	a := newTestWorld(t)
	b := newTestWorld(t)
	for i, in := range scriptedInputs(2000) {
		_, da := a.StepOnce(in)
		_, db := b.StepOnce(in)
		if da != db {
			t.Fatalf("digest mismatch at step %d", i)
		}
	}
	if a.View() != b.View() {
		t.Fatalf("views differ: %+v vs %+v", a.View(), b.View())
	}
}

func TestDeterminism_ResumeFromSave(t *testing.T) {
	inputs := scriptedInputs(1500)
	a := newTestWorld(t)
	for _, in := range inputs[:700] {
		a.StepOnce(in)
	}
	save := a.ExportSave(a.CurrentStep()-1, snapshot.ReasonManual)

	b, err := New(WorldConfig{ID: "test", Seed: 1, TimeScale: 10}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := b.ImportSave(save); err != nil {
		t.Fatalf("import: %v", err)
	}
	if b.CurrentStep() != a.CurrentStep() {
		t.Fatalf("step a=%d b=%d", a.CurrentStep(), b.CurrentStep())
	}
	for i, in := range inputs[700:] {
		_, da := a.StepOnce(in)
		_, db := b.StepOnce(in)
		if da != db {
			t.Fatalf("digest mismatch %d steps after resume", i)
		}
	}
}

func TestRun_ProcessesRequestsAtStepBoundary(t *testing.T) {
	w, err := New(WorldConfig{ID: "run", Seed: 3, TickRateHz: 200, TimeScale: 10}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	sink := make(chan snapshot.SaveV1, 4)
	w.SetSaveSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if _, err := w.RequestSleep("PlayerHouse"); err != nil {
		t.Fatalf("sleep: %v", err)
	}
	waitFor(t, func() bool { return w.View().Day == 2 })

	if err := w.SetMode(ModeMenu); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	waitFor(t, func() bool { return w.View().Paused })

	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	step, err := w.RequestSave(ctx2)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	select {
	case s := <-sink:
		if s.Header.Step != step || s.Header.Reason != snapshot.ReasonManual || s.Clock.Day != 2 {
			t.Fatalf("save=%+v", s.Header)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no save on sink")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestStop_RejectsFurtherRequests(t *testing.T) {
	w := newTestWorld(t)
	w.Stop()
	w.Stop()
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run after stop: %v", err)
	}
	if err := w.SetMode(ModeMenu); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
