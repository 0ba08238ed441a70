package world

import (
	"context"
	"time"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var in StepInput
	var pendingSaves []saveReq
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case m := <-w.modeReq:
			in.Modes = append(in.Modes, m)
		case r := <-w.sleepReq:
			in.Sleeps = append(in.Sleeps, r)
		case v := <-w.staminaReq:
			in.Stamina = append(in.Stamina, v)
		case req := <-w.saveReq:
			pendingSaves = append(pendingSaves, req)
		case now := <-ticker.C:
			in.Dt = now.Sub(last)
			last = now
			w.stepInternal(in)
			w.handleSaveRequests(pendingSaves)
			in = StepInput{}
			pendingSaves = pendingSaves[:0]
		}
	}
}

func (w *World) Stop() {
	if w.stopped.CompareAndSwap(false, true) {
		close(w.stop)
	}
}

// StepOnce advances the world by a single step using the same ordering as Run.
// It is intended for deterministic replays and tests.
func (w *World) StepOnce(in StepInput) (step uint64, digest string) {
	step = w.step.Load()
	w.stepInternal(in)
	return step, w.stateDigest(step)
}
