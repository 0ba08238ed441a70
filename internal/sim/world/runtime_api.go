package world

import (
	"context"
	"errors"

	"hearthfield.game/internal/persistence/snapshot"
	"hearthfield.game/internal/sim/calendar"
)

// SetMode queues a game-mode transition for the next step boundary.
func (w *World) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	return enqueue(w, w.modeReq, m, "mode")
}

// RequestSleep validates the location and queues an end-of-day trigger for the
// day the caller currently sees. It returns the canonical location name.
func (w *World) RequestSleep(location string) (string, error) {
	canonical, err := w.gate.Resolve(location)
	if err != nil {
		return "", err
	}
	v := w.View()
	req := SleepRequest{Location: canonical, Date: calendar.Date{Year: v.Year, Season: v.Season, Day: v.Day}}
	if err := enqueue(w, w.sleepReq, req, "sleep"); err != nil {
		return "", err
	}
	return canonical, nil
}

// ReportStamina feeds the player's current stamina to the pass-out monitor.
func (w *World) ReportStamina(v float64) error {
	return enqueue(w, w.staminaReq, v, "stamina")
}

func enqueue[T any](w *World, ch chan T, v T, queue string) error {
	if w.stopped.Load() {
		return ErrStopped
	}
	select {
	case ch <- v:
		return nil
	default:
		if w.metrics != nil {
			w.metrics.QueueRejected.WithLabelValues(queue).Inc()
		}
		return ErrBusy
	}
}

type saveReq struct {
	Resp chan saveResp
}

type saveResp struct {
	Step uint64
	Err  string
}

// RequestSave asks the world loop goroutine to export a manual save to the save
// sink. It is safe to call from other goroutines (e.g. HTTP handlers).
func (w *World) RequestSave(ctx context.Context) (step uint64, err error) {
	if w == nil || w.saveReq == nil {
		return 0, errors.New("save not available")
	}
	resp := make(chan saveResp, 1)
	select {
	case w.saveReq <- saveReq{Resp: resp}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case r := <-resp:
		if r.Err != "" {
			return r.Step, errors.New(r.Err)
		}
		return r.Step, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (w *World) handleSaveRequests(reqs []saveReq) {
	if len(reqs) == 0 {
		return
	}
	cur := w.step.Load()
	saveStep := uint64(0)
	if cur > 0 {
		saveStep = cur - 1
	}

	errStr := ""
	if w.saveSink == nil {
		errStr = "save sink not configured"
	} else {
		select {
		case w.saveSink <- w.ExportSave(saveStep, snapshot.ReasonManual):
		default:
			errStr = "save sink backpressure"
		}
	}

	resp := saveResp{Step: saveStep, Err: errStr}
	for _, r := range reqs {
		if r.Resp == nil {
			continue
		}
		select {
		case r.Resp <- resp:
		default:
			// Client timed out; don't block the sim loop.
		}
	}
}
