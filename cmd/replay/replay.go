package main

import (
	"fmt"

	persistlog "hearthfield.game/internal/persistence/log"
	"hearthfield.game/internal/sim/world"
)

type result struct {
	Checked uint64
	Final   string
}

// replay re-runs journaled steps on w, which must already hold the save, and
// compares every state digest from verifyFrom on.
func replay(w *world.World, worldDir string, verifyFrom, toStep uint64) (result, error) {
	var res result
	start := w.CurrentStep()
	if verifyFrom < start {
		verifyFrom = start
	}

	err := persistlog.ScanSteps(worldDir, func(entry world.StepLogEntry) error {
		if entry.Step < start {
			return nil
		}
		if toStep != 0 && entry.Step > toStep {
			return persistlog.ErrStop
		}
		if entry.Step != w.CurrentStep() {
			return fmt.Errorf("step gap: want=%d got=%d", w.CurrentStep(), entry.Step)
		}

		step, digest := w.StepOnce(entry.Input())
		if step != entry.Step {
			return fmt.Errorf("internal step mismatch: stepped=%d entry=%d", step, entry.Step)
		}
		if step >= verifyFrom {
			res.Checked++
			if digest != entry.Digest {
				return fmt.Errorf("digest mismatch at step %d (%s %02d:%02d): got=%s want=%s",
					step, entry.Date, entry.Hour, entry.Minute, digest, entry.Digest)
			}
		}
		return nil
	})
	v := w.View()
	res.Final = fmt.Sprintf("Y%d %s %d %02d:%02d %s", v.Year, v.Season, v.Day, v.Hour, v.Minute, v.Weather)
	return res, err
}
