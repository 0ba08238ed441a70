package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"hearthfield.game/internal/persistence/snapshot"
	"hearthfield.game/internal/sim/tuning"
	"hearthfield.game/internal/sim/world"
)

func main() {
	var (
		savePath   = flag.String("snapshot", "", "path to .save.zst")
		worldDir   = flag.String("world_dir", "", "world dir containing steps/ (default: parent of the save's directory)")
		tuningPath = flag.String("tuning", "", "tuning.yaml the run used (optional; catch-up cap and pass-out hour affect replay)")
		fromStep   = flag.Uint64("from_step", 0, "start verifying from step (inclusive, optional)")
		toStep     = flag.Uint64("to_step", 0, "stop at step (inclusive, optional)")
	)
	flag.Parse()

	if *savePath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	s, err := snapshot.ReadSave(*savePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read save:", err)
		os.Exit(1)
	}
	fmt.Printf("save v%d world=%s run=%s step=%d reason=%s clock=%s\n",
		s.Header.Version, s.Header.WorldID, s.Header.RunID, s.Header.Step, s.Header.Reason, s.Clock)

	tune := tuning.Defaults()
	if *tuningPath != "" {
		if tune, err = tuning.Load(*tuningPath); err != nil {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
	}

	dir := *worldDir
	if dir == "" {
		dir = filepath.Dir(filepath.Dir(*savePath))
	}

	w, err := world.New(world.WorldConfig{
		ID:                s.Header.WorldID,
		Seed:              s.Seed,
		TimeScale:         s.Clock.TimeScale,
		MaxCatchupMinutes: tune.MaxCatchupMinutes,
		SleepLocations:    tune.SleepLocations,
		PassOutHour:       tune.PassOutHour,
	}, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}
	if err := w.ImportSave(s); err != nil {
		fmt.Fprintln(os.Stderr, "import save:", err)
		os.Exit(1)
	}

	res, err := replay(w, dir, *fromStep, *toStep)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d steps (from save step=%d) clock=%s\n", res.Checked, s.Header.Step, res.Final)
}
