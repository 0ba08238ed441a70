package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hearthfield.game/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "saves":
			savesCmd(os.Args[2:])
			return
		case "state":
			getCmd("/admin/v1/state", os.Args[2:])
			return
		case "save":
			postCmd("/admin/v1/save", os.Args[2:])
			return
		case "sleep":
			sleepCmd(os.Args[2:])
			return
		case "pause":
			postCmd("/admin/v1/pause", os.Args[2:])
			return
		case "resume":
			postCmd("/admin/v1/resume", os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

type saveLine struct {
	Path    string               `json:"path"`
	Step    uint64               `json:"step"`
	Reason  string               `json:"reason,omitempty"`
	RunID   string               `json:"run_id,omitempty"`
	SavedAt string               `json:"saved_at,omitempty"`
	Summary snapshot.SaveSummary `json:"summary"`
	Error   string               `json:"error,omitempty"`
}

// savesCmd prints save headers without decoding save bodies.
func savesCmd(args []string) {
	fs := flag.NewFlagSet("saves", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	limit := fs.Int("limit", 0, "show only the newest N saves (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	lines, err := listSaves(filepath.Join(*dataDir, "worlds", *worldID, "saves"), *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list saves:", err)
		os.Exit(1)
	}
	for _, l := range lines {
		printJSON(l)
	}
}

func listSaves(dir string, limit int) ([]saveLine, error) {
	entries, err := snapshot.List(dir)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]saveLine, 0, len(entries))
	for _, e := range entries {
		l := saveLine{Path: e.Path, Step: e.Step}
		h, err := snapshot.ReadHeader(e.Path)
		if err != nil {
			l.Error = err.Error()
		} else {
			l.Reason, l.RunID, l.SavedAt, l.Summary = h.Reason, h.RunID, h.SavedAt, h.Summary
		}
		out = append(out, l)
	}
	return out, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
