package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"hearthfield.game/internal/persistence/indexdb"
	"hearthfield.game/internal/persistence/snapshot"
	"hearthfield.game/internal/sim/calendar"
	"hearthfield.game/internal/sim/tuning"
	"hearthfield.game/internal/sim/world"
)

type runtimeIndex interface {
	world.EventLogger
	Close() error
	UpsertTuning(tune tuning.Tuning) error
	RecordSave(path string, s snapshot.SaveV1)
	RecordSeason(year uint32, season calendar.Season, endStep uint64, archivePath string, seed int64)
}

func openRuntimeIndex(worldDir string, disableDB bool, logger *zap.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("HF_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"), logger)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported HF_INDEX_BACKEND: %s", backend)
	}
}

// multiEventLogger fans journal rows out to the JSONL journal and the index.
type multiEventLogger struct {
	a world.EventLogger
	b world.EventLogger
}

func (m multiEventLogger) WriteEvent(entry world.EventLogEntry) error {
	var err error
	if m.a != nil {
		err = m.a.WriteEvent(entry)
	}
	if m.b != nil {
		_ = m.b.WriteEvent(entry)
	}
	return err
}
