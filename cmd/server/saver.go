package main

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"hearthfield.game/internal/events"
	"hearthfield.game/internal/metrics"
	"hearthfield.game/internal/persistence/archive"
	"hearthfield.game/internal/persistence/snapshot"
)

// saveWriter persists saves produced by the world loop: the save file itself,
// its index row, and the season archive when the save closes a season.
type saveWriter struct {
	worldDir string
	idx      runtimeIndex
	hub      *events.Hub
	metrics  *metrics.Registry
	log      *zap.Logger
}

func (sw *saveWriter) savesDir() string { return filepath.Join(sw.worldDir, "saves") }

func (sw *saveWriter) run(ctx context.Context, ch <-chan snapshot.SaveV1) {
	for {
		select {
		case <-ctx.Done():
			// Drain what the world already handed over.
			for {
				select {
				case s := <-ch:
					_, _ = sw.persist(s)
				default:
					return
				}
			}
		case s := <-ch:
			_, _ = sw.persist(s)
		}
	}
}

func (sw *saveWriter) persist(s snapshot.SaveV1) (string, error) {
	path := filepath.Join(sw.savesDir(), snapshot.FileName(s.Header.Step))
	if err := snapshot.WriteSave(path, s); err != nil {
		sw.log.Error("save write failed", zap.String("path", path), zap.Error(err))
		if sw.metrics != nil {
			sw.metrics.SaveErrors.Inc()
		}
		return "", err
	}
	date := s.Clock.Date()
	sw.log.Info("save written",
		zap.String("path", path),
		zap.String("reason", s.Header.Reason),
		zap.Stringer("date", date),
	)
	if sw.metrics != nil {
		sw.metrics.Saves.WithLabelValues(s.Header.Reason).Inc()
	}
	if sw.idx != nil {
		sw.idx.RecordSave(path, s)
	}
	if sw.hub != nil {
		sw.hub.Publish(events.NewSaved(s.Header.Step, path, s.Header.Reason, date))
	}

	meta, archivedPath, ok, err := archive.ArchiveSeasonSave(sw.worldDir, path, s)
	switch {
	case err != nil:
		sw.log.Warn("archive season save", zap.Error(err))
	case ok:
		sw.log.Info("season archived",
			zap.Uint32("year", meta.Year),
			zap.Stringer("season", meta.Season),
			zap.String("path", archivedPath),
		)
		if sw.idx != nil {
			sw.idx.RecordSeason(meta.Year, meta.Season, meta.EndStep, archivedPath, meta.Seed)
		}
	}
	return path, nil
}
