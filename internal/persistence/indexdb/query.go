package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
)

// PathFor is where a world's index lives under the data directory.
func PathFor(dataDir, worldID string) string {
	return filepath.Join(dataDir, "worlds", worldID, "index", "world.sqlite")
}

type DayEndRow struct {
	Year         uint32 `json:"year"`
	Season       string `json:"season"`
	Day          uint8  `json:"day"`
	Cause        string `json:"cause"`
	WeatherEnded string `json:"weather_ended"`
	WeatherNext  string `json:"weather_next"`
	Step         uint64 `json:"step"`
}

type SeasonRow struct {
	Year        uint32 `json:"year"`
	Season      string `json:"season"`
	StartedStep *int64 `json:"started_step,omitempty"`
	EndStep     *int64 `json:"end_step,omitempty"`
	ArchivePath string `json:"archive_path,omitempty"`
}

type SaveRow struct {
	Step   uint64 `json:"step"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
	RunID  string `json:"run_id"`
	Year   uint32 `json:"year"`
	Season string `json:"season"`
	Day    uint8  `json:"day"`
}

// DayEnds returns the most recent day ends, newest first.
func DayEnds(ctx context.Context, db *sql.DB, limit int) ([]DayEndRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT year,season,day,cause,weather_ended,weather_next,step FROM day_ends ORDER BY step DESC, year DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query day_ends: %w", err)
	}
	defer rows.Close()
	var out []DayEndRow
	for rows.Next() {
		var r DayEndRow
		if err := rows.Scan(&r.Year, &r.Season, &r.Day, &r.Cause, &r.WeatherEnded, &r.WeatherNext, &r.Step); err != nil {
			return nil, fmt.Errorf("scan day_ends: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Seasons lists every known season in calendar order.
func Seasons(ctx context.Context, db *sql.DB) ([]SeasonRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT year,season,started_step,end_step,COALESCE(archive_path,'') FROM seasons
		ORDER BY year, CASE season WHEN 'Spring' THEN 0 WHEN 'Summer' THEN 1 WHEN 'Fall' THEN 2 ELSE 3 END`)
	if err != nil {
		return nil, fmt.Errorf("query seasons: %w", err)
	}
	defer rows.Close()
	var out []SeasonRow
	for rows.Next() {
		var (
			r          SeasonRow
			start, end sql.NullInt64
		)
		if err := rows.Scan(&r.Year, &r.Season, &start, &end, &r.ArchivePath); err != nil {
			return nil, fmt.Errorf("scan seasons: %w", err)
		}
		if start.Valid {
			r.StartedStep = &start.Int64
		}
		if end.Valid {
			r.EndStep = &end.Int64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Saves returns the most recent saves, newest first.
func Saves(ctx context.Context, db *sql.DB, limit int) ([]SaveRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT step,path,reason,run_id,year,season,day FROM saves ORDER BY step DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query saves: %w", err)
	}
	defer rows.Close()
	var out []SaveRow
	for rows.Next() {
		var r SaveRow
		if err := rows.Scan(&r.Step, &r.Path, &r.Reason, &r.RunID, &r.Year, &r.Season, &r.Day); err != nil {
			return nil, fmt.Errorf("scan saves: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Meta reads one meta value; ok is false when the key is absent.
func Meta(ctx context.Context, db *sql.DB, key string) (value string, ok bool, err error) {
	err = db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query meta: %w", err)
	}
	return value, true, nil
}
