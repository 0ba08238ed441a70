package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hearthfield.game/internal/persistence/snapshot"
	"hearthfield.game/internal/sim/calendar"
)

type SeasonArchiveMeta struct {
	Year      uint32          `json:"year"`
	Season    calendar.Season `json:"season"`
	EndStep   uint64          `json:"end_step"`
	RunID     string          `json:"run_id"`
	Seed      int64           `json:"seed"`
	Save      string          `json:"save"`
	CreatedAt string          `json:"created_at"`
}

// EndedSeason reports which season a save closes. Only the day-end autosave taken
// on the first morning of a new season qualifies.
func EndedSeason(s snapshot.SaveV1) (year uint32, season calendar.Season, ok bool) {
	c := s.Clock
	if s.Header.Reason != snapshot.ReasonDayEnd || c.Day != 1 || c.Hour != calendar.DayStartHour || c.Minute != 0 {
		return 0, 0, false
	}
	season = c.Season.Prev()
	year = c.Year
	if c.Season == calendar.Spring {
		if year <= 1 {
			return 0, 0, false
		}
		year--
	}
	return year, season, true
}

// Dir is the archive directory for one season.
func Dir(worldDir string, year uint32, season calendar.Season) string {
	return filepath.Join(worldDir, "archives", fmt.Sprintf("y%03d_%s", year, strings.ToLower(season.String())))
}

// ArchiveSeasonSave copies a season-closing save into worldDir/archives/y<YYY>_<season>/.
func ArchiveSeasonSave(worldDir, savePath string, s snapshot.SaveV1) (meta SeasonArchiveMeta, archivedPath string, archived bool, err error) {
	year, season, ok := EndedSeason(s)
	if !ok {
		return meta, "", false, nil
	}

	archiveDir := Dir(worldDir, year, season)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return meta, "", false, err
	}
	dst := filepath.Join(archiveDir, filepath.Base(savePath))
	if err := copyFile(savePath, dst); err != nil {
		return meta, "", false, err
	}

	meta = SeasonArchiveMeta{
		Year:      year,
		Season:    season,
		EndStep:   s.Header.Step,
		RunID:     s.Header.RunID,
		Seed:      s.Seed,
		Save:      filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return meta, "", false, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return meta, "", false, err
	}
	return meta, dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
