package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"hearthfield.game/internal/sim/calendar"
)

const Version = 1

const fileSuffix = ".save.zst"

var ErrVersion = errors.New("unsupported save version")

// Save reasons recorded in Header.Reason.
const (
	ReasonDayEnd   = "day_end"
	ReasonManual   = "manual"
	ReasonShutdown = "shutdown"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	RunID   string `json:"run_id"`
	Step    uint64 `json:"step"`
	Reason  string `json:"reason,omitempty"`
	SavedAt string `json:"saved_at,omitempty"`

	Summary SaveSummary `json:"summary"`
}

// SaveSummary is what a save-slot picker shows without decoding the body.
type SaveSummary struct {
	Day    uint8           `json:"day"`
	Season calendar.Season `json:"season"`
	Year   uint32          `json:"year"`
}

type FestivalV1 struct {
	LastAnnounced calendar.FestivalKey `json:"last_announced"`
	Active        calendar.Festival    `json:"active"`
}

type SaveV1 struct {
	Header Header `json:"header"`

	Seed int64 `json:"seed"`

	// Clock is stored verbatim, including the sub-minute remainder.
	Clock              calendar.Clock   `json:"clock"`
	PreviousDayWeather calendar.Weather `json:"previous_day_weather"`
	Festival           FestivalV1       `json:"festival"`

	// RNG is the marshaled weather generator state.
	RNG []byte `json:"rng"`

	Mode      string `json:"mode"`
	PassedOut bool   `json:"passed_out,omitempty"`

	// Stamina is the last reported value; nil when none was reported.
	Stamina *float64 `json:"stamina,omitempty"`
}

func SummaryOf(c calendar.Clock) SaveSummary {
	return SaveSummary{Day: c.Day, Season: c.Season, Year: c.Year}
}

// FileName is the on-disk name for a save taken after step.
func FileName(step uint64) string { return fmt.Sprintf("%d%s", step, fileSuffix) }

// WriteSave writes a zstd stream holding one JSON header line followed by the gob
// encoded save. The file is written next to path and renamed into place.
func WriteSave(path string, s SaveV1) error {
	if s.Header.Version == 0 {
		s.Header.Version = Version
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeFile(tmp, s); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeFile(path string, s SaveV1) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := encode(bufio.NewWriterSize(enc, 64*1024), s); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func encode(bw *bufio.Writer, s SaveV1) error {
	hb, err := json.Marshal(s.Header)
	if err != nil {
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&s); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return bw.Flush()
}

func ReadSave(path string) (SaveV1, error) {
	var s SaveV1
	f, err := os.Open(path)
	if err != nil {
		return s, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return s, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	h, err := readHeader(br)
	if err != nil {
		return s, err
	}
	if h.Version != Version {
		return s, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&s); err != nil {
		return s, fmt.Errorf("gob decode: %w", err)
	}
	return s, nil
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return Header{}, err
	}
	defer dec.Close()
	return readHeader(bufio.NewReader(dec))
}

func readHeader(br *bufio.Reader) (Header, error) {
	var h Header
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

type Entry struct {
	Path string
	Step uint64
}

// List returns the saves in dir ordered by step.
func List(dir string) ([]Entry, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		step, err := strconv.ParseUint(strings.TrimSuffix(e.Name(), fileSuffix), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Entry{Path: filepath.Join(dir, e.Name()), Step: step})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

// Latest returns the path of the highest-step save in dir, or "".
func Latest(dir string) string {
	saves, err := List(dir)
	if err != nil || len(saves) == 0 {
		return ""
	}
	return saves[len(saves)-1].Path
}
