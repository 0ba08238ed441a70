package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"hearthfield.game/internal/sim/world"
)

// ErrStop ends a scan early without an error.
var ErrStop = errors.New("stop scan")

// ListFiles returns the journal segments for prefix in dir, oldest hour first.
// Files whose names do not parse as a segment are ignored.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type seg struct {
		hour time.Time
		path string
	}
	segs := make([]seg, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if hour, ok := segmentHour(prefix, e.Name()); ok {
			segs = append(segs, seg{hour, filepath.Join(dir, e.Name())})
		}
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].hour.Before(segs[j].hour) })
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.path
	}
	return out, nil
}

// ScanFile calls fn for every line of a compressed journal file.
func ScanFile(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}

func scanDir[T any](dir, prefix string, fn func(T) error) error {
	files, err := ListFiles(dir, prefix)
	if err != nil {
		return err
	}
	for _, path := range files {
		err := ScanFile(path, func(line []byte) error {
			var v T
			if err := json.Unmarshal(line, &v); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			return fn(v)
		})
		if errors.Is(err, ErrStop) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ScanSteps walks <worldDir>/steps in order. Returning ErrStop from fn ends the scan.
func ScanSteps(worldDir string, fn func(world.StepLogEntry) error) error {
	return scanDir(filepath.Join(worldDir, StepsDir), StepsPrefix, fn)
}

// ScanEvents walks <worldDir>/events in order. Returning ErrStop from fn ends the scan.
func ScanEvents(worldDir string, fn func(world.EventLogEntry) error) error {
	return scanDir(filepath.Join(worldDir, EventsDir), EventsPrefix, fn)
}
