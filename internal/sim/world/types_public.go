package world

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hearthfield.game/internal/sim/calendar"
)

var (
	ErrBusy    = errors.New("world queue full")
	ErrStopped = errors.New("world stopped")
)

// Mode is the game mode driven by the state machine outside the calendar.
// Game time only flows while the mode is Playing.
type Mode string

const (
	ModePlaying  Mode = "PLAYING"
	ModePaused   Mode = "PAUSED"
	ModeMenu     Mode = "MENU"
	ModeCutscene Mode = "CUTSCENE"
	ModeLoading  Mode = "LOADING"
)

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case ModePlaying, ModePaused, ModeMenu, ModeCutscene, ModeLoading:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// StepInput is everything that enters the world at one step boundary. Recording
// it per step is enough to replay a run.
type StepInput struct {
	Dt      time.Duration
	Modes   []Mode
	Sleeps  []SleepRequest
	Stamina []float64
}

// SleepRequest names the day the player went to bed on. A zero Date means the
// day current when the step runs.
type SleepRequest struct {
	Location string        `json:"location"`
	Date     calendar.Date `json:"date"`
}

type StepLogger interface {
	WriteStep(entry StepLogEntry) error
}

type EventLogger interface {
	WriteEvent(entry EventLogEntry) error
}

type StepLogEntry struct {
	Step    uint64         `json:"step"`
	DtNS    int64          `json:"dt_ns"`
	Modes   []Mode         `json:"modes,omitempty"`
	Sleeps  []SleepRequest `json:"sleeps,omitempty"`
	Stamina []float64      `json:"stamina,omitempty"`
	Date    calendar.Date  `json:"date"`
	Hour    uint8          `json:"hour"`
	Minute  uint8          `json:"minute"`
	Digest  string         `json:"digest"`
}

func (e StepLogEntry) Input() StepInput {
	return StepInput{Dt: time.Duration(e.DtNS), Modes: e.Modes, Sleeps: e.Sleeps, Stamina: e.Stamina}
}

// EventLogEntry is the flattened journal row for a calendar notification.
type EventLogEntry struct {
	Step        uint64 `json:"step"`
	Type        string `json:"type"`
	Year        uint32 `json:"year"`
	Season      string `json:"season"`
	Day         uint8  `json:"day,omitempty"`
	Cause       string `json:"cause,omitempty"`
	Weather     string `json:"weather,omitempty"`
	NextWeather string `json:"next_weather,omitempty"`
	Watered     bool   `json:"watered,omitempty"`
	Festival    string `json:"festival,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
