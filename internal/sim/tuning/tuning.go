package tuning

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed tuning.schema.json
var schemaJSON string

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	TickRateHz        int     `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	TimeScale         float64 `yaml:"time_scale" json:"time_scale"`
	MaxCatchupMinutes int     `yaml:"max_catchup_minutes" json:"max_catchup_minutes"`
	Seed              int64   `yaml:"seed" json:"seed"`

	AutosaveOnDayEnd bool     `yaml:"autosave_on_day_end" json:"autosave_on_day_end"`
	SleepLocations   []string `yaml:"sleep_locations" json:"sleep_locations"`
	PassOutHour      int      `yaml:"pass_out_hour" json:"pass_out_hour"`

	ObserverBuffer int `yaml:"observer_buffer" json:"observer_buffer"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:   "1.0",
		TickRateHz:        30,
		TimeScale:         10.0,
		MaxCatchupMinutes: 1440,
		Seed:              1337,
		AutosaveOnDayEnd:  true,
		SleepLocations:    []string{"PlayerHouse"},
		PassOutHour:       24,
		ObserverBuffer:    64,
	}
}

// Load reads tuning.yaml on top of Defaults, so keys missing from the file keep
// their default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := Validate(raw); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Validate checks a raw YAML document against the embedded tuning schema.
func Validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	// Round-trip through JSON so the validator sees json.Unmarshal value types.
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	return s.Validate(v)
}

func compiledSchema() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("tuning.schema.json", schemaJSON)
}

// Warnings lists values that are accepted but replaced at runtime.
func (t Tuning) Warnings() []string {
	var out []string
	if t.TimeScale <= 0 {
		out = append(out, fmt.Sprintf("time_scale=%v is not positive; the clock runs at the default scale", t.TimeScale))
	}
	if t.MaxCatchupMinutes <= 0 {
		out = append(out, fmt.Sprintf("max_catchup_minutes=%d is not positive; using one game day", t.MaxCatchupMinutes))
	}
	return out
}
