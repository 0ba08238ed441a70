package calendar

import (
	"fmt"
	"strings"
)

const (
	DaysPerSeason  = 28
	SeasonsPerYear = 4
	DaysPerYear    = DaysPerSeason * SeasonsPerYear

	DayStartHour = 6
	// DayEndHour is 2:00 AM of the following morning.
	DayEndHour     = 26
	MinutesPerHour = 60
	MinutesPerDay  = (DayEndHour - DayStartHour) * MinutesPerHour

	DefaultTimeScale = 10.0
)

type Season uint8

const (
	Spring Season = iota
	Summer
	Fall
	Winter
)

var seasonNames = [...]string{"Spring", "Summer", "Fall", "Winter"}

func (s Season) Next() Season { return (s + 1) % SeasonsPerYear }

func (s Season) Prev() Season { return (s + SeasonsPerYear - 1) % SeasonsPerYear }

func (s Season) Index() int { return int(s % SeasonsPerYear) }

func (s Season) String() string {
	if int(s) < len(seasonNames) {
		return seasonNames[s]
	}
	return fmt.Sprintf("Season(%d)", uint8(s))
}

func (s Season) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Season) UnmarshalText(b []byte) error {
	v, err := ParseSeason(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseSeason(name string) (Season, error) {
	for i, n := range seasonNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Season(i), nil
		}
	}
	return Spring, fmt.Errorf("unknown season %q", name)
}

type Weather uint8

const (
	Sunny Weather = iota
	Rainy
	Stormy
	// Snowy is only ever rolled in Winter.
	Snowy
)

var weatherNames = [...]string{"Sunny", "Rainy", "Stormy", "Snowy"}

func (w Weather) String() string {
	if int(w) < len(weatherNames) {
		return weatherNames[w]
	}
	return fmt.Sprintf("Weather(%d)", uint8(w))
}

// IsWet reports whether crops are watered by the sky on this day.
func (w Weather) IsWet() bool { return w == Rainy || w == Stormy }

func (w Weather) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

func (w *Weather) UnmarshalText(b []byte) error {
	v, err := ParseWeather(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

func ParseWeather(name string) (Weather, error) {
	for i, n := range weatherNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Weather(i), nil
		}
	}
	return Sunny, fmt.Errorf("unknown weather %q", name)
}

type DayOfWeek uint8

const (
	Monday DayOfWeek = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayOfWeekNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (d DayOfWeek) String() string {
	if int(d) < len(dayOfWeekNames) {
		return dayOfWeekNames[d]
	}
	return fmt.Sprintf("DayOfWeek(%d)", uint8(d))
}

func (d DayOfWeek) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DayOfWeek) UnmarshalText(b []byte) error {
	for i, n := range dayOfWeekNames {
		if strings.EqualFold(n, string(b)) {
			*d = DayOfWeek(i)
			return nil
		}
	}
	return fmt.Errorf("unknown day of week %q", string(b))
}
