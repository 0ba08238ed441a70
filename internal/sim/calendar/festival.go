package calendar

import (
	"fmt"
	"strings"
)

type Festival uint8

const (
	NoFestival Festival = iota
	EggFestival
	Luau
	HarvestFestival
	WinterStar
)

type festivalDate struct {
	season Season
	day    uint8
}

var festivalDates = map[festivalDate]Festival{
	{Spring, 13}: EggFestival,
	{Summer, 11}: Luau,
	{Fall, 16}:   HarvestFestival,
	{Winter, 25}: WinterStar,
}

var festivalNames = [...]string{"", "Egg Festival", "Luau", "Harvest Festival", "Winter Star Festival"}

// FestivalFor returns the festival held on the given date, if any.
func FestivalFor(season Season, day uint8) (Festival, bool) {
	f, ok := festivalDates[festivalDate{season: season, day: day}]
	return f, ok
}

func IsFestivalDay(season Season, day uint8) bool {
	_, ok := FestivalFor(season, day)
	return ok
}

func (f Festival) String() string {
	if f == NoFestival {
		return "None"
	}
	if int(f) < len(festivalNames) {
		return festivalNames[f]
	}
	return fmt.Sprintf("Festival(%d)", uint8(f))
}

// MusicTrack is the audio cue requested when the festival is announced.
func (f Festival) MusicTrack() string {
	if f == NoFestival {
		return ""
	}
	return "festival_" + strings.ReplaceAll(strings.ToLower(f.String()), " ", "_")
}

func (f Festival) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Festival) UnmarshalText(b []byte) error {
	s := string(b)
	if s == "" || strings.EqualFold(s, "None") {
		*f = NoFestival
		return nil
	}
	for i, n := range festivalNames {
		if i > 0 && strings.EqualFold(n, s) {
			*f = Festival(i)
			return nil
		}
	}
	return fmt.Errorf("unknown festival %q", s)
}

// FestivalKey identifies the day an announcement last fired for.
type FestivalKey struct {
	Day         uint8
	SeasonIndex int
	Year        uint32
}

func keyFor(c Clock) FestivalKey {
	return FestivalKey{Day: c.Day, SeasonIndex: c.Season.Index(), Year: c.Year}
}

// FestivalAnnouncer debounces the once-per-day festival announcement. The check is
// evaluated every step while the date matches, so it fires only when the key changes.
type FestivalAnnouncer struct {
	LastAnnounced FestivalKey
	Active        Festival
}

// Check returns the festival and true the first time it is called on a festival date.
func (a *FestivalAnnouncer) Check(c Clock) (Festival, bool) {
	f, ok := FestivalFor(c.Season, c.Day)
	if !ok {
		a.Active = NoFestival
		return NoFestival, false
	}
	if a.Active == NoFestival {
		a.Active = f
	}
	key := keyFor(c)
	if a.LastAnnounced == key {
		return f, false
	}
	a.LastAnnounced = key
	return f, true
}

// EndDay clears the active festival once its day is over.
func (a *FestivalAnnouncer) EndDay() { a.Active = NoFestival }
