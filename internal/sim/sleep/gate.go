package sleep

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

var ErrLocationDenied = errors.New("sleep not allowed here")

const DefaultLocation = "PlayerHouse"

// Gate decides where the player may go to bed. It is immutable after construction
// and safe for concurrent use.
type Gate struct {
	allowed map[string]string // normalized -> canonical
	names   []string
}

func NewGate(locations []string) *Gate {
	if len(locations) == 0 {
		locations = []string{DefaultLocation}
	}
	g := &Gate{allowed: map[string]string{}}
	for _, loc := range locations {
		key := normalize(loc)
		if key == "" {
			continue
		}
		if _, dup := g.allowed[key]; dup {
			continue
		}
		g.allowed[key] = loc
		g.names = append(g.names, loc)
	}
	return g
}

func (g *Gate) Locations() []string { return append([]string(nil), g.names...) }

// Resolve returns the canonical location name, or an error wrapping
// ErrLocationDenied with the closest allowed name when one is near enough.
func (g *Gate) Resolve(location string) (string, error) {
	key := normalize(location)
	if canonical, ok := g.allowed[key]; ok {
		return canonical, nil
	}
	if s := g.suggest(key); s != "" {
		return "", fmt.Errorf("%w: %q (did you mean %q?)", ErrLocationDenied, location, s)
	}
	return "", fmt.Errorf("%w: %q", ErrLocationDenied, location)
}

func (g *Gate) suggest(key string) string {
	if len(key) < 3 {
		return ""
	}
	best, bestDist := "", -1
	for norm, canonical := range g.allowed {
		dist := levenshtein.ComputeDistance(key, norm)
		if dist > distanceLimit(len(norm)) {
			continue
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && canonical < best) {
			best, bestDist = canonical, dist
		}
	}
	return best
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
