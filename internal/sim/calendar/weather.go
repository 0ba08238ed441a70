package calendar

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// UniformSource yields values in [0, 1). *rand.Rand satisfies it.
type UniformSource interface {
	Float64() float64
}

type weatherBucket struct {
	upTo    float64
	weather Weather
}

var weatherTable = [SeasonsPerYear][]weatherBucket{
	Spring: {{0.60, Sunny}, {0.90, Rainy}, {1.0, Stormy}},
	Summer: {{0.70, Sunny}, {0.90, Rainy}, {1.0, Stormy}},
	Fall:   {{0.50, Sunny}, {0.85, Rainy}, {1.0, Stormy}},
	Winter: {{0.40, Sunny}, {0.50, Rainy}, {0.60, Stormy}, {1.0, Snowy}},
}

// RollWeather maps a uniform roll onto the season's cumulative buckets.
func RollWeather(season Season, roll float64) Weather {
	buckets := weatherTable[season.Index()]
	for _, b := range buckets {
		if roll < b.upTo {
			return b.weather
		}
	}
	return buckets[len(buckets)-1].weather
}

type WeatherGenerator struct {
	src UniformSource
}

func NewWeatherGenerator(src UniformSource) *WeatherGenerator {
	if src == nil {
		src = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &WeatherGenerator{src: src}
}

func (g *WeatherGenerator) Roll(season Season) Weather {
	return RollWeather(season, g.src.Float64())
}

// NewSeededPCG derives a deterministic PCG from a single seed. The PCG is returned
// alongside the source so callers can marshal its state into save files.
func NewSeededPCG(seed int64) *rand.PCG {
	// Non-cryptographic PRNG is intentional for deterministic simulation behavior.
	// #nosec G404
	return rand.NewPCG(seedWord(seed, "weather-a"), seedWord(seed, "weather-b"))
}

func NewSeededSource(seed int64) *rand.Rand {
	return rand.New(NewSeededPCG(seed))
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", seed, salt)))
	return h.Sum64()
}
