package sleep

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateResolve(t *testing.T) {
	g := NewGate([]string{"PlayerHouse", "Inn Room"})

	name, err := g.Resolve("player_house")
	require.NoError(t, err)
	assert.Equal(t, "PlayerHouse", name)

	name, err = g.Resolve("inn room")
	require.NoError(t, err)
	assert.Equal(t, "Inn Room", name)
}

func TestGateDeniesWithSuggestion(t *testing.T) {
	g := NewGate(nil)

	_, err := g.Resolve("PlayerHose")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocationDenied))
	assert.Contains(t, err.Error(), `did you mean "PlayerHouse"`)

	_, err = g.Resolve("Mine")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocationDenied))
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestGateDefaultsAndDuplicates(t *testing.T) {
	assert.Equal(t, []string{DefaultLocation}, NewGate(nil).Locations())
	assert.Equal(t, []string{"PlayerHouse"}, NewGate([]string{"PlayerHouse", "player house", ""}).Locations())
}

func TestPassOutOncePerEpisode(t *testing.T) {
	m := NewPassOutMonitor(0)
	assert.Equal(t, uint8(DefaultPassOutHour), m.Hour)

	assert.False(t, m.Observe(0, 23), "before pass-out hour")
	assert.True(t, m.Observe(0, 24))
	assert.False(t, m.Observe(-1, 25), "already tripped")
	assert.False(t, m.Observe(0, 6))

	assert.False(t, m.Observe(10, 12))
	assert.False(t, m.Tripped())
	assert.True(t, m.Observe(0, 24))
}
