package sleep

// DefaultPassOutHour is midnight on the 06:00-based clock.
const DefaultPassOutHour = 24

// PassOutMonitor fires once per exhaustion episode: stamina at or below zero
// past the pass-out hour. It re-arms when stamina recovers.
type PassOutMonitor struct {
	Hour    uint8
	tripped bool
}

func NewPassOutMonitor(hour int) *PassOutMonitor {
	if hour <= 0 {
		hour = DefaultPassOutHour
	}
	return &PassOutMonitor{Hour: uint8(hour)}
}

// Observe reports whether the player passes out now.
func (m *PassOutMonitor) Observe(stamina float64, hour uint8) bool {
	if stamina > 0 {
		m.tripped = false
		return false
	}
	if hour < m.Hour || m.tripped {
		return false
	}
	m.tripped = true
	return true
}

func (m *PassOutMonitor) Tripped() bool { return m.tripped }

// Restore sets the episode state loaded from a save.
func (m *PassOutMonitor) Restore(tripped bool) { m.tripped = tripped }
