package protocol

// Calendar event kinds carried by CALENDAR_EVENT.
const (
	KindDayEnd       = "DAY_END"
	KindSeasonChange = "SEASON_CHANGE"
	KindFestival     = "FESTIVAL"
	KindPaused       = "PAUSED"
	KindResumed      = "RESUMED"
)

var AllKinds = []string{KindDayEnd, KindSeasonChange, KindFestival, KindPaused, KindResumed}

// Control actions carried by ACT.
const (
	ActionSleep   = "SLEEP"
	ActionSetMode = "SET_MODE"
	ActionStamina = "STAMINA"
)

// ClockView is the wire form of the calendar read model.
type ClockView struct {
	Year               uint32  `json:"year"`
	Season             string  `json:"season"`
	Day                uint8   `json:"day"`
	Hour               uint8   `json:"hour"`
	Minute             uint8   `json:"minute"`
	Weather            string  `json:"weather"`
	PreviousDayWeather string  `json:"previous_day_weather"`
	DayOfWeek          string  `json:"day_of_week"`
	TotalDaysElapsed   uint32  `json:"total_days_elapsed"`
	TimeFloat          float64 `json:"time_float"`
	FestivalDay        bool    `json:"festival_day"`
	Paused             bool    `json:"paused"`
}

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	SessionID       string    `json:"session_id"`
	WorldID         string    `json:"world_id"`
	RunID           string    `json:"run_id"`
	TickRateHz      int       `json:"tick_rate_hz"`
	SleepLocations  []string  `json:"sleep_locations,omitempty"`
	Clock           ClockView `json:"clock"`
}

// ACT (client -> server)
type ActMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ReqID           string   `json:"req_id"`
	Action          string   `json:"action"`
	Location        string   `json:"location,omitempty"`
	Mode            string   `json:"mode,omitempty"`
	Stamina         *float64 `json:"stamina,omitempty"`
}

// ACK (server -> client)
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Location        string `json:"location,omitempty"`
}

// SUBSCRIBE (client -> server)
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Kinds           []string `json:"kinds,omitempty"`
	ClockEveryMS    int      `json:"clock_every_ms,omitempty"`
}

// SUBSCRIBED (server -> client)
type SubscribedMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	SessionID       string    `json:"session_id"`
	WorldID         string    `json:"world_id"`
	Kinds           []string  `json:"kinds"`
	ClockEveryMS    int       `json:"clock_every_ms"`
	Clock           ClockView `json:"clock"`
}

// CALENDAR_EVENT (server -> client)
type CalendarEventMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Kind            string     `json:"kind"`
	Step            uint64     `json:"step"`
	Year            uint32     `json:"year"`
	Season          string     `json:"season"`
	Day             uint8      `json:"day,omitempty"`
	Cause           string     `json:"cause,omitempty"`
	Festival        string     `json:"festival,omitempty"`
	MusicTrack      string     `json:"music_track,omitempty"`
	Mode            string     `json:"mode,omitempty"`
	Clock           *ClockView `json:"clock,omitempty"`
}

// CLOCK (server -> client)
type ClockMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Step            uint64    `json:"step"`
	Clock           ClockView `json:"clock"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
