package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"hearthfield.game/internal/protocol"
)

func main() {
	var (
		baseURL    = flag.String("url", "ws://localhost:8080", "server ws base url")
		kinds      = flag.String("kinds", "", "comma separated event kinds (default: all)")
		clockEvery = flag.Int("clock_ms", 1000, "CLOCK interval in ms (0 disables clock lines)")
		sleepHour  = flag.Int("sleep_at", 0, "send SLEEP once per day when the clock reaches this hour (0 disables)")
		location   = flag.String("location", "", "sleep location (default: first location offered by the server)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)
	root := strings.TrimRight(*baseURL, "/")

	conn, _, err := websocket.DefaultDialer.Dial(root+"/v1/calendar/ws", nil)
	if err != nil {
		logger.Fatalf("dial observer: %v", err)
	}
	defer conn.Close()

	sub := protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: protocol.Version,
		Kinds:           splitKinds(*kinds),
		ClockEveryMS:    *clockEvery,
	}
	if *clockEvery <= 0 {
		// CLOCK cannot be turned off; ask for the slowest rate unless the sleeper needs it.
		sub.ClockEveryMS = int(time.Minute / time.Millisecond)
		if *sleepHour > 0 {
			sub.ClockEveryMS = int(time.Second / time.Millisecond)
		}
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	var s *sleeper
	if *sleepHour > 0 {
		s, err = dialSleeper(root+"/v1/ws", uint8(*sleepHour), *location, logger)
		if err != nil {
			logger.Fatalf("dial control: %v", err)
		}
		defer s.conn.Close()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		if base.Type == protocol.TypeClock {
			var cm protocol.ClockMsg
			if s != nil && json.Unmarshal(msg, &cm) == nil {
				s.observe(cm.Clock)
			}
			if *clockEvery <= 0 {
				continue
			}
		}
		if line, ok := describe(base.Type, msg); ok {
			logger.Print(line)
		}
		if base.Type == protocol.TypeError {
			os.Exit(1)
		}
	}
}

func splitKinds(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func clockLine(c protocol.ClockView) string {
	line := fmt.Sprintf("Y%d %s %d (%s) %02d:%02d %s", c.Year, c.Season, c.Day, c.DayOfWeek, c.Hour, c.Minute, c.Weather)
	if c.Paused {
		line += " [paused]"
	}
	if c.FestivalDay {
		line += " [festival]"
	}
	return line
}

// describe renders one server message as a log line.
func describe(typ string, msg []byte) (string, bool) {
	switch typ {
	case protocol.TypeSubscribed:
		var m protocol.SubscribedMsg
		if json.Unmarshal(msg, &m) != nil {
			return "", false
		}
		return fmt.Sprintf("SUBSCRIBED world=%s kinds=%s clock=%s", m.WorldID, strings.Join(m.Kinds, ","), clockLine(m.Clock)), true

	case protocol.TypeCalendarEvent:
		var m protocol.CalendarEventMsg
		if json.Unmarshal(msg, &m) != nil {
			return "", false
		}
		line := fmt.Sprintf("%s step=%d Y%d %s", m.Kind, m.Step, m.Year, m.Season)
		if m.Day > 0 {
			line += fmt.Sprintf(" day=%d", m.Day)
		}
		switch m.Kind {
		case protocol.KindDayEnd:
			line += " cause=" + m.Cause
		case protocol.KindFestival:
			line += fmt.Sprintf(" festival=%q music=%s", m.Festival, m.MusicTrack)
		case protocol.KindPaused, protocol.KindResumed:
			line += " mode=" + m.Mode
		}
		if m.Clock != nil {
			line += " -> " + clockLine(*m.Clock)
		}
		return line, true

	case protocol.TypeClock:
		var m protocol.ClockMsg
		if json.Unmarshal(msg, &m) != nil {
			return "", false
		}
		return fmt.Sprintf("CLOCK step=%d %s", m.Step, clockLine(m.Clock)), true

	case protocol.TypeError:
		var m protocol.ErrorMsg
		if json.Unmarshal(msg, &m) != nil {
			return "", false
		}
		return fmt.Sprintf("ERROR %s: %s", m.Code, m.Message), true
	}
	return "", false
}
