package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/gorilla/websocket"

	"hearthfield.game/internal/protocol"
)

// sleeper holds a control connection and goes to bed once per game day.
type sleeper struct {
	conn     *websocket.Conn
	logger   *log.Logger
	hour     uint8
	location string

	lastDay uint32
	seq     int
}

func dialSleeper(url string, hour uint8, location string, logger *log.Logger) (*sleeper, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "watch"}
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}
	var w protocol.WelcomeMsg
	if err := conn.ReadJSON(&w); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read WELCOME: %w", err)
	}
	if w.Type != protocol.TypeWelcome {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected %s", w.Type)
	}
	if location == "" && len(w.SleepLocations) > 0 {
		location = w.SleepLocations[0]
	}
	logger.Printf("WELCOME session=%s world=%s sleep_at=%02d:00 location=%s", w.SessionID, w.WorldID, hour, location)

	s := &sleeper{conn: conn, logger: logger, hour: hour, location: location}
	go s.readAcks()
	return s, nil
}

// due reports whether a SLEEP should be sent for the day shown on c.
func (s *sleeper) due(c protocol.ClockView) bool {
	if c.Paused || c.Hour < s.hour {
		return false
	}
	return c.TotalDaysElapsed+1 != s.lastDay
}

func (s *sleeper) observe(c protocol.ClockView) {
	if !s.due(c) {
		return
	}
	s.lastDay = c.TotalDaysElapsed + 1
	s.seq++
	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		ReqID:           fmt.Sprintf("R_sleep_%d", s.seq),
		Action:          protocol.ActionSleep,
		Location:        s.location,
	}
	if err := s.conn.WriteJSON(act); err != nil {
		s.logger.Printf("send SLEEP: %v", err)
	}
}

func (s *sleeper) readAcks() {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var ack protocol.AckMsg
		if json.Unmarshal(msg, &ack) != nil || ack.Type != protocol.TypeAck {
			continue
		}
		if ack.Accepted {
			s.logger.Printf("ACK %s sleeping at %s", ack.ReqID, ack.Location)
		} else {
			s.logger.Printf("ACK %s rejected %s: %s", ack.ReqID, ack.Code, ack.Message)
		}
	}
}
