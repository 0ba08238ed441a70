package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"hearthfield.game/internal/events"
	"hearthfield.game/internal/protocol"
	"hearthfield.game/internal/sim/calendar"
	"hearthfield.game/internal/sim/world"
)

func startWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(world.WorldConfig{ID: "obs", Seed: 7, TickRateHz: 100, TimeScale: 10}, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) (protocol.BaseMessage, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	base, err := protocol.DecodeBase(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return base, b
}

func newTestServer(t *testing.T, w *world.World) *httptest.Server {
	t.Helper()
	return newTestServerOpts(t, w, Options{Buffer: 16})
}

func newTestServerOpts(t *testing.T, w *world.World, opts Options) *httptest.Server {
	t.Helper()
	s := NewServer(w, nil, opts)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.WSHandler())
	mux.HandleFunc("/bootstrap", s.BootstrapHandler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestObserver_StreamsDayEnd(t *testing.T) {
	w := startWorld(t)
	srv := newTestServer(t, w)
	conn := dial(t, srv)

	sub := protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version, Kinds: []string{protocol.KindDayEnd}, ClockEveryMS: 200}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	base, b := readMsg(t, conn)
	if base.Type != protocol.TypeSubscribed {
		t.Fatalf("expected SUBSCRIBED, got %s", b)
	}
	var welcome protocol.SubscribedMsg
	if err := json.Unmarshal(b, &welcome); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if welcome.WorldID != "obs" || welcome.ClockEveryMS != 200 || welcome.Clock.Day != 1 {
		t.Fatalf("welcome=%+v", welcome)
	}

	if _, err := w.RequestSleep("PlayerHouse"); err != nil {
		t.Fatalf("sleep: %v", err)
	}

	for {
		base, b := readMsg(t, conn)
		switch base.Type {
		case protocol.TypeClock:
			if err := protocol.Validate(protocol.TypeClock, b); err != nil {
				t.Fatalf("clock msg invalid: %v", err)
			}
			continue
		case protocol.TypeCalendarEvent:
		default:
			t.Fatalf("unexpected message %s", b)
		}
		if err := protocol.Validate(protocol.TypeCalendarEvent, b); err != nil {
			t.Fatalf("event invalid: %v", err)
		}
		var ev protocol.CalendarEventMsg
		if err := json.Unmarshal(b, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Kind != protocol.KindDayEnd || ev.Day != 1 || ev.Season != "Spring" || ev.Cause != "EXTERNAL_SLEEP" {
			t.Fatalf("event=%+v", ev)
		}
		break
	}
}

func TestObserver_SilentSubscriberOutlivesIdleTimeout(t *testing.T) {
	w := startWorld(t)
	srv := newTestServerOpts(t, w, Options{Buffer: 16, IdleTimeout: 300 * time.Millisecond})
	conn := dial(t, srv)

	sub := protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version, ClockEveryMS: 100}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	if base, b := readMsg(t, conn); base.Type != protocol.TypeSubscribed {
		t.Fatalf("expected SUBSCRIBED, got %s", b)
	}

	// The client never writes again; reading answers the server's pings.
	until := time.Now().Add(1200 * time.Millisecond)
	clocks := 0
	for time.Now().Before(until) {
		base, b := readMsg(t, conn)
		if base.Type == protocol.TypeClock {
			clocks++
			continue
		}
		if base.Type != protocol.TypeCalendarEvent {
			t.Fatalf("unexpected message %s", b)
		}
	}
	if clocks < 5 {
		t.Fatalf("clocks=%d, stream stalled", clocks)
	}
}

func TestObserver_RejectsBadHandshake(t *testing.T) {
	w := startWorld(t)
	srv := newTestServer(t, w)

	cases := []struct {
		msg  string
		code string
	}{
		{`{"type":"HELLO","protocol_version":"1.0"}`, protocol.ErrProtoBadRequest},
		{`{"type":"SUBSCRIBE","protocol_version":"0.1"}`, protocol.ErrProtoVersion},
		{`{"type":"SUBSCRIBE","protocol_version":"1.0","kinds":["RAIN"]}`, protocol.ErrBadRequest},
	}
	for _, tc := range cases {
		conn := dial(t, srv)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(tc.msg)); err != nil {
			t.Fatalf("write: %v", err)
		}
		base, b := readMsg(t, conn)
		if base.Type != protocol.TypeError {
			t.Fatalf("expected ERROR, got %s", b)
		}
		var e protocol.ErrorMsg
		_ = json.Unmarshal(b, &e)
		if e.Code != tc.code {
			t.Fatalf("%s: code=%s want %s", tc.msg, e.Code, tc.code)
		}
	}
}

func TestBootstrap(t *testing.T) {
	w := startWorld(t)
	s := NewServer(w, nil, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/calendar/bootstrap", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rec := httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var resp BootstrapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.WorldID != "obs" || resp.ProtocolVersion != protocol.Version || resp.TickRateHz != 100 || resp.Clock.Season != "Spring" {
		t.Fatalf("resp=%+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/calendar/bootstrap", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	rec = httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote status=%d", rec.Code)
	}
}

func TestCalendarEventConversion(t *testing.T) {
	v := calendar.NewState().View()
	cases := []struct {
		e    events.Event
		kind string
	}{
		{events.Event{Type: events.EventDayEnd, Data: calendar.DayEndEvent{Day: 3, Season: calendar.Summer, Year: 1, Cause: calendar.CauseAuto2AM}}, protocol.KindDayEnd},
		{events.Event{Type: events.EventSeasonChange, Data: calendar.SeasonChangeEvent{NewSeason: calendar.Fall, Year: 1}}, protocol.KindSeasonChange},
		{events.Event{Type: events.EventFestival, Data: events.FestivalData{Festival: calendar.Luau, MusicTrack: calendar.Luau.MusicTrack(), Date: calendar.Date{Year: 1, Season: calendar.Summer, Day: 11}}}, protocol.KindFestival},
		{events.Event{Type: events.EventPaused, Data: events.ModeData{Mode: "MENU", View: v}}, protocol.KindPaused},
		{events.Event{Type: events.EventResumed, Data: events.ModeData{Mode: "PLAYING", View: v}}, protocol.KindResumed},
	}
	for _, tc := range cases {
		m, ok := CalendarEvent(tc.e)
		if !ok || m.Kind != tc.kind {
			t.Fatalf("%s: ok=%v kind=%s", tc.e.Type, ok, m.Kind)
		}
		b, _ := json.Marshal(m)
		if err := protocol.Validate(protocol.TypeCalendarEvent, b); err != nil {
			t.Fatalf("%s: %v", tc.kind, err)
		}
	}
	if _, ok := CalendarEvent(events.Event{Type: events.EventSaved, Data: events.SavedData{}}); ok {
		t.Fatalf("save events are not streamed")
	}
	if got := EventTypes(nil); len(got) != len(protocol.AllKinds) {
		t.Fatalf("all kinds -> %v", got)
	}
}
