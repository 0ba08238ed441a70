package observer

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hearthfield.game/internal/events"
	"hearthfield.game/internal/metrics"
	"hearthfield.game/internal/protocol"
	"hearthfield.game/internal/sim/world"
)

const (
	handshakeTimeout   = 5 * time.Second
	writeTimeout       = 5 * time.Second
	defaultIdleTimeout = 60 * time.Second

	defaultClockEvery = time.Second
	minClockEvery     = 100 * time.Millisecond
)

type Options struct {
	// Buffer is the per-observer event queue; a slow observer misses events
	// rather than stalling the world.
	Buffer int
	// AllowRemote serves non-loopback clients.
	AllowRemote bool
	Metrics     *metrics.Registry
	// IdleTimeout drops a connection that answers neither data nor pings for
	// this long. Pings go out at 9/10 of it.
	IdleTimeout time.Duration
}

// Server streams calendar notifications to read-only observers.
type Server struct {
	world *world.World
	log   *zap.Logger
	opts  Options

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	return &Server{
		world: w,
		log:   log.Named("observer"),
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

type BootstrapResponse struct {
	ProtocolVersion string             `json:"protocol_version"`
	WorldID         string             `json:"world_id"`
	RunID           string             `json:"run_id"`
	Step            uint64             `json:"step"`
	TickRateHz      int                `json:"tick_rate_hz"`
	Clock           protocol.ClockView `json:"clock"`
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := BootstrapResponse{
			ProtocolVersion: protocol.Version,
			WorldID:         s.world.ID(),
			RunID:           s.world.RunID(),
			Step:            s.world.CurrentStep(),
			TickRateHz:      s.world.TickRateHz(),
			Clock:           ClockView(s.world.View()),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sub, ok := s.handshake(conn)
		if !ok {
			return
		}

		sid := "O-" + uuid.NewString()[:8]
		hub := s.world.Events()
		ch := hub.Subscribe(s.opts.Buffer, EventTypes(sub.Kinds)...)
		defer hub.Unsubscribe(ch)

		if m := s.opts.Metrics; m != nil {
			m.Observers.Inc()
			defer m.Observers.Dec()
		}
		log := s.log.With(zap.String("session_id", sid), zap.String("remote", r.RemoteAddr))
		log.Info("observer subscribed", zap.Strings("kinds", sub.Kinds))
		defer log.Info("observer left")

		every := clockEvery(sub.ClockEveryMS)
		welcome := protocol.SubscribedMsg{
			Type:            protocol.TypeSubscribed,
			ProtocolVersion: protocol.Version,
			SessionID:       sid,
			WorldID:         s.world.ID(),
			Kinds:           sub.Kinds,
			ClockEveryMS:    int(every / time.Millisecond),
			Clock:           ClockView(s.world.View()),
		}
		if len(welcome.Kinds) == 0 {
			welcome.Kinds = protocol.AllKinds
		}
		if err := writeJSON(conn, welcome); err != nil {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		idle := s.opts.IdleTimeout
		KeepAlive(conn, idle)
		writeErr := make(chan error, 1)
		go func() { writeErr <- s.writeLoop(ctx, conn, ch, every, idle*9/10) }()

		// Reader loop: observers are read-only; reads only detect disconnects
		// and dispatch pongs.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(idle))
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (protocol.SubscribeMsg, bool) {
	var sub protocol.SubscribeMsg

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return sub, false
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeSubscribe {
		reject(conn, protocol.ErrProtoBadRequest, "expected SUBSCRIBE")
		return sub, false
	}
	if base.ProtocolVersion != protocol.Version {
		reject(conn, protocol.ErrProtoVersion, "unsupported protocol_version "+base.ProtocolVersion)
		return sub, false
	}
	if err := protocol.Validate(protocol.TypeSubscribe, msg); err != nil {
		reject(conn, protocol.ErrBadRequest, err.Error())
		return sub, false
	}
	if err := json.Unmarshal(msg, &sub); err != nil {
		reject(conn, protocol.ErrBadRequest, "bad subscribe")
		return sub, false
	}
	return sub, true
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, ch <-chan events.Event, every, pingEvery time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	ping := time.NewTicker(pingEvery)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ping.C:
			if err := Ping(conn); err != nil {
				return err
			}
		case e := <-ch:
			msg, ok := CalendarEvent(e)
			if !ok {
				continue
			}
			if err := writeJSON(conn, msg); err != nil {
				return err
			}
		case <-ticker.C:
			msg := protocol.ClockMsg{
				Type:            protocol.TypeClock,
				ProtocolVersion: protocol.Version,
				Step:            s.world.CurrentStep(),
				Clock:           ClockView(s.world.View()),
			}
			if err := writeJSON(conn, msg); err != nil {
				return err
			}
		}
	}
}

func (s *Server) allowed(r *http.Request) bool {
	return s.opts.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func clockEvery(ms int) time.Duration {
	if ms <= 0 {
		return defaultClockEvery
	}
	d := time.Duration(ms) * time.Millisecond
	if d < minClockEvery {
		d = minClockEvery
	}
	return d
}

// KeepAlive arms the read deadline and extends it on every pong.
func KeepAlive(conn *websocket.Conn, idle time.Duration) {
	_ = conn.SetReadDeadline(time.Now().Add(idle))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(idle))
	})
}

// Ping sends a keepalive ping. Safe to call alongside the connection's writer.
func Ping(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func reject(conn *websocket.Conn, code, message string) {
	_ = writeJSON(conn, protocol.NewError(code, message))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
