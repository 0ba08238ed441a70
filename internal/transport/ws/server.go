package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hearthfield.game/internal/protocol"
	"hearthfield.game/internal/sim/sleep"
	"hearthfield.game/internal/sim/world"
	"hearthfield.game/internal/transport/observer"
)

// Server accepts the game client's control connection: sleep requests, mode
// transitions and stamina reports. Calendar notifications go out through the
// observer stream, not here.
type Server struct {
	world *world.World
	log   *zap.Logger

	// IdleTimeout drops a client that answers neither ACTs nor pings for this long.
	IdleTimeout time.Duration

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		world:       w,
		log:         log.Named("control"),
		IdleTimeout: 60 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sid, ok := s.handshake(conn)
		if !ok {
			return
		}
		log := s.log.With(zap.String("session_id", sid))
		log.Info("client connected", zap.String("remote", r.RemoteAddr))
		defer log.Info("client disconnected")

		idle := s.IdleTimeout
		observer.KeepAlive(conn, idle)
		stop := make(chan struct{})
		defer close(stop)
		go keepPinging(conn, idle*9/10, stop)

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(idle))
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeAct {
				_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, "expected ACT"))
				continue
			}
			if base.ProtocolVersion != protocol.Version {
				_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoVersion, "unsupported protocol_version"))
				continue
			}
			var act protocol.ActMsg
			if err := decodeAct(msg, &act); err != nil {
				_ = writeJSON(conn, protocol.AckMsg{
					Type: protocol.TypeAck, ProtocolVersion: protocol.Version,
					ReqID: act.ReqID, Code: protocol.ErrBadRequest, Message: err.Error(),
				})
				continue
			}
			if err := writeJSON(conn, s.apply(act)); err != nil {
				break
			}
		}
	}
}

func keepPinging(conn *websocket.Conn, every time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if err := observer.Ping(conn); err != nil {
				return
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", false
	}
	if base.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", false
	}
	if err := protocol.Validate(protocol.TypeHello, msg); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad HELLO"), time.Now().Add(time.Second))
		return "", false
	}

	sid := "C-" + uuid.NewString()[:8]
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sid,
		WorldID:         s.world.ID(),
		RunID:           s.world.RunID(),
		TickRateHz:      s.world.TickRateHz(),
		SleepLocations:  s.world.SleepLocations(),
		Clock:           observer.ClockView(s.world.View()),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}
	return sid, true
}

// apply forwards one action to the world loop. Acceptance means the request is
// queued for the next step, not that a day has ended.
func (s *Server) apply(act protocol.ActMsg) protocol.AckMsg {
	ack := protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, ReqID: act.ReqID}

	var err error
	switch act.Action {
	case protocol.ActionSleep:
		ack.Location, err = s.world.RequestSleep(strings.TrimSpace(act.Location))
	case protocol.ActionSetMode:
		var m world.Mode
		if m, err = world.ParseMode(act.Mode); err == nil {
			err = s.world.SetMode(m)
		}
	case protocol.ActionStamina:
		if act.Stamina == nil {
			err = errors.New("missing stamina")
			break
		}
		err = s.world.ReportStamina(*act.Stamina)
	default:
		err = errors.New("unknown action")
	}
	if err != nil {
		ack.Code, ack.Message = ErrorCode(err), err.Error()
		return ack
	}
	ack.Accepted = true
	return ack
}

func decodeAct(msg []byte, act *protocol.ActMsg) error {
	// Best effort so a rejected ACT still echoes its req_id.
	_ = json.Unmarshal(msg, act)
	if err := protocol.Validate(protocol.TypeAct, msg); err != nil {
		return err
	}
	return json.Unmarshal(msg, act)
}

// ErrorCode maps world errors to protocol error codes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, sleep.ErrLocationDenied):
		return protocol.ErrSleepDenied
	case errors.Is(err, world.ErrBusy):
		return protocol.ErrWorldBusy
	case errors.Is(err, world.ErrStopped):
		return protocol.ErrWorldStopped
	default:
		return protocol.ErrBadRequest
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
