package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"hearthfield.game/internal/metrics"
	"hearthfield.game/internal/sim/sleep"
	"hearthfield.game/internal/sim/world"
	"hearthfield.game/internal/transport/observer"
	"hearthfield.game/internal/transport/ws"
)

type routeConfig struct {
	World          *world.World
	Metrics        *metrics.Registry
	ObserverBuffer int
	EnableAdmin    bool
	Log            *zap.Logger
}

func newMux(cfg routeConfig) *http.ServeMux {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	w := cfg.World
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics.Handler())
	}

	obsSrv := observer.NewServer(w, cfg.Log, observer.Options{Buffer: cfg.ObserverBuffer, Metrics: cfg.Metrics})
	mux.HandleFunc("/v1/calendar/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/calendar/ws", obsSrv.WSHandler())
	mux.HandleFunc("/v1/calendar/view", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(rw, http.StatusOK, observer.ClockView(w.View()))
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(w, cfg.Log).Handler())

	if !cfg.EnableAdmin {
		cfg.Log.Info("admin endpoints disabled (HF_ENABLE_ADMIN_HTTP=false)")
		return mux
	}

	// Local-only admin endpoints.
	mux.HandleFunc("/admin/v1/state", adminOnly(http.MethodGet, func(rw http.ResponseWriter, r *http.Request) {
		resp := struct {
			WorldID string             `json:"world_id"`
			RunID   string             `json:"run_id"`
			Step    uint64             `json:"step"`
			Metrics world.WorldMetrics `json:"metrics"`
		}{
			WorldID: w.ID(),
			RunID:   w.RunID(),
			Step:    w.CurrentStep(),
			Metrics: w.Metrics(),
		}
		writeJSON(rw, http.StatusOK, resp)
	}))
	mux.HandleFunc("/admin/v1/sleep", adminOnly(http.MethodPost, func(rw http.ResponseWriter, r *http.Request) {
		loc := strings.TrimSpace(r.URL.Query().Get("location"))
		if loc == "" {
			loc = sleep.DefaultLocation
		}
		canonical, err := w.RequestSleep(loc)
		if err != nil {
			writeJSON(rw, statusFor(err), map[string]any{"ok": false, "error": err.Error(), "code": ws.ErrorCode(err)})
			return
		}
		writeJSON(rw, http.StatusAccepted, map[string]any{"ok": true, "location": canonical})
	}))
	mux.HandleFunc("/admin/v1/pause", adminOnly(http.MethodPost, modeHandler(w, world.ModePaused)))
	mux.HandleFunc("/admin/v1/resume", adminOnly(http.MethodPost, modeHandler(w, world.ModePlaying)))
	mux.HandleFunc("/admin/v1/save", adminOnly(http.MethodPost, func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		step, err := w.RequestSave(ctx)
		if err != nil {
			writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "step": step, "error": err.Error()})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "step": step})
	}))
	return mux
}

func modeHandler(w *world.World, m world.Mode) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if err := w.SetMode(m); err != nil {
			writeJSON(rw, statusFor(err), map[string]any{"ok": false, "error": err.Error(), "code": ws.ErrorCode(err)})
			return
		}
		writeJSON(rw, http.StatusAccepted, map[string]any{"ok": true, "mode": m})
	}
}

func adminOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sleep.ErrLocationDenied):
		return http.StatusUnprocessableEntity
	case errors.Is(err, world.ErrBusy), errors.Is(err, world.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
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
