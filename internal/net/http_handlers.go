package net

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/Nishit5799/multiplayerShooting/internal/hub"
	"github.com/Nishit5799/multiplayerShooting/internal/net/ws"
	"github.com/Nishit5799/multiplayerShooting/internal/telemetry"
)

type HTTPHandlerConfig struct {
	Logger telemetry.Logger
	WS     ws.HandlerConfig
	// Failed reports the fatal match error, if any, for /healthz.
	Failed func() error
}

// NewHTTPHandler serves the participant websocket and debug endpoints.
func NewHTTPHandler(h *hub.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	wsCfg := cfg.WS
	if wsCfg.Logger == nil {
		wsCfg.Logger = cfg.Logger
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if cfg.Failed != nil {
			if err := cfg.Failed(); err != nil {
				httpError(w, err.Error(), nethttp.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/snapshot", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		payload := struct {
			MatchID    string   `json:"matchId"`
			ServerTime int64    `json:"serverTime"`
			Sessions   []string `json:"sessions"`
			Snapshot   any      `json:"snapshot"`
		}{
			MatchID:    h.MatchID(),
			ServerTime: time.Now().UnixMilli(),
			Sessions:   h.Sessions(),
			Snapshot:   h.Latest(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/ws", ws.NewHandler(h, wsCfg).Handle)

	return mux
}

func httpError(w nethttp.ResponseWriter, message string, status int) {
	nethttp.Error(w, message, status)
}
