package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/stablex/driver/internal/config"
	"github.com/stablex/driver/internal/domain"
	"github.com/stablex/driver/pkg/types"
)

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	provider Provider
	ticker   Ticker
	cfg      config.DashboardConfig
	hub      *Hub
	logger   *slog.Logger
}

// NewHandlers creates a new handlers instance. ticker may be nil, in
// which case HandleTick always responds 503.
func NewHandlers(provider Provider, ticker Ticker, cfg config.DashboardConfig, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		provider: provider,
		ticker:   ticker,
		cfg:      cfg,
		hub:      hub,
		logger:   logger.With("component", "api-handlers"),
	}
}

// HandleTick triggers Driver.Tick for ?batch=N — the hook an external
// scheduler calls once per batch boundary.
func (h *Handlers) HandleTick(w http.ResponseWriter, r *http.Request) {
	if h.ticker == nil {
		http.Error(w, "tick endpoint not enabled", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	batchParam := r.URL.Query().Get("batch")
	batch, err := strconv.ParseUint(batchParam, 10, 32)
	if err != nil {
		http.Error(w, "batch query parameter must be a non-negative integer", http.StatusBadRequest)
		return
	}

	if err := h.ticker.Tick(r.Context(), types.BatchIndex(batch)); err != nil {
		h.logger.Error("tick failed", "batch", batch, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// HandleHealth reports C4's readiness flag: whether the live updater has
// finished its backfill and can serve AuctionReader calls.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := ReadinessStatus{Ready: h.provider.Ready()}
	if !status.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// HandleSnapshot returns the current auction view for ?batch=N.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	batchParam := r.URL.Query().Get("batch")
	batch, err := strconv.ParseUint(batchParam, 10, 32)
	if err != nil {
		http.Error(w, "batch query parameter must be a non-negative integer", http.StatusBadRequest)
		return
	}

	snap, err := BuildSnapshot(r.Context(), h.provider, types.BatchIndex(batch))
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			http.Error(w, "orderbook not ready", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("failed to build snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		h.logger.Error("failed to encode snapshot", "error", err)
	}
}

// HandleWebSocket upgrades the connection and creates a new WebSocket client.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			return isOriginAllowed(req.Header.Get("Origin"), h.cfg, req.Host)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn)

	data, err := json.Marshal(NewReadinessEvent(h.provider.Ready()))
	if err != nil {
		h.logger.Error("failed to marshal initial readiness event", "error", err)
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial readiness event to client")
	}
}

// authority is a normalized (scheme, host[:port]) pair, used to compare an
// incoming Origin header against either a configured allow-list entry or
// the request's own host.
type authority struct {
	scheme string
	host   string
}

// parseAuthority extracts a lowercased authority from a full origin URL
// such as "https://dash.example.com:8080", failing closed on anything that
// doesn't carry both a scheme and a host.
func parseAuthority(raw string) (authority, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return authority{}, false
	}
	return authority{scheme: strings.ToLower(u.Scheme), host: strings.ToLower(u.Host)}, true
}

// hostOnly strips an optional ":port" suffix so a request's Host header can
// be compared against an origin's bare hostname regardless of port.
func hostOnly(hostport string) string {
	hostport = strings.ToLower(strings.TrimSpace(hostport))
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}

// isOriginAllowed decides whether a WebSocket upgrade from origin may
// proceed. A missing Origin header passes (non-browser clients, including
// the driver's own health checks, routinely omit it); otherwise an
// explicit allow-list wins outright, falling back to same-host and
// localhost checks when none is configured.
func isOriginAllowed(origin string, cfg config.DashboardConfig, reqHost string) bool {
	if origin == "" {
		return true
	}

	incoming, ok := parseAuthority(origin)
	if !ok {
		return false
	}

	if len(cfg.AllowedOrigins) > 0 {
		for _, allowed := range cfg.AllowedOrigins {
			if a, ok := parseAuthority(allowed); ok && a == incoming {
				return true
			}
		}
		return false
	}

	switch hostOnly(incoming.host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}

	return hostOnly(incoming.host) == hostOnly(reqHost)
}
