package status

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Handlers holds the HTTP handler dependencies, grounded on api.Handlers.
type Handlers struct {
	bots   []BotView
	cfg    Config
	hub    *Hub
	logger *slog.Logger
}

func NewHandlers(bots []BotView, cfg Config, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{bots: bots, cfg: cfg, hub: hub, logger: logger.With("component", "status-handlers")}
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := BuildSnapshot(h.bots).forBot(r.URL.Query().Get("bot_id"))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		h.logger.Error("failed to encode snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

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

	botFilter := r.URL.Query().Get("bot_id")
	client := NewClient(h.hub, conn, botFilter)

	data, err := marshalSnapshotEvent(BuildSnapshot(h.bots).forBot(botFilter))
	if err != nil {
		h.logger.Error("failed to marshal initial snapshot", "error", err)
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial snapshot to client")
	}
}

func isOriginAllowed(origin string, cfg Config, reqHost string) bool {
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	normalized := normalizeOrigin(originURL.Scheme, originURL.Host)
	if normalized == "" {
		return false
	}

	if len(cfg.AllowedOrigins) > 0 {
		host := strings.ToLower(originURL.Hostname())
		for _, allowed := range cfg.AllowedOrigins {
			// "*.example.com" matches example.com itself and any subdomain
			// of it, any scheme — one fleet of bots behind one status server may be
			// fronted by several operator subdomains (staging, per-region),
			// unlike the teacher's single fixed dashboard origin.
			if sub, ok := strings.CutPrefix(allowed, "*."); ok {
				sub = strings.ToLower(sub)
				if host == sub || strings.HasSuffix(host, "."+sub) {
					return true
				}
				continue
			}
			u, err := url.Parse(allowed)
			if err != nil {
				continue
			}
			if normalized == normalizeOrigin(u.Scheme, u.Host) {
				return true
			}
		}
		return false
	}

	host := strings.ToLower(originURL.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	reqHostname := normalizeHost(reqHost)
	return reqHostname != "" && host == reqHostname
}

func normalizeOrigin(scheme, host string) string {
	if scheme == "" || host == "" {
		return ""
	}
	return strings.ToLower(scheme) + "://" + strings.ToLower(host)
}

func normalizeHost(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(hostport)
}
