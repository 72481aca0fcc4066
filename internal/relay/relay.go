// Package relay forwards browser requests under a path prefix to the market
// API so dashboards can read it without tripping CORS.
package relay

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
	"github.com/alanyoungcy/deadlinewatch/internal/platform/polymarket"
)

// Relay is an http.Handler that strips prefix from the request path and
// replays the request as a GET against upstream. It never retries and never
// caches.
type Relay struct {
	upstream string
	prefix   string
	client   *http.Client
	logger   *slog.Logger
}

// New creates a Relay. timeout bounds each upstream round trip; zero means
// 45 seconds.
func New(upstream, prefix string, timeout time.Duration, logger *slog.Logger) *Relay {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Relay{
		upstream: strings.TrimRight(upstream, "/"),
		prefix:   strings.TrimRight(prefix, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(slog.String("component", "relay")),
	}
}

// Target returns the upstream URL for r: the path after the prefix, with the
// raw query string untouched.
func (rl *Relay) Target(r *http.Request) string {
	target := rl.upstream + strings.TrimPrefix(r.URL.EscapedPath(), rl.prefix)
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target
}

func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := rl.Target(r)

	body, contentType, status, err := rl.fetch(r, target)
	if err != nil {
		rl.logger.WarnContext(r.Context(), "relay: upstream failed",
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (rl *Relay) fetch(r *http.Request, target string) ([]byte, string, int, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		return nil, "", 0, fmt.Errorf("relay: build request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/json")

	resp, err := rl.client.Do(req)
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: read body: %w", domain.ErrTransport, err)
	}
	if err := polymarket.CheckHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, "", 0, err
	}
	return body, resp.Header.Get("Content-Type"), resp.StatusCode, nil
}
