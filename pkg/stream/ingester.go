// Package stream is the upstream ingester: a long-lived HTTPS GET that
// reads LF-delimited review requests and hands each to the ingestion
// pipeline, reconnecting on any transport error.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/lichess-org/deepq/pkg/ingestion"
)

const (
	reconnectDelay = 5 * time.Second
	tcpKeepalive   = time.Second
	userAgent      = "lila-deepq"
)

// Ingester owns the upstream connection and feeds parsed requests to a
// Pipeline.
type Ingester struct {
	url        string
	bearerKey  string
	pipeline   *ingestion.Pipeline
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds an Ingester that streams from url with bearerKey and feeds
// decoded review requests to pipeline.
func New(url, bearerKey string, pipeline *ingestion.Pipeline) *Ingester {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: tcpKeepalive,
		}).DialContext,
	}
	return &Ingester{
		url:        url,
		bearerKey:  bearerKey,
		pipeline:   pipeline,
		httpClient: &http.Client{Transport: transport},
		logger:     slog.Default(),
	}
}

// Run connects, consumes lines until the connection drops, then sleeps
// reconnectDelay and tries again. It blocks until ctx is cancelled.
func (i *Ingester) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := i.connectAndConsume(ctx); err != nil {
			i.logger.Warn("stream: connection ended, reconnecting", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (i *Ingester) connectAndConsume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+i.bearerKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &httpStatusError{code: resp.StatusCode}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		i.handleLine(ctx, line)
	}
	return scanner.Err()
}

func (i *Ingester) handleLine(ctx context.Context, line string) {
	var wl wireLine
	if err := json.Unmarshal([]byte(line), &wl); err != nil {
		i.logger.Warn("stream: parse error", "error", err, "line", line)
		return
	}
	if wl.KeepAlive {
		return
	}
	if !wl.isReviewRequest() {
		i.logger.Warn("stream: line is neither keepalive nor review request", "line", line)
		return
	}

	req, err := wl.toReviewRequest()
	if err != nil {
		i.logger.Warn("stream: malformed review request", "error", err)
		return
	}

	games := make([]ingestion.GameInput, len(req.games))
	for idx, g := range req.games {
		games[idx] = ingestion.GameInput{
			ID:    g.id,
			White: g.white,
			Black: g.black,
			Emts:  g.emts,
			Moves: g.san,
		}
	}

	if err := i.pipeline.Ingest(ctx, ingestion.ReviewRequest{
		Origin: req.origin,
		User:   req.user,
		Games:  games,
	}); err != nil {
		i.logger.Error("stream: ingestion failed", "error", err, "user", req.user)
	}
}

func splitSAN(pgn string) []string {
	return strings.Fields(pgn)
}

type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return "stream: unexpected HTTP status " + http.StatusText(e.code)
}
