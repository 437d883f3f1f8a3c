package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/engage/pkg/logger"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// Client talks to the engagement API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a Client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, http: &http.Client{Timeout: timeout}}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// RecordSession posts one session and reports whether it was a duplicate.
func (c *Client) RecordSession(ctx context.Context, s Session) (bool, error) {
	var ack sessionAck
	if err := c.do(ctx, http.MethodPost, "/api/achievements", s, &ack); err != nil {
		return false, err
	}
	return ack.Duplicate, nil
}

// League fetches GET /api/league for a viewer.
func (c *Client) League(ctx context.Context, memberID string) (League, error) {
	var l League
	err := c.do(ctx, http.MethodGet, "/api/league?memberId="+url.QueryEscape(memberID), nil, &l)
	return l, err
}

// submit posts sessions with cfg.Workers concurrent submitters and updates
// the counters in stats.
func submit(ctx context.Context, cfg *Config, c *Client, sessions []Session, stats *Stats) {
	log := logger.Get().Named("simulate")
	log.Info(ctx, "submitting sessions",
		logger.Int("sessions", len(sessions)),
		logger.Int("workers", cfg.Workers),
	)

	var recorded, duplicate, failed atomic.Int64
	ch := make(chan Session, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < max(cfg.Workers, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range ch {
				dup, err := c.RecordSession(ctx, s)
				switch {
				case err != nil:
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "session failed", logger.String("event_id", s.EventID), logger.Error(err))
					}
				case dup:
					duplicate.Add(1)
				default:
					recorded.Add(1)
				}
			}
		}()
	}

feed:
	for _, s := range sessions {
		select {
		case <-ctx.Done():
			break feed
		case ch <- s:
		}
	}
	close(ch)
	wg.Wait()

	stats.Submitted += len(sessions)
	stats.Recorded += int(recorded.Load())
	stats.Duplicates += int(duplicate.Load())
	stats.Failed += int(failed.Load())
}
