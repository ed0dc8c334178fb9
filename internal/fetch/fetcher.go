// Package fetch loads remote spreadsheet data over HTTP and through the
// Google Sheets API, turning both into the same in-memory Table the local
// CSV upload path produces.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"tradepulse/internal/dataset"
)

// NetworkError reports a remote fetch that failed or timed out after the
// configured retries. The caller surfaces it with a retry affordance.
type NetworkError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Client fetches remote CSV exports. Concurrent requests for the same URL
// are collapsed into one flight; a failed request is retried once with a
// short backoff before giving up.
type Client struct {
	http    *http.Client
	retries int
	backoff time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// Options configures a fetch client.
type Options struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// NewClient creates a fetch client. A zero timeout defaults to 15s so a
// hung remote sheet can never block the pipeline indefinitely.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		retries: opts.Retries,
		backoff: opts.Backoff,
		logger:  logger.With(slog.String("component", "fetch")),
	}
}

// FetchCSV downloads CSV bytes from rawURL and parses them into a Table.
// Transport failures and non-2xx statuses become a NetworkError; body parse
// failures pass through as the dataset's ParseError.
func (c *Client) FetchCSV(ctx context.Context, rawURL string) (*dataset.Table, error) {
	v, err, shared := c.group.Do(rawURL, func() (interface{}, error) {
		return c.fetchWithRetry(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.DebugContext(ctx, "fetch shared with concurrent caller", slog.String("url", rawURL))
	}
	return v.(*dataset.Table), nil
}

func (c *Client) fetchWithRetry(ctx context.Context, rawURL string) (*dataset.Table, error) {
	attempts := c.retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		body, err := c.fetchOnce(ctx, rawURL)
		if err == nil {
			t, perr := dataset.ParseCSV(body)
			body.Close()
			if perr != nil {
				return nil, perr
			}
			c.logger.InfoContext(ctx, "remote table fetched",
				slog.String("url", rawURL),
				slog.Int("rows", t.Len()),
				slog.Duration("duration", time.Since(start)))
			return t, nil
		}
		lastErr = err
		c.logger.WarnContext(ctx, "remote fetch failed",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		if attempt < attempts {
			select {
			case <-time.After(c.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, &NetworkError{URL: rawURL, Attempts: attempt, Err: ctx.Err()}
			}
		}
	}
	return nil, &NetworkError{URL: rawURL, Attempts: attempts, Err: lastErr}
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

var sheetIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)

// SpreadsheetID extracts the spreadsheet ID from a Google Sheets share link.
// The second return is false for anything that is not a Sheets link.
func SpreadsheetID(shareURL string) (string, bool) {
	if !strings.Contains(shareURL, "docs.google.com") {
		return "", false
	}
	m := sheetIDPattern.FindStringSubmatch(shareURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SheetCSVURL turns a Google Sheets share link into the CSV export URL for
// the named sheet. Already-CSV URLs (export or gviz links, or anything not
// recognizably a Sheets link) pass through unchanged.
func SheetCSVURL(shareURL, sheetName string) (string, error) {
	if strings.Contains(shareURL, "tqx=out:csv") || strings.Contains(shareURL, "format=csv") {
		return shareURL, nil
	}
	if !strings.Contains(shareURL, "docs.google.com") {
		return shareURL, nil
	}
	m := sheetIDPattern.FindStringSubmatch(shareURL)
	if m == nil {
		return "", fmt.Errorf("cannot extract spreadsheet id from %q", shareURL)
	}
	return fmt.Sprintf(
		"https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s",
		m[1], url.QueryEscape(sheetName),
	), nil
}
