// Package sheets implements the spreadsheet backend over the Google
// Sheets REST v4 API.
//
// The client exposes row-level operations; encoding a Job to and from a
// row is the row codec's concern (pkg/rowcodec), invoked by the sync
// orchestrator. Authentication is a bearer access token held in the app
// settings.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/antelabs/bodyshop/pkg/backend"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com/v4"

	// TabName is the sheet tab holding the job table. Row 1 is the
	// header row; data starts at row 2.
	TabName = "Trabajos"

	dataRange      = TabName + "!A2:K"
	headerRange    = TabName + "!A1:K1"
	requestTimeout = 30 * time.Second
)

// Config configures the Sheets client.
type Config struct {
	SpreadsheetID string
	AccessToken   string

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string

	// RequestsPerSecond throttles outgoing calls against the Sheets
	// per-user quota. Zero means a conservative default.
	RequestsPerSecond float64
}

// Client talks to one spreadsheet's job tab.
type Client struct {
	httpc         *http.Client
	limiter       *rate.Limiter
	baseURL       string
	spreadsheetID string
	token         string
}

// New creates a Sheets client from the given config.
func New(cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, &backend.ConfigError{Backend: backend.KindSheets, Missing: "spreadsheet id"}
	}
	if cfg.AccessToken == "" {
		return nil, &backend.ConfigError{Backend: backend.KindSheets, Missing: "access token"}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &Client{
		httpc:         &http.Client{Timeout: requestTimeout},
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		baseURL:       baseURL,
		spreadsheetID: cfg.SpreadsheetID,
		token:         cfg.AccessToken,
	}, nil
}

// EnsureSheet is the idempotent bootstrap: if the job tab is missing it
// is created and the header row written; if present this is a no-op.
// Safe to call on every sync.
func (c *Client) EnsureSheet(ctx context.Context, headers []string) error {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s?fields=sheets.properties.title",
		c.baseURL, url.PathEscape(c.spreadsheetID))

	var meta struct {
		Sheets []struct {
			Properties struct {
				Title string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &meta); err != nil {
		return c.wrapError("EnsureSheet", err)
	}

	for _, s := range meta.Sheets {
		if s.Properties.Title == TabName {
			return nil
		}
	}

	addReq := map[string]any{
		"requests": []map[string]any{
			{"addSheet": map[string]any{"properties": map[string]any{"title": TabName}}},
		},
	}
	endpoint = fmt.Sprintf("%s/spreadsheets/%s:batchUpdate", c.baseURL, url.PathEscape(c.spreadsheetID))
	if err := c.do(ctx, http.MethodPost, endpoint, addReq, nil); err != nil {
		return c.wrapError("EnsureSheet", err)
	}

	headerBody := valueRange{Values: [][]string{headers}}
	endpoint = fmt.Sprintf("%s/spreadsheets/%s/values/%s?valueInputOption=RAW",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(headerRange))
	if err := c.do(ctx, http.MethodPut, endpoint, headerBody, nil); err != nil {
		return c.wrapError("EnsureSheet", err)
	}
	return nil
}

// ReadRows fetches every data row from row 2 down. A tab with no data
// returns an empty slice.
func (c *Client) ReadRows(ctx context.Context) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(dataRange))

	var vr valueRange
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &vr); err != nil {
		return nil, c.wrapError("ReadRows", err)
	}
	if vr.Values == nil {
		return [][]string{}, nil
	}
	return vr.Values, nil
}

// Clear empties the data range, leaving the header row intact.
func (c *Client) Clear(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:clear",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(dataRange))

	if err := c.do(ctx, http.MethodPost, endpoint, struct{}{}, nil); err != nil {
		return c.wrapError("Clear", err)
	}
	return nil
}

// AppendRows writes every row after the current end of the data range
// in one call, with raw (unparsed) input semantics.
func (c *Client) AppendRows(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=RAW",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(dataRange))

	if err := c.do(ctx, http.MethodPost, endpoint, valueRange{Values: rows}, nil); err != nil {
		return c.wrapError("AppendRows", err)
	}
	return nil
}

// valueRange is the Sheets values payload shape.
type valueRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values,omitempty"`
}

// do performs one rate-limited, bearer-authenticated round trip.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &backend.HTTPStatusError{Status: resp.StatusCode, Body: backend.ReadBodySnippet(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// wrapError maps response statuses to the shared sentinels so callers
// can tell an expired token (401) from missing access (403) from a bad
// spreadsheet id (404).
func (c *Client) wrapError(op string, err error) error {
	wrapped := &backend.BackendError{
		Op:       op,
		Backend:  backend.KindSheets,
		Resource: c.spreadsheetID,
		Err:      err,
	}

	var statusErr *backend.HTTPStatusError
	if backend.AsHTTPStatus(err, &statusErr) {
		wrapped.Status = statusErr.Status
		if sentinel := backend.SentinelForStatus(statusErr.Status); sentinel != nil {
			wrapped.Err = fmt.Errorf("%w: %s", sentinel, statusErr.Body)
		}
	}
	return wrapped
}
