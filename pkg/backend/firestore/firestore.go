// Package firestore implements the document-store backend over the
// Firestore REST v1 API.
//
// Only the surface the sync engine needs is covered: a paginated
// full-collection read and a single batched upsert commit. Requests
// authenticate with the project API key, matching how the browser
// client reaches the same collection.
package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/antelabs/bodyshop/pkg/backend"
	"github.com/antelabs/bodyshop/pkg/model"
)

const (
	defaultBaseURL    = "https://firestore.googleapis.com/v1"
	defaultCollection = "talleres_jobs"
	defaultPageSize   = 300

	// Firestore rejects commits above 500 writes; callers cap batches
	// well under that (see pkg/sync).
	requestTimeout = 30 * time.Second
)

// Config configures the Firestore client.
type Config struct {
	ProjectID  string
	APIKey     string
	Collection string

	// BaseURL overrides the API endpoint, for tests and emulators.
	BaseURL string

	// RequestsPerSecond throttles outgoing calls. Zero means a
	// conservative default.
	RequestsPerSecond float64
}

// Client talks to one Firestore project's job collection.
type Client struct {
	httpc      *http.Client
	limiter    *rate.Limiter
	baseURL    string
	projectID  string
	apiKey     string
	collection string
}

var _ backend.Store = (*Client)(nil)

// New creates a Firestore client from the given config.
func New(cfg Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, &backend.ConfigError{Backend: backend.KindFirestore, Missing: "project id"}
	}
	if cfg.APIKey == "" {
		return nil, &backend.ConfigError{Backend: backend.KindFirestore, Missing: "api key"}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	collection := cfg.Collection
	if collection == "" {
		collection = defaultCollection
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		httpc:      &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		baseURL:    baseURL,
		projectID:  cfg.ProjectID,
		apiKey:     cfg.APIKey,
		collection: collection,
	}, nil
}

// parentPath is the documents root for the project's default database.
func (c *Client) parentPath() string {
	return fmt.Sprintf("projects/%s/databases/(default)/documents", c.projectID)
}

// docName is the full resource name for one job document.
func (c *Client) docName(id string) string {
	return fmt.Sprintf("%s/%s/%s", c.parentPath(), c.collection, id)
}

// FetchJobs reads the full job collection, following page tokens until
// exhausted. Documents that fail to decode degrade to defaults rather
// than failing the fetch.
func (c *Client) FetchJobs(ctx context.Context) ([]model.Job, error) {
	var jobs []model.Job
	pageToken := ""

	for {
		q := url.Values{}
		q.Set("key", c.apiKey)
		q.Set("pageSize", strconv.Itoa(defaultPageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		endpoint := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.parentPath(), c.collection, q.Encode())

		var page listResponse
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, c.wrapError("FetchJobs", err)
		}

		for _, doc := range page.Documents {
			jobs = append(jobs, jobFromDocument(doc))
		}

		if page.NextPageToken == "" {
			return jobs, nil
		}
		pageToken = page.NextPageToken
	}
}

// WriteJobs upserts every job in a single atomic commit. Each write
// carries an update mask limited to the fields the job actually has a
// value for, so unspecified fields are preserved server-side and the
// backend never sees an explicit no-value marker.
func (c *Client) WriteJobs(ctx context.Context, jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	writes := make([]commitWrite, 0, len(jobs))
	for _, job := range jobs {
		fields := fieldsFromJob(job)
		writes = append(writes, commitWrite{
			Update: &document{
				Name:   c.docName(job.ID),
				Fields: fields,
			},
			UpdateMask: &documentMask{FieldPaths: fieldPaths(fields)},
		})
	}

	endpoint := fmt.Sprintf("%s/%s:commit?key=%s",
		c.baseURL,
		fmt.Sprintf("projects/%s/databases/(default)/documents", c.projectID),
		url.QueryEscape(c.apiKey))

	body := commitRequest{Writes: writes}
	if err := c.do(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return c.wrapError("WriteJobs", err)
	}
	return nil
}

// do performs one rate-limited HTTP round trip, decoding the JSON
// response into out when out is non-nil.
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

// wrapError converts transport failures to backend errors with the
// matching sentinel where the HTTP status allows it.
func (c *Client) wrapError(op string, err error) error {
	wrapped := &backend.BackendError{
		Op:       op,
		Backend:  backend.KindFirestore,
		Resource: fmt.Sprintf("%s/%s", c.projectID, c.collection),
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
