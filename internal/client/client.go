// Package client is an opaque REST client to the risk-analysis service:
// submit a dependency manifest for analysis, poll a job for its verdict.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

// Package is the wire shape of a single dependency sent for analysis.
type Package struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Ecosystem string `json:"type"`
}

// AnalyzeRequest is the body posted to start a job.
type AnalyzeRequest struct {
	Packages []Package `json:"packages"`
	Project  string    `json:"project,omitempty"`
	Group    string    `json:"group,omitempty"`
	Label    string    `json:"label,omitempty"`
}

// AnalyzeResponse is returned immediately after submission; the verdict
// itself is fetched asynchronously via GetJobStatus.
type AnalyzeResponse struct {
	JobID string `json:"job_id"`
}

// JobStatus is the verdict for a previously submitted job.
type JobStatus struct {
	JobID      string  `json:"job_id"`
	Complete   bool    `json:"complete"`
	Score      float64 `json:"score"`
	PassStatus string  `json:"pass_status"`
	Packages   []struct {
		Package
		Issues []string `json:"issues,omitempty"`
	} `json:"packages"`
}

// Opts configures a Client.
type Opts struct {
	APIBaseURL string
	Token      string
	Logger     hclog.Logger
	Timeout    time.Duration
}

// Client talks to the risk-analysis service over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

// NewClient builds a retrying HTTP client configured the way the teacher's
// client.go configures its retryablehttp.Client: bounded retries, capped
// backoff, requests logged at debug via the shared hclog logger.
func NewClient(opts Opts) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	if opts.Logger != nil {
		rc.Logger = opts.Logger.Named("client")
	} else {
		rc.Logger = nil
	}
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	} else {
		rc.HTTPClient.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL: opts.APIBaseURL,
		token:   opts.Token,
		http:    rc,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding response from %s %s", method, path)
	}
	return nil
}

// ErrUnauthorized is returned when the service rejects the bearer token;
// callers use this to distinguish an expired/missing session from any
// other failure and trigger a refresh or re-login.
var ErrUnauthorized = errors.New("not authenticated")

// Analyze submits a set of packages for risk evaluation.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	var out AnalyzeResponse
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJobStatus polls the verdict for a previously submitted job.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	var out JobStatus
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+jobID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BaseURL returns the configured API origin, exposed to extensions via the
// host API's apiBaseUrl() (§4.4).
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do issues an arbitrary authenticated request against the service and
// returns the raw response, bypassing retryablehttp's retry/backoff
// wrapper. This backs the extension host API's fetch() (§4.4): extensions
// hit endpoints this Client has no typed method for, so the bearer token
// is attached here rather than handed to the caller.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.HTTPClient.Do(req)
}
