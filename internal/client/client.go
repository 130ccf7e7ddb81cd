package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	api "github.com/kubev2v/fold-planner/api/v1alpha1"
	"github.com/kubev2v/fold-planner/pkg/requestid"
)

// Client talks to the fold-planner job API.
type Client struct {
	server     string
	token      string
	httpClient *http.Client
}

type ClientOption func(c *Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = h
	}
}

func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

func New(server string, opts ...ClientOption) *Client {
	c := &Client{
		server:     strings.TrimSuffix(server, "/"),
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// APIError is returned for every non-2xx answer of the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (c *Client) SubmitSequence(ctx context.Context, req api.SubmitSequenceRequest) (*api.SubmitSequenceResponse, error) {
	var resp api.SubmitSequenceResponse
	if err := c.do(ctx, http.MethodPost, "/api/submit-sequence", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) JobStatus(ctx context.Context, jobID string) (*api.JobStatusResponse, error) {
	var resp api.JobStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/job-status/"+url.PathEscape(jobID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CheckResult(ctx context.Context, jobID string) (*api.CheckResultResponse, error) {
	var resp api.CheckResultResponse
	if err := c.do(ctx, http.MethodGet, "/api/check-result/"+url.PathEscape(jobID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListJobs(ctx context.Context) (*api.AdminJobsResponse, error) {
	var resp api.AdminJobsResponse
	if err := c.do(ctx, http.MethodGet, "/api/admin/jobs", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Download fetches a result file from its signed storage url. The caller closes the body.
func (c *Client) Download(ctx context.Context, storageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, storageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading structure: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading structure: storage returned %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.server+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	requestid.Propagate(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e api.Error
		if json.Unmarshal(data, &e) == nil {
			apiErr.Message = e.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
