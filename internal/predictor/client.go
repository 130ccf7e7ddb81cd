package predictor

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
	"time"

	"github.com/kubev2v/fold-planner/internal/config"
	"github.com/kubev2v/fold-planner/internal/storage"
	"github.com/kubev2v/fold-planner/pkg/requestid"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultProgressTimeout = 2 * time.Second
	predictPath            = "/predict"
)

// ErrJobUnknown is returned by Progress when the predictor has no record of the job.
var ErrJobUnknown = errors.New("job unknown to the predictor")

// Client is an HTTP client for the AlphaFold predictor.
type Client struct {
	endpoint        string
	baseURL         string
	httpClient      *http.Client
	progressTimeout time.Duration
}

// NewClient creates a client posting predictions to endpoint. The status and health routes
// are resolved against endpoint without its trailing /predict.
func NewClient(endpoint string, timeout, progressTimeout time.Duration) *Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if progressTimeout == 0 {
		progressTimeout = defaultProgressTimeout
	}

	endpoint = strings.TrimRight(endpoint, "/")
	return &Client{
		endpoint: endpoint,
		baseURL:  strings.TrimSuffix(endpoint, predictPath),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		progressTimeout: progressTimeout,
	}
}

type Request struct {
	Platform       string `json:"platform"`
	JobID          string `json:"jobId"`
	Sequence       string `json:"sequence"`
	Name           string `json:"name,omitempty"`
	StorageURL     string `json:"storageUrl"`
	BucketName     string `json:"bucketName,omitempty"`
	ObjectKey      string `json:"objectKey,omitempty"`
	StorageAccount string `json:"storageAccount,omitempty"`
	ContainerName  string `json:"containerName,omitempty"`
	BlobName       string `json:"blobName,omitempty"`
}

// NewRequest fills the storage coordinates of the request from the adapter location.
func NewRequest(jobID, sequence, name, storageURL string, loc storage.Location) Request {
	objectName := storage.ObjectName(jobID)
	req := Request{
		Platform:   loc.Provider,
		JobID:      jobID,
		Sequence:   sequence,
		Name:       name,
		StorageURL: storageURL,
	}

	switch loc.Provider {
	case config.StorageProviderAzure:
		// the predictor reads the azure account from bucketName
		req.BucketName = loc.Account
		req.StorageAccount = loc.Account
		req.ContainerName = loc.Container
		req.BlobName = objectName
	default:
		// the predictor reads the s3 bucket from storageAccount
		req.BucketName = loc.Bucket
		req.StorageAccount = loc.Bucket
		req.ObjectKey = objectName
	}
	return req
}

type Progress struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

// Submit dispatches a prediction. Any non-2xx answer is an error and nothing is retried.
func (c *Client) Submit(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	requestid.Propagate(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call predictor: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("predictor returned status %d: %s", resp.StatusCode, errorMessage(bodyBytes))
	}

	return nil
}

// Progress asks the predictor how far it got with a job.
func (c *Client) Progress(ctx context.Context, jobID string) (*Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, c.progressTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/status/%s", c.baseURL, url.PathEscape(jobID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestid.Propagate(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call predictor: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrJobUnknown
	default:
		return nil, fmt.Errorf("predictor returned status %d: %s", resp.StatusCode, errorMessage(bodyBytes))
	}

	var p Progress
	if err := json.Unmarshal(bodyBytes, &p); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	p.Progress = min(max(p.Progress, 0), 100)

	return &p, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	u := fmt.Sprintf("%s/health", c.baseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call predictor: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Drain body to enable connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("predictor health check returned status %d", resp.StatusCode)
	}

	return nil
}

// errorMessage extracts the error field of a predictor answer, falling back to the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
