// Package apiclient talks to the MomentLoop jobs REST surface on behalf of
// the job tracking store.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guybartal/momentloop-sub000/internal/domain"
	"github.com/guybartal/momentloop-sub000/internal/infra"
)

// ErrMissingBaseURL indicates the client was configured without a backend address.
var ErrMissingBaseURL = errors.New("apiclient: base url is required")

// Options configures the jobs API client.
type Options struct {
	BaseURL        string
	Token          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the /api/jobs endpoints.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     infra.Logger
	timeout    time.Duration
}

// JobRecord is the backend's job representation on the wire.
type JobRecord struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	ProjectID   string     `json:"project_id"`
	JobType     string     `json:"job_type"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Error       *string    `json:"error"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

type jobCreatePayload struct {
	ProjectID   string `json:"project_id"`
	JobType     string `json:"job_type"`
	Description string `json:"description"`
}

type apiError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

// New constructs a jobs API client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var logger infra.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		httpClient: httpClient,
		logger:     logger,
		timeout:    timeout,
	}, nil
}

// ListJobs fetches the user's most recent jobs, newest first.
func (c *Client) ListJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	path := "/api/jobs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var records []JobRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CreateJob registers a running job with the backend and returns the
// canonical record carrying the server-assigned id.
func (c *Client) CreateJob(ctx context.Context, projectID string, jobType domain.JobType, description string) (*JobRecord, error) {
	payload := jobCreatePayload{
		ProjectID:   projectID,
		JobType:     string(jobType),
		Description: description,
	}
	var record JobRecord
	if err := c.do(ctx, http.MethodPost, "/api/jobs", payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// CompleteJob acknowledges a terminal completed transition.
func (c *Client) CompleteJob(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodPatch, "/api/jobs/"+url.PathEscape(jobID)+"/complete", nil, nil)
}

// FailJob acknowledges a terminal failed transition with optional error text.
func (c *Client) FailJob(ctx context.Context, jobID, errMsg string) error {
	path := "/api/jobs/" + url.PathEscape(jobID) + "/fail"
	if errMsg != "" {
		path += "?error=" + url.QueryEscape(errMsg)
	}
	return c.do(ctx, http.MethodPatch, path, nil, nil)
}

// DeleteJob dismisses a single terminal job.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "/api/jobs/"+url.PathEscape(jobID), nil, nil)
}

// ClearNotifications dismisses every terminal job.
func (c *Client) ClearNotifications(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/jobs/notifications", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("apiclient: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug().Msgf("%s %s", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(resp, method, path)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apiclient: decode response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response, method, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("apiclient: %s %s: %s: %w", method, path, apiErr.Message, domain.ErrNotFound)
		}
		return fmt.Errorf("apiclient: %s %s: %s (%s)", method, path, apiErr.Message, apiErr.Code)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("apiclient: %s %s: %w", method, path, domain.ErrNotFound)
	}
	return fmt.Errorf("apiclient: %s %s: unexpected status %d", method, path, resp.StatusCode)
}
