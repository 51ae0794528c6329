// Package gateway talks to the clustering and route-graph backend over HTTP
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backend endpoints
const (
	PathClustering = "/post_clustering_parameters"
	PathGraph      = "/post_graphs_parameters"
	PathDatasets   = "/get_datasets"
	PathChoose     = "/choose_dataset"
	PathUpload     = "/upload_dataset"
	PathDelete     = "/delete_dataset"
)

const (
	// DefaultTimeout covers the slowest backend computation observed
	DefaultTimeout = 5 * time.Minute

	maxResponseBytes = 16 << 20
)

// Client is a backend client. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	cookie     string
	timeout    time.Duration
	logger     *zap.Logger
	metrics    *Metrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

// WithSessionCookie sends the given Cookie header value on every request
func WithSessionCookie(cookie string) Option {
	return func(cl *Client) { cl.cookie = strings.TrimSpace(cookie) }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

// WithMetrics records request counts and latencies
func WithMetrics(m *Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SessionCookie returns the Cookie header value sent with requests
func (c *Client) SessionCookie() string {
	return c.cookie
}

// Cluster submits clustering parameters
func (c *Client) Cluster(ctx context.Context, params ClusteringParams) (*ClusteringResult, error) {
	var result ClusteringResult
	if err := c.postJSON(ctx, PathClustering, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Graph submits route-graph parameters
func (c *Client) Graph(ctx context.Context, params GraphParams) (*GraphResult, error) {
	var result GraphResult
	if err := c.postJSON(ctx, PathGraph, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListDatasets returns every dataset visible to the user and the user's own
func (c *Client) ListDatasets(ctx context.Context) (*DatasetList, error) {
	req, err := c.newRequest(ctx, http.MethodGet, PathDatasets, nil)
	if err != nil {
		return nil, err
	}
	var list DatasetList
	if err := c.do(req, PathDatasets, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ChooseDataset selects a dataset on the backend session
func (c *Client) ChooseDataset(ctx context.Context, id int) (string, error) {
	form := url.Values{"dataset_id": {strconv.Itoa(id)}}
	req, err := c.newRequest(ctx, http.MethodPost, PathChoose, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doAction(req, PathChoose)
}

// UploadDataset creates a dataset from a positions file and a marine registry file
func (c *Client) UploadDataset(ctx context.Context, u UploadRequest) (string, error) {
	if err := u.Validate(); err != nil {
		return "", err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("dataset-name", strings.TrimSpace(u.Name))
	if err := attachFile(w, "file-positions", u.PositionsFile); err != nil {
		return "", err
	}
	if err := attachFile(w, "file-marine", u.MarineFile); err != nil {
		return "", err
	}
	if u.Interpolation {
		_ = w.WriteField("interpolation", "on")
	}
	_ = w.WriteField("max_gap_minutes", u.maxGapField())
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, PathUpload, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.doAction(req, PathUpload)
}

func attachFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

// DeleteDataset removes one of the user's datasets
func (c *Client) DeleteDataset(ctx context.Context, id int) (string, error) {
	payload, err := json.Marshal(map[string]int{"id": id})
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, PathDelete, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doAction(req, PathDelete)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &NetworkError{Op: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out
func (c *Client) do(req *http.Request, endpoint string, out interface{}) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(endpoint, 0, elapsed)
		c.logger.Warn("backend request failed",
			zap.String("method", req.Method),
			zap.String("path", endpoint),
			zap.String("request_id", req.Header.Get("X-Request-ID")),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return &NetworkError{Op: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.metrics.observe(endpoint, resp.StatusCode, elapsed)
	c.logger.Info("backend request",
		zap.String("method", req.Method),
		zap.String("path", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
		zap.Duration("duration", elapsed))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Op: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &NetworkError{Op: endpoint, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(resp.StatusCode, body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &NetworkError{Op: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) doAction(req *http.Request, endpoint string) (string, error) {
	var result ActionResult
	if err := c.do(req, endpoint, &result); err != nil {
		return "", err
	}
	if !result.Success {
		return result.Message, &BackendComputationError{Message: result.Message}
	}
	return result.Message, nil
}

// errorMessage prefers the backend's {"error": "..."} text over the status text
func errorMessage(status int, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Неизвестная ошибка"
}
