package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"countdowntodo-sync/internal/models"
	"countdowntodo-sync/internal/services"
)

var (
	ErrUnauthorized = errors.New("cloudsync unauthorized")
	ErrNotFound     = errors.New("cloudsync not found")
	// ErrUnavailable covers transport failures and 5xx replies. Requests
	// failing this way are retried before the error is returned.
	ErrUnavailable = errors.New("cloudsync unavailable")
)

// RejectedError is a 4xx reply other than 401 and 404. It is never retried.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("cloudsync rejected (%d): %s", e.Status, e.Message)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userID     string
	newBackOff func() backoff.BackOff
}

type ClientOption func(*Client)

// WithBackOff replaces the retry policy used for unavailable replies.
func WithBackOff(f func() backoff.BackOff) ClientOption {
	return func(c *Client) { c.newBackOff = f }
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// NewHTTPClient returns a pooled client suited to frequent small sync calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func NewClient(httpClient *http.Client, baseURL, token, userID string, opts ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		userID:     strings.TrimSpace(userID),
		newBackOff: defaultBackOff,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type PushResult[R any] struct {
	Applied bool `json:"applied"`
	Record  R    `json:"record"`
}

type DeleteResult[R any] struct {
	OK      bool `json:"ok"`
	Applied bool `json:"applied"`
	Record  *R   `json:"record,omitempty"`
}

type SummaryQuery struct {
	Day           string
	MinDuration   int64
	ExcludeSystem bool
	MergeDevices  bool
}

func (q SummaryQuery) encode() string {
	v := url.Values{}
	v.Set("day", q.Day)
	if q.MinDuration > 0 {
		v.Set("min_duration", strconv.FormatInt(q.MinDuration, 10))
	}
	if q.ExcludeSystem {
		v.Set("exclude_system", "true")
	}
	if q.MergeDevices {
		v.Set("merge_devices", "true")
	}
	return v.Encode()
}

type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func (c *Client) PushTodo(ctx context.Context, in services.PushTodoInput) (*PushResult[models.TodoRecord], error) {
	var out PushResult[models.TodoRecord]
	if err := c.do(ctx, http.MethodPost, "/api/v1/todos", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTodo(ctx context.Context, id, updatedAt int64) (*DeleteResult[models.TodoRecord], error) {
	var out DeleteResult[models.TodoRecord]
	path := "/api/v1/todos/" + strconv.FormatInt(id, 10) + "/delete"
	if err := c.do(ctx, http.MethodPost, path, services.DeleteInput{UpdatedAt: updatedAt}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PullTodos(ctx context.Context) ([]models.TodoRecord, error) {
	var out []models.TodoRecord
	if err := c.do(ctx, http.MethodGet, "/api/v1/todos", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PushCountdown(ctx context.Context, in services.PushCountdownInput) (*PushResult[models.CountdownRecord], error) {
	var out PushResult[models.CountdownRecord]
	if err := c.do(ctx, http.MethodPost, "/api/v1/countdowns", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCountdown(ctx context.Context, id, updatedAt int64) (*DeleteResult[models.CountdownRecord], error) {
	var out DeleteResult[models.CountdownRecord]
	path := "/api/v1/countdowns/" + strconv.FormatInt(id, 10) + "/delete"
	if err := c.do(ctx, http.MethodPost, path, services.DeleteInput{UpdatedAt: updatedAt}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PullCountdowns(ctx context.Context) ([]models.CountdownRecord, error) {
	var out []models.CountdownRecord
	if err := c.do(ctx, http.MethodGet, "/api/v1/countdowns", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PushUsage uploads the device's counters for one day and returns how many
// samples the server stored.
func (c *Client) PushUsage(ctx context.Context, in services.PushUsageInput) (int, error) {
	var out struct {
		Received int `json:"received"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/usage", in, &out); err != nil {
		return 0, err
	}
	return out.Received, nil
}

func (c *Client) UsageSummary(ctx context.Context, q SummaryQuery) ([]models.UsageSummary, error) {
	var out []models.UsageSummary
	if err := c.do(ctx, http.MethodGet, "/api/v1/usage/summary?"+q.encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Mappings(ctx context.Context) ([]models.IdentityMapping, error) {
	var out []models.IdentityMapping
	if err := c.do(ctx, http.MethodGet, "/api/v1/mappings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}
	op := func() error {
		err := c.once(ctx, method, path, payload, out)
		if err == nil || errors.Is(err, ErrUnavailable) {
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var r io.Reader
	if payload != nil {
		r = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		token := c.token
		if !strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = "Bearer " + token
		}
		req.Header.Set("Authorization", token)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d %s", ErrUnavailable, resp.StatusCode, eb.Error)
	default:
		return &RejectedError{Status: resp.StatusCode, Message: eb.Error}
	}
}
