// Package api provides low-level HTTP transport for TFS API calls.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/tphakala/go-tfs/internal/metrics"
)

const (
	defaultMaxBodySize = 32 * 1024 * 1024 // 32MB

	// DefaultReadAttempts bounds how often a 200 response body is read
	// before the request is reported as failed.
	DefaultReadAttempts = 3

	// SessionHeader carries the per-client correlation id.
	SessionHeader = "X-TFS-Session"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transport handles HTTP communication with the TFS API.
type Transport struct {
	HTTPClient   Doer
	UserAgent    string
	SessionID    string
	ReadAttempts int
	Logger       hclog.Logger
	Metrics      metrics.Recorder
}

// NewTransport creates a Transport with the given configuration.
func NewTransport(httpClient Doer, logger hclog.Logger, recorder metrics.Recorder) (*Transport, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client must be provided")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &Transport{
		HTTPClient:   httpClient,
		UserAgent:    "go-tfs/1.0",
		ReadAttempts: DefaultReadAttempts,
		Logger:       logger,
		Metrics:      recorder,
	}, nil
}

// Response is a received HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte

	// Reason explains a failure: the reason phrase (or body) of a non-200
	// response, or the last read error when the body could not be read.
	Reason string

	// ReadErr is set when every attempt to read a 200 body failed.
	ReadErr error
}

// NewRequest builds a request carrying the transport's default headers.
// A nil body sends no payload.
func (t *Transport) NewRequest(ctx context.Context, method, url string, body []byte, contentType string) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.UserAgent)
	if t.SessionID != "" {
		req.Header.Set(SessionHeader, t.SessionID)
	}

	return req, nil
}

// Do sends req. A non-nil error means no response was received at all;
// HTTP-level failures are reported through Response.
func (t *Transport) Do(req *http.Request) (*Response, error) {
	start := time.Now()
	httpResp, err := t.HTTPClient.Do(req)
	if err != nil {
		t.Metrics.ObserveRequest(req.Method, 0, time.Since(start))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()
	t.Metrics.ObserveRequest(req.Method, httpResp.StatusCode, time.Since(start))

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
	}

	if httpResp.StatusCode != http.StatusOK {
		resp.Reason = reasonPhrase(httpResp)
		if resp.Reason == "" {
			body, _ := readLimited(httpResp.Body)
			resp.Reason = string(body)
		}
		return resp, nil
	}

	resp.Body, resp.ReadErr = t.readBody(req.Context(), httpResp.Body)
	if resp.ReadErr != nil {
		resp.Reason = resp.ReadErr.Error()
		return resp, nil
	}

	t.Logger.Debug("response received", "status", httpResp.StatusCode, "headers", httpResp.Header)
	return resp, nil
}

// readBody reads body, retrying failed reads up to ReadAttempts times in
// total. The first read that succeeds wins.
func (t *Transport) readBody(ctx context.Context, body io.Reader) ([]byte, error) {
	attempts := max(t.ReadAttempts, 1)

	var (
		data    []byte
		attempt int
	)
	policy := backoff.WithContext(
		backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(attempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			t.Metrics.ObserveReadRetry()
		}
		b, err := readLimited(body)
		if err != nil {
			t.Logger.Debug("reading response body failed", "attempt", attempt, "error", err)
			return err
		}
		data = b
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return data, nil
}

var errBodyTooLarge = fmt.Errorf("response too large: exceeds %d bytes", defaultMaxBodySize)

func readLimited(body io.Reader) ([]byte, error) {
	// Limit response body size to prevent memory exhaustion
	b, err := io.ReadAll(io.LimitReader(body, defaultMaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > defaultMaxBodySize {
		return nil, backoff.Permanent(errBodyTooLarge)
	}
	return b, nil
}

// reasonPhrase extracts the text after the status code in resp.Status.
func reasonPhrase(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}
