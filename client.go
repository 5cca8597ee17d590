// Package tfs provides a Go client for the TFS / Azure DevOps Server
// work item tracking REST API.
//
// Basic usage:
//
//	client, err := tfs.NewClient(
//	    tfs.WithHost("tfs.example.com", 443),
//	    tfs.WithCollection("DefaultCollection"),
//	    tfs.WithCredentials("CORP", "jdoe", password),
//	    tfs.WithStatusLogger(tfs.NewLogStatusLogger(logger)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := client.WorkItems.Get(ctx, 42, tfs.ExpandRelations)
package tfs

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tphakala/go-tfs/internal/api"
	"github.com/tphakala/go-tfs/internal/metrics"
)

// Default configuration values.
const (
	defaultTimeout    = 30 * time.Second
	defaultAPIVersion = "1.0"
	tracerName        = "github.com/tphakala/go-tfs"
)

// MaxPageSize is the largest number of ids sent in one GetBatch request.
const MaxPageSize = 200

// Content types used on the wire.
const (
	ContentTypeJSON      = "application/json"
	ContentTypeJSONPatch = "application/json-patch+json"
)

// Query parameter names.
const (
	ParamAPIVersion = "api-version"
	ParamExpand     = "$expand"
	ParamFields     = "fields"
	ParamIDs        = "ids"
	ParamFilename   = "filename"
)

// Param is a query parameter.
type Param = api.Param

// Client is the TFS API client.
//
// A Client keeps the selected resource and the query parameters as
// unsynchronized state shared by all of its operations. Use one Client per
// goroutine, or guard it externally.
type Client struct {
	// WorkItems provides access to work item operations.
	WorkItems WorkItemService

	// Attachments provides access to attachment uploads.
	Attachments AttachmentService

	transport     *api.Transport
	collectionURL string
	resource      string
	params        *api.Params
	resetKeys     []string
	pageSize      int
	status        StatusLogger
	logger        hclog.Logger
	tracer        trace.Tracer
	metrics       metrics.Recorder
}

// NewClient creates a new TFS client with the given options.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		timeout:    defaultTimeout,
		apiVersion: defaultAPIVersion,
		pageSize:   MaxPageSize,
		resetKeys:  []string{ParamExpand, ParamFields, ParamIDs},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.hostname == "" {
		return nil, ErrNoHost
	}

	if cfg.collection == "" {
		return nil, ErrNoCollection
	}

	if cfg.domain == "" || cfg.username == "" || cfg.password == "" {
		return nil, ErrNoCredentials
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	logger := cfg.logger
	if logger == nil {
		if cfg.debug {
			logger = hclog.New(&hclog.LoggerOptions{
				Name:  "tfs",
				Level: hclog.Debug,
			})
		} else {
			logger = hclog.NewNullLogger()
		}
	}

	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.registerer != nil {
		p, err := metrics.NewPrometheus(cfg.registerer)
		if err != nil {
			return nil, err
		}
		recorder = p
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		provider := cfg.provider
		if provider == nil {
			provider = &NTLMProvider{Timeout: cfg.timeout}
		}
		var err error
		httpClient, err = provider.NewHTTPClient(cfg.domain, cfg.username, cfg.password, cfg.hostname)
		if err != nil {
			return nil, err
		}
	}

	transport, err := api.NewTransport(httpClient, logger, recorder)
	if err != nil {
		return nil, err
	}

	if cfg.userAgent != "" {
		transport.UserAgent = cfg.userAgent
	}

	transport.SessionID = cfg.sessionID
	if transport.SessionID == "" {
		transport.SessionID = uuid.NewString()
	}

	status := cfg.statusLogger
	if status == nil {
		status = unimplementedStatusLogger{}
	}

	tp := cfg.tracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}

	params := api.NewParams()
	params.Set(ParamAPIVersion, cfg.apiVersion)

	client := &Client{
		transport:     transport,
		collectionURL: api.CollectionURL(cfg.hostname, cfg.port, cfg.collection),
		params:        params,
		resetKeys:     cfg.resetKeys,
		pageSize:      cfg.pageSize,
		status:        status,
		logger:        logger,
		tracer:        tp.Tracer(tracerName),
		metrics:       recorder,
	}

	// Initialize services
	client.WorkItems = newWorkItemService(client)
	client.Attachments = newAttachmentService(client)

	return client, nil
}

// BaseURL returns the API root, https://host[:port]/collection/_apis/.
func (c *Client) BaseURL() string {
	return api.BaseURL(c.collectionURL)
}

// SetResource selects the resource the next request targets. A non-empty
// project scopes it as collection/project/_apis/resource.
func (c *Client) SetResource(resource, project string) *Client {
	c.resource = api.ResourceURL(c.collectionURL, project, resource)
	return c
}

// Resource returns the currently selected resource URL.
func (c *Client) Resource() string {
	return c.resource
}

// SetParameter sets a query parameter sent with every following request.
// The value is sent verbatim; escape it beforehand if needed.
func (c *Client) SetParameter(key, value string) {
	c.params.Set(key, value)
}

// UnsetParameter removes a query parameter.
func (c *Client) UnsetParameter(key string) {
	c.params.Del(key)
}

// Parameter returns the current value of a query parameter.
func (c *Client) Parameter(key string) (string, bool) {
	return c.params.Get(key)
}

// Parameters returns the query parameters in insertion order.
func (c *Client) Parameters() []Param {
	return c.params.All()
}

// ResetParameters removes the per-call parameters ($expand, fields and ids
// unless changed with WithResetKeys). Other parameters, including
// api-version and anything set with SetParameter, stay in place.
func (c *Client) ResetParameters() {
	for _, key := range c.resetKeys {
		c.params.Del(key)
	}
}

// URL returns the selected resource with the current query string.
func (c *Client) URL() string {
	full := c.resource
	if query := c.params.Encode(); query != "" {
		full += "?" + query
	}
	return full
}

// Prepare builds a request for the selected resource. An empty method means
// GET and an empty content type means application/json. A non-empty body is
// sent as JSON.
func (c *Client) Prepare(ctx context.Context, body any, method, contentType string) (*http.Request, error) {
	if c.resource == "" {
		return nil, ErrNoResource
	}
	if method == "" {
		method = http.MethodGet
	}
	if contentType == "" {
		contentType = ContentTypeJSON
	}

	var data []byte
	if !isEmptyBody(body) {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	full := c.URL()
	c.logger.Debug("preparing request", "method", method, "url", full)

	return c.transport.NewRequest(ctx, method, full, data, contentType)
}

// Fire sends req. Anything but a readable 200 response is reported to the
// status logger once and returned as a failed Response. The returned error
// is non-nil only when the status logger itself fails.
func (c *Client) Fire(req *http.Request) (*Response, error) {
	resp, err := c.transport.Do(req)
	if err != nil {
		return c.fail(req.Context(), 0, err.Error())
	}

	if resp.StatusCode != http.StatusOK || resp.ReadErr != nil {
		return c.fail(req.Context(), resp.StatusCode, resp.Reason)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Headers,
		Body:       resp.Body,
	}, nil
}

func (c *Client) fail(ctx context.Context, code int, reason string) (*Response, error) {
	statusErr := &StatusError{StatusCode: code, Reason: reason}
	if err := c.status.LogStatus(ctx, statusErr.Error()); err != nil {
		return nil, fmt.Errorf("logging status %q: %w", statusErr.Error(), err)
	}
	return &Response{StatusCode: code, Err: statusErr}, nil
}

// Read resets the per-call parameters and normalizes resp into a Result.
func (c *Client) Read(resp *Response) *Result {
	c.ResetParameters()

	switch {
	case resp == nil:
		return &Result{Kind: KindEmpty}
	case resp.Failed():
		return &Result{Kind: KindFailure, StatusCode: resp.StatusCode, Err: resp.Err}
	case len(resp.Body) == 0:
		return &Result{Kind: KindEmpty, StatusCode: resp.StatusCode}
	}

	var value any
	if err := json.Unmarshal(resp.Body, &value); err != nil {
		return &Result{Kind: KindError, StatusCode: resp.StatusCode, Err: &ParseError{Err: err}}
	}

	return &Result{Kind: KindValue, StatusCode: resp.StatusCode, Value: value}
}

// call runs one prepare/fire/read cycle against the selected resource.
func (c *Client) call(ctx context.Context, body any, method, contentType string, opts []RequestOption) (*Result, error) {
	reqCfg := newRequestConfig(opts...)

	req, err := c.Prepare(ctx, body, method, contentType)
	if err != nil {
		return nil, err
	}
	maps.Copy(req.Header, reqCfg.headers)

	resp, err := c.Fire(req)
	if err != nil {
		// Read is skipped, so clear the per-call parameters here.
		c.ResetParameters()
		return nil, err
	}

	return c.Read(resp), nil
}

func (c *Client) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, opts...)
}

// finish records the outcome of an operation on its span and metrics.
func (c *Client) finish(span trace.Span, operation string, res *Result, err error) (*Result, error) {
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.ObserveResult(operation, "aborted")
	case res.Kind == KindError || res.Kind == KindFailure:
		span.SetStatus(codes.Error, res.Message())
		c.metrics.ObserveResult(operation, res.Kind.String())
	default:
		c.metrics.ObserveResult(operation, res.Kind.String())
	}
	return res, err
}

// isEmptyBody reports whether body should be sent without a payload: nil,
// false, a numeric zero, or an empty string, slice, map or patch document.
func isEmptyBody(body any) bool {
	if body == nil {
		return true
	}
	if doc, ok := body.(*PatchDocument); ok {
		return doc == nil || doc.Len() == 0
	}

	v := reflect.ValueOf(body)
	switch v.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return v.IsZero()
	default:
		return false
	}
}
