package tfs

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	hostname   string
	port       int
	collection string

	domain   string
	username string
	password string

	debug      bool
	apiVersion string
	pageSize   int
	resetKeys  []string

	httpClient     Doer
	provider       CredentialProvider
	timeout        time.Duration
	userAgent      string
	sessionID      string
	statusLogger   StatusLogger
	logger         hclog.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
}

func (c *clientConfig) validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.pageSize, validation.Required, validation.Min(1), validation.Max(MaxPageSize)),
		validation.Field(&c.apiVersion, validation.Required),
	)
}

// WithHost sets the TFS server host name and port. Port 80 produces URLs
// without an explicit port; any other port is written into every URL.
func WithHost(hostname string, port int) ClientOption {
	return func(c *clientConfig) {
		c.hostname = hostname
		c.port = port
	}
}

// WithCollection sets the project collection, e.g. "DefaultCollection".
func WithCollection(name string) ClientOption {
	return func(c *clientConfig) {
		c.collection = name
	}
}

// WithCredentials sets the domain account used to authenticate.
func WithCredentials(domain, username, password string) ClientOption {
	return func(c *clientConfig) {
		c.domain = domain
		c.username = username
		c.password = password
	}
}

// WithDebug enables debug logging of request URLs and response headers.
// It only affects the default logger; a logger set with WithLogger keeps
// its own level.
func WithDebug(debug bool) ClientOption {
	return func(c *clientConfig) {
		c.debug = debug
	}
}

// WithAPIVersion sets the api-version query parameter. Default: "1.0".
func WithAPIVersion(version string) ClientOption {
	return func(c *clientConfig) {
		c.apiVersion = version
	}
}

// WithPageSize sets how many ids GetBatch sends per request.
// Must be between 1 and MaxPageSize.
func WithPageSize(n int) ClientOption {
	return func(c *clientConfig) {
		c.pageSize = n
	}
}

// WithResetKeys replaces the set of query parameters removed after every
// read. Default: $expand, fields, ids.
func WithResetKeys(keys ...string) ClientOption {
	return func(c *clientConfig) {
		c.resetKeys = keys
	}
}

// WithHTTPClient sets the HTTP client used for requests, bypassing the
// credential provider.
func WithHTTPClient(client Doer) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithCredentialProvider sets the provider that builds the authenticated
// HTTP client. Default: NTLMProvider.
func WithCredentialProvider(p CredentialProvider) ClientOption {
	return func(c *clientConfig) {
		c.provider = p
	}
}

// WithTimeout sets the default request timeout.
// Note: This option is ignored when WithHTTPClient or WithCredentialProvider
// is used.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithSessionID sets the X-TFS-Session correlation id. Default: a random UUID
// per client.
func WithSessionID(id string) ClientOption {
	return func(c *clientConfig) {
		c.sessionID = id
	}
}

// WithStatusLogger sets the hook that receives failure diagnostics.
func WithStatusLogger(l StatusLogger) ClientOption {
	return func(c *clientConfig) {
		c.statusLogger = l
	}
}

// WithLogger sets the client logger.
func WithLogger(logger hclog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithMetrics registers request metrics on reg.
func WithMetrics(reg prometheus.Registerer) ClientOption {
	return func(c *clientConfig) {
		c.registerer = reg
	}
}

// WithTracerProvider sets the provider used to trace operations.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *clientConfig) {
		c.tracerProvider = tp
	}
}

// RequestOption configures individual API requests.
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers http.Header
}

func newRequestConfig(opts ...RequestOption) *requestConfig {
	r := &requestConfig{
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithHeader adds a custom header to a request.
func WithHeader(key, value string) RequestOption {
	return func(r *requestConfig) {
		r.headers.Set(key, value)
	}
}

// WithHeaders adds multiple custom headers to a request.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *requestConfig) {
		for k, v := range headers {
			r.headers.Set(k, v)
		}
	}
}

// WithRequestID sets the X-Request-ID header for tracing.
func WithRequestID(id string) RequestOption {
	return WithHeader("X-Request-ID", id)
}
