// Package upstream is the REST client for the remote inventory API.
//
// Calls are never retried. Every call waits on a client-side rate limiter,
// carries the caller's bearer token and trace context, and is reported to
// an Observer.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coagronet/console/internal/infrastructure/logger"
	"github.com/coagronet/console/internal/infrastructure/telemetry"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the client settings.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	ReportPrefix string
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	RateBurst int
	UserAgent string
}

// Observer receives one record per call.
type Observer interface {
	ObserveUpstream(ctx context.Context, endpoint, method string, status int, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveUpstream(context.Context, string, string, int, time.Duration, error) {}

// Client talks to the inventory API.
type Client struct {
	http         *resty.Client
	limiter      *rate.Limiter
	observer     Observer
	logger       *zap.Logger
	reportPrefix string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = resty.NewWithClient(hc) }
}

// New creates a client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		http:         resty.New(),
		observer:     nopObserver{},
		logger:       zap.NewNop(),
		reportPrefix: strings.TrimRight(cfg.ReportPrefix, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "coagronet-console"
	}

	c.http.
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			otel.GetTextMapPropagator().Inject(r.Context(), propagation.HeaderCarrier(r.Header))
			return nil
		})
	return c
}

// call describes one request.
type call struct {
	endpoint string
	method   string
	path     string
	token    string
	query    url.Values
	body     any
	accept   string
	stream   bool
}

// execute runs c and converts transport failures and non-2xx answers to
// errors. The span and observer see every outcome.
func (c *Client) execute(ctx context.Context, in call) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w", in.endpoint, err)
	}

	ctx, span := telemetry.StartSpan(ctx, "upstream."+in.endpoint,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("http.method", in.method),
		telemetry.WithAttribute("http.path", in.path),
	)
	defer span.End()

	req := c.http.R().SetContext(ctx)
	if in.token != "" {
		req.SetAuthToken(in.token)
	}
	if len(in.query) > 0 {
		req.SetQueryParamsFromValues(in.query)
	}
	if in.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(in.body)
	}
	if in.accept != "" {
		req.SetHeader("Accept", in.accept)
	}
	if in.stream {
		req.SetDoNotParseResponse(true)
	}

	start := time.Now()
	resp, err := req.Execute(in.method, in.path)
	status := 0
	if resp != nil && resp.RawResponse != nil {
		status = resp.StatusCode()
	}

	switch {
	case err != nil:
		err = fmt.Errorf("%w: %s: %v", ErrUnavailable, in.endpoint, err)
	case status >= 300:
		err = c.apiError(in, resp)
	}

	c.observer.ObserveUpstream(ctx, in.endpoint, in.method, status, time.Since(start), err)
	telemetry.SetAttributes(span, "http.status_code", status)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.Enrich(ctx, c.logger).Warn("Upstream call failed",
			zap.String("endpoint", in.endpoint),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	return resp, nil
}

func (c *Client) apiError(in call, resp *resty.Response) *APIError {
	body := resp.Body()
	if in.stream && resp.RawBody() != nil {
		body = readLimited(resp.RawBody(), 64<<10)
		_ = resp.RawBody().Close()
	}
	return &APIError{Endpoint: in.endpoint, Status: resp.StatusCode(), Message: extractMessage(body)}
}

// decode unmarshals a JSON body. An empty body leaves out untouched.
func decode(endpoint string, resp *resty.Response, out any) error {
	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return nil
}
