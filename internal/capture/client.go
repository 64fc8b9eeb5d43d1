package capture

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/PratikDhanave/capture-client/internal/config"
	"github.com/PratikDhanave/capture-client/internal/logger"
	"github.com/PratikDhanave/capture-client/internal/models"
)

// Bounds of the backoff between retried attempts.
const (
	RetryWaitMin = 100 * time.Millisecond
	RetryWaitMax = 2 * time.Second
)

// Response is the decoded reply of the ingestion endpoint. Body is left as
// decoded; the client does not interpret it.
type Response struct {
	StatusCode int
	Body       any
}

// Client posts capture payloads to a single ingestion host.
type Client struct {
	cfg  config.Config
	log  *logrus.Logger
	http *retryablehttp.Client
}

// Option customises a Client.
type Option func(*options)

type options struct {
	transport http.RoundTripper
	log       *logrus.Logger
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithLogger sets the logger used by the client and its transport.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewClient builds a client for cfg. cfg is expected to have passed
// config.Validate.
func NewClient(cfg config.Config, opts ...Option) *Client {
	o := options{log: logger.GetLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultTimeout
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = RetryWaitMin
	rc.RetryWaitMax = RetryWaitMax
	rc.HTTPClient.Timeout = cfg.Timeout
	if o.transport != nil {
		rc.HTTPClient.Transport = o.transport
	}
	rc.Logger = logger.NewLeveledLogrus(o.log)
	rc.Backoff = retryablehttp.DefaultBackoff
	rc.CheckRetry = ConnectionErrorRetryPolicy

	return &Client{cfg: cfg, log: o.log, http: rc}
}

// ConnectionErrorRetryPolicy retries only attempts that produced no response.
// Any response, whatever its status, may already have been ingested.
func ConnectionErrorRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil && resp == nil, nil
}

// Capture sends p on its own route.
func (c *Client) Capture(ctx context.Context, p models.Payload) (*Response, error) {
	return c.Send(ctx, p.Route(), p)
}

// Send posts payload as JSON to the configured host plus route and decodes
// the reply. The api_key from the configuration is added to the body.
func (c *Client) Send(ctx context.Context, route string, payload models.Payload) (*Response, error) {
	url := c.cfg.APIHost + route

	b, err := json.Marshal(payload.Body(c.cfg.APIKey))
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, b)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", url)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: transportCause(ctx, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: errors.Wrap(err, "read response body")}
	}

	c.log.WithFields(logrus.Fields{
		"route":  route,
		"status": resp.StatusCode,
		"bytes":  len(raw),
	}).Debug("capture request completed")

	if !c.cfg.IgnoreStatus && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Raw: string(raw)}
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &ResponseDecodeError{URL: url, Raw: string(raw), Err: err}
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
