// Package provider fetches daily OHLCV history from the historical data
// provider's row (CSV) and batch (query language) endpoints.
package provider

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

const (
	defaultRowEndpoint   = "http://ichart.finance.yahoo.com/table.csv"
	defaultBatchEndpoint = "http://query.yahooapis.com/v1/public/yql"
	defaultBatchEnv      = "store://datatables.org/alltableswithkeys"
	dateFormat           = "2006-01-02"
)

var (
	// ErrTransport is wrapped by connection failures and non-2xx responses
	ErrTransport = errors.New("provider request failed")
	// ErrMalformedResponse is wrapped when a response lacks the expected shape
	ErrMalformedResponse = errors.New("provider query returned nothing")
)

// Client talks to both provider endpoints
type Client struct {
	client        *http.Client
	rowEndpoint   string
	batchEndpoint string
	batchEnv      string
	log           logrus.FieldLogger
}

// New creates a Client with the given options applied
func New(opts ...Option) *Client {
	c := &Client{
		client:        http.DefaultClient,
		rowEndpoint:   defaultRowEndpoint,
		batchEndpoint: defaultBatchEndpoint,
		batchEnv:      defaultBatchEnv,
		log:           logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Option configures a Client
type Option func(*Client)

// WithClient sets the HTTP client
func WithClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithRowEndpoint overrides the single-symbol CSV endpoint
func WithRowEndpoint(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.rowEndpoint = u
		}
	}
}

// WithBatchEndpoint overrides the multi-symbol query endpoint
func WithBatchEndpoint(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.batchEndpoint = u
		}
	}
}

// WithBatchEnv overrides the table store passed as the env parameter
func WithBatchEnv(env string) Option {
	return func(c *Client) {
		if env != "" {
			c.batchEnv = env
		}
	}
}

// WithLogger sets the logger used for skipped rows
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}
