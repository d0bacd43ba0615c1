package client

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Option configures a Client at construction time.
type Option func(*Client)

// RetryPolicy controls how the client retries network failures, 5xx
// responses and 429 responses that carry Retry-After.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one. Zero disables retries.
	MaxRetries int
	// MinWait and MaxWait bound the exponential backoff between attempts.
	MinWait time.Duration
	MaxWait time.Duration
	// MaxRetryAfter caps how long the client honours a server Retry-After.
	// A longer hint fails the call with the 429 instead of sleeping.
	MaxRetryAfter time.Duration
}

// DefaultRetryPolicy is used when no WithRetryPolicy option is given.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		MinWait:       500 * time.Millisecond,
		MaxWait:       5 * time.Second,
		MaxRetryAfter: 30 * time.Second,
	}
}

// normalized fills unset waits from the defaults and keeps MaxWait >= MinWait.
func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.MinWait <= 0 {
		p.MinWait = def.MinWait
	}
	if p.MaxWait < p.MinWait {
		p.MaxWait = p.MinWait
	}
	if p.MaxRetryAfter <= 0 {
		p.MaxRetryAfter = def.MaxRetryAfter
	}
	return p
}

// WithRetryPolicy replaces the retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p.normalized()
	}
}

// WithoutRetries makes every call a single attempt.
func WithoutRetries() Option {
	return func(c *Client) {
		c.retry.MaxRetries = 0
	}
}

// WithHTTPClient sets the transport client. Nil is ignored.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds each attempt. The configured http.Client is copied, not mutated.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		hc := &http.Client{}
		if c.httpClient != nil {
			copied := *c.httpClient
			hc = &copied
		}
		hc.Timeout = d
		c.httpClient = hc
	}
}

// WithAPIKey sends key as a bearer token on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithApplication appends "name/version" to the SDK user agent so server
// logs can tell callers apart.
func WithApplication(name, version string) Option {
	return func(c *Client) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		product := name
		if version = strings.TrimSpace(version); version != "" {
			product = fmt.Sprintf("%s/%s", name, version)
		}
		c.userAgent = strings.TrimSpace(c.userAgent + " " + product)
	}
}

// WithHeader adds a header to every request. Headers the SDK manages
// itself (Authorization, User-Agent, X-Request-ID) cannot be overridden.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		key = http.CanonicalHeaderKey(strings.TrimSpace(key))
		if key == "" || reservedHeaders[key] {
			return
		}
		if c.headers == nil {
			c.headers = make(http.Header)
		}
		c.headers.Add(key, value)
	}
}

var reservedHeaders = map[string]bool{
	"Authorization": true,
	"User-Agent":    true,
	"X-Request-Id":  true,
}

// WithLogger sets the request logger. Nil is ignored.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

//Personal.AI order the ending
