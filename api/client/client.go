// Package client is the HTTP client of the settlement API. The raw Request
// method drives any endpoint; settlement.go layers typed calls on top.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/cipherbet/engine/api"
	"github.com/cipherbet/engine/log"
)

// Method strings accepted by Request.
const (
	HTTPGET  = http.MethodGet
	HTTPPOST = http.MethodPost
)

const (
	errCodeNot200 = "API error"

	// DefaultRetries is how many times Request retransmits on transport
	// failure before giving up.
	DefaultRetries = 3
	// DefaultTimeout bounds each HTTP round trip.
	DefaultTimeout = 10 * time.Second
	// retryBackoff is the pause between retransmissions.
	retryBackoff = 500 * time.Millisecond
	// logBodyLimit truncates request bodies in debug logs.
	logBodyLimit = 512
)

// HTTPclient is a settlement API client bound to one host.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New builds a client for the given host and pings it once, so a wrong
// address fails at construction instead of on the first real call.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	c := &HTTPclient{
		c: &http.Client{
			Transport: &http.Transport{IdleConnTimeout: DefaultTimeout},
			Timeout:   DefaultTimeout,
		},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	return c, c.ping()
}

func (c *HTTPclient) ping() error {
	data, status, err := c.Request(HTTPGET, nil, nil, api.PingEndpoint)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return nil
}

// SetRetries configures the number of transport retries.
func (c *HTTPclient) SetRetries(n int) {
	c.retries = n
}

// SetTimeout configures the per-request timeout.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
}

// Request performs a raw call against the endpoint built from urlPath
// segments. A non-nil jsonBody is marshaled and sent as JSON. params holds
// query parameters as [key1, val1, key2, val2, ...] pairs; a trailing
// unpaired key is ignored. Returns the response body, the HTTP status and
// any transport error; API-level errors travel in the status and body.
func (c *HTTPclient) Request(method string, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	var body []byte
	if jsonBody != nil {
		var err error
		if body, err = json.Marshal(jsonBody); err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))
	if len(params) > 1 {
		values := url.Values{}
		for i := 0; i+1 < len(params); i += 2 {
			values.Set(params[i], params[i+1])
		}
		u.RawQuery = values.Encode()
	}

	logBody := string(body)
	if len(logBody) > logBodyLimit {
		logBody = logBody[:logBodyLimit] + "..."
	}
	log.Debugw("http client request", "type", method, "url", u.String(), "body", logBody)

	var resp *http.Response
	var err error
	for attempt := 1; attempt <= c.retries; attempt++ {
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		var req *http.Request
		req, err = http.NewRequest(method, u.String(), reqBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
		}
		if resp, err = c.c.Do(req); err == nil {
			break
		}
		log.Warnw("http request failed", "error", err.Error(), "attempt", attempt, "retries", c.retries)
		time.Sleep(retryBackoff)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("http request failed after %d attempts: %w", c.retries, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("cannot close response body", "error", err.Error())
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}
