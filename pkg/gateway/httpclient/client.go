package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"strings"
	"time"
)

const (
	errorBodyLimit = 1 << 12
	maxRedirects   = 3
)

// New creates an HTTP client tuned for outbound deliveries to third-party
// endpoints. Redirects are not followed: a 3xx answer to a POST surfaces as a
// StatusError instead of being replayed as a body-less GET.
func New(timeout time.Duration) *http.Client {
	client := newClient(timeout)
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return client
}

// NewFollowing is New for endpoints that answer a POST with a redirect to
// their result, such as spreadsheet bridge scripts. The POST body is not
// replayed on the redirected request; up to maxRedirects hops are followed.
func NewFollowing(timeout time.Duration) *http.Client {
	client := newClient(timeout)
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}
	return client
}

func newClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// StatusError reports a non-2xx answer from a remote endpoint.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("POST %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("POST %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// PostJSON sends body as JSON and treats any non-2xx status as an error.
// When out is non-nil the response body is decoded into it.
func PostJSON(ctx context.Context, client *http.Client, url string, body interface{}, headers map[string]string, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "formrelay-delivery/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		var urlErr *neturl.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = Redact(urlErr.URL)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &StatusError{URL: Redact(url), StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyLimit))
	return nil
}

// Redact reduces a destination URL to scheme and host. Webhook and bot URLs
// carry their credentials in the path or query, so nothing else is logged.
func Redact(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil || u.Host == "" {
		return "<redacted>"
	}
	return u.Scheme + "://" + u.Host
}
