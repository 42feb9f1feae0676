package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Fetcher performs rate-limited GET requests against one upstream.
type Fetcher struct {
	client  *http.Client
	limiter *RateLimiter
}

// NewFetcher returns a Fetcher with the given timeout and request rate.
func NewFetcher(timeout time.Duration, perSecond float64) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		limiter: NewRateLimiter(perSecond),
	}
}

// Get performs a GET request with the given URL and headers, returning the
// response body. The caller is responsible for closing the returned
// ReadCloser. Responses with status >= 400 are returned as *ErrHTTP.
func (f *Fetcher) Get(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "HTTP GET %s", url)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, nil
}

// GetJSON fetches url and decodes the JSON body into out.
func (f *Fetcher) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	body, err := f.Get(ctx, url, headers)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return eris.Wrapf(err, "decode %s", url)
	}
	return nil
}

// StatusCode extracts the HTTP status from err, or 0 if err is not an
// *ErrHTTP.
func StatusCode(err error) int {
	var he *ErrHTTP
	if eris.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
