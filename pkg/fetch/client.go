package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/toucan4life/gamemap/pkg/buildinfo"
	"github.com/toucan4life/gamemap/pkg/errors"
	"github.com/toucan4life/gamemap/pkg/observability"
)

// NewHTTPClient creates the client used for payload downloads. A zero
// timeout leaves the transport defaults in charge.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// client performs payload GETs with shared headers.
type client struct {
	http    *http.Client
	headers map[string]string
}

// download fetches url and returns its body along with the advertised
// length (-1 when unknown).
func (c *client) download(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	u := req.URL
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		return nil, 0, errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", redact(u))
	}
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, u); err != nil {
		resp.Body.Close()
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

func checkStatus(code int, u *url.URL) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeClusterNotFound, "GET %s: status %d", redact(u), code)
	default:
		return errors.New(errors.ErrCodeNetwork, "GET %s: status %d", redact(u), code)
	}
}

// redact drops credentials and query parameters from u for messages.
func redact(u *url.URL) string {
	c := *u
	c.User = nil
	c.RawQuery = ""
	return c.String()
}

func payloadURL(base, name string) (string, error) {
	u, err := url.JoinPath(base, name)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "endpoint %q", base)
	}
	return u, nil
}

// payloadName returns the file name of a cluster payload.
func payloadName(cluster int64, compressed bool) string {
	if compressed {
		return fmt.Sprintf("%d.dot.zz", cluster)
	}
	return fmt.Sprintf("%d.dot", cluster)
}
