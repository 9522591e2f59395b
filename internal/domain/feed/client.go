package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	platformerrors "retrocast-server-go/internal/platform/errors"
)

// Outcomes a caller can distinguish with errors.Is. The poll loop treats all
// of them as skip-and-continue.
var (
	ErrNotFound = errors.New("resource not found")
	ErrServer   = errors.New("server error")
	ErrNetwork  = errors.New("network error")
)

const (
	defaultUserAgent = "retrocast/1.0 (+feed image streamer)"

	// Caps a single response body; feeds and feed images should stay well
	// below this.
	maxBodyBytes = 32 << 20
)

// Client downloads feed documents and image payloads over HTTP with a
// bounded timeout per request.
type Client struct {
	http      *http.Client
	userAgent string
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}
}

// Fetch retrieves the resource at url. The returned error wraps ErrNotFound,
// ErrServer or ErrNetwork and carries the fetch error kind.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindFetch, "fetch",
			"build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindFetch, "fetch",
			url, fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindFetch, "fetch",
				url, fmt.Errorf("%w: read body: %v", ErrNetwork, err))
		}
		return data, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, platformerrors.Wrap(platformerrors.KindFetch, "fetch",
			url, fmt.Errorf("%w: status %d", ErrNotFound, resp.StatusCode))
	default:
		return nil, platformerrors.Wrap(platformerrors.KindFetch, "fetch",
			url, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode))
	}
}
