package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tartampluch/vcf2ics/internal/config"
)

// Fetcher retrieves a remote address book.
// This interface allows for mocking in tests and decoupling from the network layer.
type Fetcher interface {
	Fetch(ctx context.Context, src Source) (io.ReadCloser, error)
}

// HTTPFetcher implements Fetcher with net/http and Basic auth.
type HTTPFetcher struct {
	Client *http.Client
	// MaxBytes bounds the body; a larger address book fails instead of
	// being cut short.
	MaxBytes int64
}

// NewHTTPFetcher creates a new instance of HTTPFetcher with configured timeouts.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		MaxBytes: config.MaxHTTPResponseSize,
	}
}

// Fetch downloads the vCard stream at src.Location.
// Query parameters are stripped from logs since they may carry tokens.
// Reading past MaxBytes fails with config.ErrResponseTooLarge.
func (f *HTTPFetcher) Fetch(ctx context.Context, src Source) (io.ReadCloser, error) {
	u, err := url.Parse(src.Location)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, redactURL(u)),
	)
	log.Debug("Initiating vCard download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	if src.User != "" || src.Password != "" {
		req.SetBasicAuth(src.User, src.Password)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error during fetch: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		log.Warn("Server returned error status", slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("server returned unexpected status: %s", resp.Status)
	}

	log.Info("vCards downloading", slog.Int64("content_length", resp.ContentLength))

	limit := f.MaxBytes
	if limit <= 0 {
		limit = config.MaxHTTPResponseSize
	}
	return &cappedBody{
		body:      resp.Body,
		r:         io.LimitReader(resp.Body, limit+1),
		remaining: limit,
	}, nil
}

var errResponseTooLarge = errors.New(config.ErrResponseTooLarge)

// cappedBody reads at most one byte past the limit; seeing that byte means
// the response was too large.
type cappedBody struct {
	body      io.Closer
	r         io.Reader
	remaining int64
}

func (c *cappedBody) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, errResponseTooLarge
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return 0, errResponseTooLarge
	}
	return n, err
}

func (c *cappedBody) Close() error { return c.body.Close() }

// redactURL keeps scheme, host and path only.
func redactURL(u *url.URL) string {
	return u.Scheme + config.SchemeSeparator + u.Host + u.Path
}
