package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/tartampluch/go-bridgedays/internal/config"
)

// ErrTableTooLarge is returned while reading a table larger than the limit.
var ErrTableTooLarge = errors.New(config.ErrTableTooLarge)

// TableFetcher retrieves a remote holiday table document.
type TableFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPFetcher downloads tables over http or https.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
	Log      *zap.Logger
}

// NewHTTPFetcher returns a fetcher with the default timeout and size limit.
func NewHTTPFetcher(log *zap.Logger) *HTTPFetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: config.HTTPTimeout},
		MaxBytes: config.MaxHTTPResponseSize,
		Log:      log.With(zap.String(config.LogKeyComponent, config.CompFetcher)),
	}
}

// Fetch opens the table at targetURL. Query strings are kept out of the log.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (io.ReadCloser, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}
	log := f.Log.With(zap.String(config.LogKeyURL, u.Scheme+"://"+u.Host+u.Path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrRequestBuild, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.MimeTableAccept)

	log.Debug(config.MsgTableFetch)
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		log.Warn(config.MsgServerStatus, zap.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("%s: %s", config.ErrUnexpectedStatus, resp.Status)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = config.MaxHTTPResponseSize
	}
	if resp.ContentLength > limit {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %d bytes", ErrTableTooLarge, resp.ContentLength)
	}

	log.Info(config.MsgTableFetchDone, zap.Int64(config.LogKeySizeBytes, resp.ContentLength))
	return &cappedBody{body: resp.Body, left: limit}, nil
}

// cappedBody fails once more than left bytes have been read.
type cappedBody struct {
	body io.ReadCloser
	left int64
}

func (c *cappedBody) Read(p []byte) (int, error) {
	if c.left < 0 {
		return 0, ErrTableTooLarge
	}
	// Read one byte past the budget to tell "exactly at the limit" from "over".
	if int64(len(p)) > c.left+1 {
		p = p[:c.left+1]
	}
	n, err := c.body.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n + int(c.left), ErrTableTooLarge
	}
	return n, err
}

func (c *cappedBody) Close() error { return c.body.Close() }
