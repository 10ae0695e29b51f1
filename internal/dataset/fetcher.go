package dataset

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// TransferError reports a failed download. StatusCode is zero unless the
// server answered with a non-2xx status.
type TransferError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dataset: fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("dataset: fetch %s: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Fetcher retrieves a remote resource into a local file.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, dest string) error
}

// HTTPFetcher implements Fetcher over HTTP(S).
type HTTPFetcher struct {
	client *http.Client
	logger *log.Logger
}

// NewHTTPFetcher constructs a fetcher whose whole transfer is bounded by timeout.
func NewHTTPFetcher(timeout time.Duration, logger *log.Logger) *HTTPFetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   30 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}
}

// Fetch downloads sourceURL into dest. The body is streamed into a sibling
// temporary file which is renamed onto dest only after a complete write, so
// dest is either absent or whole. Any failure removes the temporary file.
func (f *HTTPFetcher) Fetch(ctx context.Context, sourceURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return &TransferError{URL: sourceURL, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return &TransferError{URL: sourceURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Printf("dataset: unexpected status %d for %s", resp.StatusCode, sourceURL)
		return &TransferError{URL: sourceURL, StatusCode: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".part-*")
	if err != nil {
		return &TransferError{URL: sourceURL, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return &TransferError{URL: sourceURL, Err: fmt.Errorf("write body: %w", err)}
	}
	if err := tmp.Sync(); err != nil {
		return &TransferError{URL: sourceURL, Err: fmt.Errorf("sync: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &TransferError{URL: sourceURL, Err: fmt.Errorf("close: %w", err)}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return &TransferError{URL: sourceURL, Err: fmt.Errorf("rename: %w", err)}
	}
	committed = true

	f.logger.Printf("dataset: fetched %d bytes from %s", written, sourceURL)
	return nil
}
