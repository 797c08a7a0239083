package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/agentscope/internal/tlsutil"
)

// Fetcher downloads remote media with a request rate limit and a size cap.
// Each Fetch is a single attempt.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	maxBytes int64
	logger   *zap.Logger
}

// NewFetcher 创建远程媒体下载器。client 为 nil 时按 FetchTimeout 新建。
func NewFetcher(cfg Config, client *http.Client, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = tlsutil.HTTPClient(cfg.FetchTimeout)
	}
	limit := rate.Inf
	if cfg.FetchRateLimit > 0 {
		limit = rate.Limit(cfg.FetchRateLimit)
	}
	burst := cfg.FetchBurst
	if burst <= 0 {
		burst = 1
	}
	return &Fetcher{
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		maxBytes: cfg.MaxBytes,
		logger:   logger.With(zap.String("component", "media_fetcher")),
	}
}

// StatusError is a non-200 response from a media host.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

// Fetch downloads url and returns its body and media type. The media type
// comes from Content-Type when present and is sniffed otherwise.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("wait for fetch slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &StatusError{URL: url, Status: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", url, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("fetch %s: body exceeds %d bytes", url, f.maxBytes)
	}

	mediaType := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil && mt != "application/octet-stream" {
			mediaType = mt
		}
	}
	if mediaType == "" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}

	f.logger.Debug("fetched remote media",
		zap.String("url", url),
		zap.String("media_type", mediaType),
		zap.Int("bytes", len(data)))

	return data, mediaType, nil
}
