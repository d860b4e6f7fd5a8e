// Package objectstore uploads files to a Supabase-storage compatible bucket.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/port"
)

const defaultTimeout = 30 * time.Second

var _ port.ObjectStore = (*Bucket)(nil)

type Bucket struct {
	baseURL string
	bucket  string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

func NewBucket(baseURL, bucket, apiKey string, httpClient *http.Client, logger *zap.Logger) *Bucket {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Bucket{
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
		apiKey:  apiKey,
		http:    httpClient,
		logger:  logger,
	}
}

// Upload stores body as name and returns the object's public URL. Existing
// objects are never overwritten.
func (b *Bucket) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	object := url.PathEscape(b.bucket) + "/" + url.PathEscape(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/storage/v1/object/"+object, body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("apikey", b.apiKey)
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("x-upsert", "false")

	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("upload %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	b.logger.Debug("object stored", zap.String("bucket", b.bucket), zap.String("name", name))
	return b.PublicURL(name), nil
}

func (b *Bucket) PublicURL(name string) string {
	return b.baseURL + "/storage/v1/object/public/" + url.PathEscape(b.bucket) + "/" + url.PathEscape(name)
}
