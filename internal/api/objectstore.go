package api

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/valyala/fasthttp"

	"tantalus-boxing/internal/config"
	"tantalus-boxing/internal/constants"
)

type ObjectStoreClient struct {
	baseURL string
	apiKey  string
	bucket  string
	client  *fasthttp.Client
}

func NewObjectStoreClient(cfg *config.Config) *ObjectStoreClient {
	return &ObjectStoreClient{
		baseURL: strings.TrimRight(cfg.ObjectStoreURL, "/"),
		apiKey:  cfg.ObjectStoreKey,
		bucket:  cfg.MediaBucket,
		client:  newClient(constants.ObjectStoreTimeout),
	}
}

type uploadResponse struct {
	Key string `json:"Key"`
}

// Upload streams size bytes of body to path inside the media bucket and
// returns the object's public URL.
func (c *ObjectStoreClient) Upload(ctx context.Context, path, contentType string, body io.Reader, size int64) (string, error) {
	escaped := escapePath(path)

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, escaped))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(contentType)
	req.Header.Set("x-upsert", "false")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.SetBodyStream(body, int(size))

	if _, err := doRequest[uploadResponse](ctx, c.client, "object store", req, constants.ObjectStoreTimeout); err != nil {
		return "", err
	}
	return c.PublicURL(path), nil
}

func (c *ObjectStoreClient) PublicURL(path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, c.bucket, escapePath(path))
}

func escapePath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
