package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"tantalus-boxing/internal/config"
	"tantalus-boxing/internal/constants"
)

type LogEntry struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Service   string         `json:"service"`
}

type LogStoreClient struct {
	url    string
	apiKey string
	client *fasthttp.Client
}

func NewLogStoreClient(cfg *config.Config) *LogStoreClient {
	return &LogStoreClient{
		url:    cfg.LogStoreURL,
		apiKey: cfg.LogStoreKey,
		client: newClient(constants.LogSinkTimeout),
	}
}

// Enabled is false when no log store URL is configured.
func (c *LogStoreClient) Enabled() bool {
	return c != nil && c.url != ""
}

func (c *LogStoreClient) Send(ctx context.Context, entry LogEntry) error {
	if !c.Enabled() {
		return nil
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("apikey", c.apiKey)
	}
	req.SetBodyRaw(payload)

	_, err = doRequest[noBody](ctx, c.client, "log store", req, constants.LogSinkTimeout)
	return err
}
