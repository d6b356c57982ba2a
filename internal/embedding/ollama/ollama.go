// Package ollama implements the embedder against a locally running
// model server. It speaks the OpenAI-compatible /v1/embeddings endpoint
// and falls back to the Ollama-native response shape.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"docqa/internal/domain"
)

// Client is an embeddings client for an OpenAI-compatible local server.
type Client struct {
	baseURL    string
	model      string
	batchSize  int
	client     *http.Client
	maxRetries int

	mu        sync.Mutex
	dimension int
}

// Config configures the embeddings client.
type Config struct {
	BaseURL   string
	Model     string
	BatchSize int
	Timeout   time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: t},
		maxRetries: 5,
	}
}

// ModelID identifies the embedding model for index pinning. Vectors
// produced under a different ModelID live in a different space.
func (c *Client) ModelID() string { return "ollama/" + c.model }

// Dimension reports the vector size, probing the model once if needed.
func (c *Client) Dimension(ctx context.Context) (int, error) {
	c.mu.Lock()
	d := c.dimension
	c.mu.Unlock()
	if d > 0 {
		return d, nil
	}
	if _, err := c.Embed(ctx, "dimension probe"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension, nil
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds several texts. Results are positionally equivalent
// to one-at-a-time calls; batching only saves round trips.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: blank input at index %d", domain.ErrEmbedding, i)
		}
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.request(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) request(ctx context.Context, texts []string) ([][]float32, error) {
	body := map[string]any{"model": c.model, "input": texts}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := c.baseURL + "/v1/embeddings"

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt - 1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					_ = resp.Body.Close()
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(time.Duration(secs) * time.Second):
					}
					lastErr = fmt.Errorf("embeddings request failed: %s", resp.Status)
					continue
				}
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("embeddings request failed: %s", resp.Status)
			continue
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %s: %s", domain.ErrEmbedding, resp.Status, payload)
		}

		vecs, err := decodeVectors(payload, len(texts))
		if err != nil {
			lastErr = err
			continue
		}
		c.mu.Lock()
		if c.dimension == 0 {
			c.dimension = len(vecs[0])
		}
		c.mu.Unlock()
		return vecs, nil
	}
	return nil, fmt.Errorf("%w: after %d retries: %v", domain.ErrEmbedding, c.maxRetries, lastErr)
}

// decodeVectors tries the OpenAI-compatible response first, then the
// Ollama-native single-embedding shape.
func decodeVectors(payload []byte, want int) ([][]float32, error) {
	var openaiOut struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil && len(openaiOut.Data) == want {
		vecs := make([][]float32, want)
		for i, d := range openaiOut.Data {
			if len(d.Embedding) == 0 {
				return nil, fmt.Errorf("empty embedding at index %d", i)
			}
			vecs[i] = d.Embedding
		}
		return vecs, nil
	}
	var ollamaOut struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil && want == 1 && len(ollamaOut.Embedding) > 0 {
		return [][]float32{ollamaOut.Embedding}, nil
	}
	return nil, fmt.Errorf("no embedding returned")
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

var _ domain.Embedder = (*Client)(nil)
