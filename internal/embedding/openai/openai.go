// Package openai provides an OpenAI-compatible embeddings client with
// bounded exponential backoff around transient failures.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"segsearch/internal/domain"
)

// Config configures the embeddings client. APIKeyEnv names the environment
// variable holding the credential; the key itself stays opaque to the core.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

// Client implements domain.Embedder over the OpenAI embeddings API.
// Embed is safe for concurrent use; the lazily discovered dimension is
// guarded by a mutex.
type Client struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int

	mu        sync.Mutex
	dimension int
}

// NewClient creates an embeddings client from the configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-large"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Name returns the embedding model identifier.
func (c *Client) Name() string { return c.model }

// Dimension returns the vector dimension, zero until the first successful
// call when not fixed by configuration.
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

// Embed returns the embedding vector for text, retrying transient failures
// with exponential backoff. After the retry budget is spent, the failure is
// surfaced as a domain.EmbeddingCallError.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt - 1)):
			}
		}
		vec, err := c.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var permanent *domain.ValidationError
		if errors.As(err, &permanent) {
			return nil, err
		}
		lastErr = err
	}
	return nil, &domain.EmbeddingCallError{Attempts: c.maxRetries + 1, Err: lastErr}
}

func (c *Client) embedOnce(ctx context.Context, text string) ([]float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}
	raw := resp.Data[0].Embedding
	vec := make([]float64, len(raw))
	for i, v := range raw {
		vec[i] = float64(v)
	}
	if err := c.adoptDimension(len(vec)); err != nil {
		return nil, err
	}
	return vec, nil
}

// adoptDimension fixes the dimension on the first vector seen and rejects
// drift on every later one, also across concurrent calls.
func (c *Client) adoptDimension(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dimension == 0 {
		c.dimension = n
		return nil
	}
	if n != c.dimension {
		return &domain.ValidationError{
			Reason: fmt.Sprintf("embedding dimension %d does not match configured %d", n, c.dimension),
		}
	}
	return nil
}

// retryDelay is exponential starting at 200ms, capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
