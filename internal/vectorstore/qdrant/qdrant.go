// Package qdrant mirrors a saved index into a Qdrant collection over its
// REST API. The mirror is best-effort and never a source of truth; the file
// store remains authoritative.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"segsearch/internal/domain"
)

// Mirror is a minimal REST client to Qdrant using cosine distance.
type Mirror struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// Config contains connection details for the Qdrant mirror.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewMirror creates a Qdrant mirror client.
func NewMirror(cfg Config) *Mirror {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Mirror{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Push recreates the collection and uploads all entries of the index.
// Dropping first keeps the mirror free of stale points when the index
// shrinks after a chapter re-index.
func (m *Mirror) Push(ctx context.Context, index *domain.Index) error {
	if index == nil || index.Len() == 0 {
		return errors.New("nothing to mirror: index is empty")
	}
	if err := m.dropCollection(ctx); err != nil {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     index.Dimension,
			"distance": "Cosine",
		},
	}
	if err := m.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", m.url, m.collection), body, nil); err != nil {
		return err
	}

	points := make([]map[string]any, 0, index.Len())
	for i, e := range index.Entries {
		points = append(points, map[string]any{
			"id":     i + 1,
			"vector": e.Vector,
			"payload": map[string]any{
				"segment_id": e.SegmentID,
				"kap_nr":     e.KapNr,
				"kap_titel":  e.KapTitel,
				"seg_nr":     e.SegNr,
				"text":       e.Text,
			},
		})
	}
	upsert := map[string]any{"points": points}
	return m.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", m.url, m.collection), upsert, nil)
}

// dropCollection deletes the collection; a collection that does not exist
// yet is not an error.
func (m *Mirror) dropCollection(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", m.url, m.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	if m.apiKey != "" {
		req.Header.Set("api-key", m.apiKey)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("qdrant DELETE %s failed: %s", url, resp.Status)
	}
	return nil
}

// Search queries the mirrored collection directly, bypassing the file store.
func (m *Mirror) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, &domain.ValidationError{Reason: "topK must be positive"}
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := m.do(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", m.url, m.collection), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		res := domain.SearchResult{Score: r.Score}
		if v, ok := r.Payload["segment_id"].(string); ok {
			res.SegmentID = v
		}
		if v, ok := r.Payload["kap_nr"].(float64); ok {
			res.KapNr = int(v)
		}
		if v, ok := r.Payload["kap_titel"].(string); ok {
			res.KapTitel = v
		}
		if v, ok := r.Payload["seg_nr"].(float64); ok {
			res.SegNr = int(v)
		}
		if v, ok := r.Payload["text"].(string); ok {
			res.Text = v
		}
		results = append(results, res)
	}
	return results, nil
}

func (m *Mirror) do(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("api-key", m.apiKey)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
