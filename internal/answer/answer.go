// Package answer is the optional generative layer: it composes an answer
// from retrieved segments and reviews segment boundaries. Its output is
// advisory only; acceptance of any segmentation is gated by the
// deterministic validator, never by the model.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"segsearch/internal/domain"
)

// Config configures the chat-completion client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	AnswerModel string
	ReviewModel string
}

// Client wraps chat completions for answering and reviewing.
type Client struct {
	client      *openai.Client
	answerModel string
	reviewModel string
}

// NewClient creates a chat client from the configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.AnswerModel == "" {
		cfg.AnswerModel = "gpt-4o-mini"
	}
	if cfg.ReviewModel == "" {
		cfg.ReviewModel = cfg.AnswerModel
	}
	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		answerModel: cfg.AnswerModel,
		reviewModel: cfg.ReviewModel,
	}, nil
}

// Answer composes a concise answer to the question, grounded strictly in
// the retrieved segments.
func (c *Client) Answer(ctx context.Context, question string, results []domain.SearchResult) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", &domain.ValidationError{Reason: "question is empty"}
	}
	if len(results) == 0 {
		return "", domain.ErrEmptyIndex
	}
	var contexts []string
	for _, r := range results {
		contexts = append(contexts, fmt.Sprintf("%s (Abschnitt %d):\n%s", r.KapTitel, r.SegNr, r.Text))
	}
	prompt := fmt.Sprintf(
		"Frage des Nutzers:\n%s\n\nHier sind relevante Textstellen:\n\n%s\n\n"+
			"Antworte prägnant und klar in eigenen Worten, aber stütze dich NUR auf die Textstellen.",
		question, strings.Join(contexts, "\n\n"))
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.answerModel,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Du bist ein Assistent, der Fragen ausschließlich anhand der gelieferten Textstellen beantwortet.",
			},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("answer completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("answer completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Finding is one boundary concern raised by the review model.
type Finding struct {
	Type     string `json:"type"`
	SegID    string `json:"seg_id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Review is the outcome of a semantic boundary review.
type Review struct {
	KapNr    int       `json:"kap_nr"`
	KapTitel string    `json:"kap_titel"`
	Findings []Finding `json:"findings"`
}

const reviewContextChars = 160

// ReviewSegments asks the review model to assess segment boundaries in
// context. It reports concerns only; it never alters segments.
func (c *Client) ReviewSegments(ctx context.Context, kapNr int, kapTitel, original string, segments []domain.Segment) (*Review, error) {
	payload, err := buildReviewPayload(original, segments)
	if err != nil {
		return nil, err
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(
		"Überprüfe die Segmentgrenzen des folgenden Kapitels. Bewerte, ob Segmente an sinnvollen"+
			" Stellen enden und inhaltliche Zusammenhänge erhalten bleiben. Melde ausschließlich"+
			" problematische Fälle. Antworte als JSON-Objekt mit den Feldern kap_nr, kap_titel und"+
			" findings; findings ist eine Liste von Objekten mit type, seg_id, severity"+
			" (low/medium/high) und message. Ohne Auffälligkeiten gib eine leere Liste zurück.\n"+
			"Kapitelnummer: %d\nKapiteltitel: %s\nSegmente: %s",
		kapNr, kapTitel, payloadJSON)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.reviewModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Du bist eine prüfende Instanz, die Segmentgrenzen bewertet und prägnant dokumentiert.",
			},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("review completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("review completion returned no choices")
	}
	return parseReview(resp.Choices[0].Message.Content, kapNr, kapTitel)
}

type reviewSegment struct {
	ID               string `json:"id"`
	SegNr            int    `json:"seg_nr"`
	WordCount        int    `json:"word_count"`
	Text             string `json:"text"`
	PrecedingContext string `json:"preceding_context"`
	FollowingContext string `json:"following_context"`
}

func buildReviewPayload(original string, segments []domain.Segment) ([]reviewSegment, error) {
	payload := make([]reviewSegment, 0, len(segments))
	cursor := 0
	for _, seg := range segments {
		end := cursor + len(seg.Text)
		if end > len(original) || original[cursor:end] != seg.Text {
			return nil, fmt.Errorf("segment %s does not match the original text at offset %d", seg.ID, cursor)
		}
		before := original[max(0, cursor-reviewContextChars):cursor]
		after := original[end:min(len(original), end+reviewContextChars)]
		payload = append(payload, reviewSegment{
			ID:               seg.ID,
			SegNr:            seg.SegNr,
			WordCount:        seg.WordCount,
			Text:             seg.Text,
			PrecedingContext: before,
			FollowingContext: after,
		})
		cursor = end
	}
	return payload, nil
}

func parseReview(raw string, kapNr int, kapTitel string) (*Review, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	var review Review
	if err := json.Unmarshal([]byte(raw), &review); err != nil {
		return nil, fmt.Errorf("review response is not valid JSON: %w", err)
	}
	if review.KapNr == 0 {
		review.KapNr = kapNr
	}
	if review.KapTitel == "" {
		review.KapTitel = kapTitel
	}
	for i := range review.Findings {
		if review.Findings[i].Severity == "" {
			review.Findings[i].Severity = "medium"
		}
	}
	return &review, nil
}
