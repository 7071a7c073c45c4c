package blessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/chengmaomao/sendblessings/internal/config"
)

// GeminiGenerator implements TextGenerator on top of Google's Gemini API.
// When search grounding is enabled the model may consult Google Search for
// holiday customs before answering.
type GeminiGenerator struct {
	client          *genai.Client
	log             *slog.Logger
	modelName       string
	searchGrounding bool
	maxRetries      int
	retryDelay      time.Duration
}

// NewGeminiGenerator creates a Gemini-backed text generator.
func NewGeminiGenerator(ctx context.Context, cfg config.BlessingConfig, log *slog.Logger) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized", "model", cfg.Model, "search_grounding", cfg.SearchGrounding)

	return &GeminiGenerator{
		client:          client,
		log:             logger,
		modelName:       cfg.Model,
		searchGrounding: cfg.SearchGrounding,
		maxRetries:      cfg.MaxRetries,
		retryDelay:      cfg.RetryDelay,
	}, nil
}

// GenerateText asks the model for a completion, retrying transient API
// errors a bounded number of times.
func (g *GeminiGenerator) GenerateText(ctx context.Context, systemInstruction, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}}
	}
	if g.searchGrounding {
		cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var resp *genai.GenerateContentResponse
	var err error
	for i := 0; i <= g.maxRetries; i++ {
		resp, err = g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
		if err == nil {
			break
		}

		var apiErr *genai.APIError
		retriable := errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503)
		if !retriable || i == g.maxRetries {
			return "", fmt.Errorf("gemini API call failed: %w", err)
		}

		g.log.WarnContext(ctx, "Gemini API call failed, retrying", "attempt", i+1, "max_retries", g.maxRetries, "delay", g.retryDelay, "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(g.retryDelay):
		}
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return "", fmt.Errorf("gemini request blocked: %s", resp.PromptFeedback.BlockReasonMessage)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}
