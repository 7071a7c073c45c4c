package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// The API speaks two wire formats: Gemini-style image models answer through
// chat completions with images attached to the assistant message, while
// nano-banana models use the OpenAI images/generations endpoint.

type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type generationsPayload struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type apiResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Images  []struct {
				ImageURL imageURL `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

var dataURIPattern = regexp.MustCompile(`data:image/([^;]+);base64,([A-Za-z0-9+/=]+)`)

func (g *Generator) endpoint() string {
	base := strings.TrimRight(g.cfg.BaseURL, "/")
	if g.usesGenerationsAPI() {
		return base + "/v1/images/generations"
	}
	return base + "/v1/chat/completions"
}

func (g *Generator) usesGenerationsAPI() bool {
	return strings.Contains(strings.ToLower(g.cfg.Model), "nano-banana")
}

func (g *Generator) buildPayload(prompt string, referenceImages []string) (any, error) {
	if g.usesGenerationsAPI() {
		return generationsPayload{Model: g.cfg.Model, Prompt: prompt, N: 1, Size: "1024x1024"}, nil
	}

	text := "Generate a festival blessing image: " + prompt
	if len(referenceImages) == 0 {
		return chatPayload{
			Model:       g.cfg.Model,
			Messages:    []chatMessage{{Role: "user", Content: text}},
			MaxTokens:   1000,
			Temperature: 0.7,
		}, nil
	}

	parts := []contentPart{{Type: "text", Text: text}}
	for _, ref := range referenceImages {
		if !strings.HasPrefix(ref, "data:image/") {
			ref = "data:image/png;base64," + ref
		}
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: ref}})
	}
	return chatPayload{
		Model:       g.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		MaxTokens:   1000,
		Temperature: 0.7,
	}, nil
}

// attempt performs one API call with one key and turns the response into a
// saved asset.
func (g *Generator) attempt(ctx context.Context, apiKey, prompt string, referenceImages []string) (*Asset, error) {
	payload, err := g.buildPayload(prompt, referenceImages)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image api request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	parsed := &apiResponse{}
	if err := json.Unmarshal(respBody, parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests ||
			(resp.StatusCode == http.StatusPaymentRequired && strings.Contains(strings.ToLower(msg), "insufficient")) {
			return nil, &quotaError{status: resp.StatusCode, message: msg}
		}
		return nil, fmt.Errorf("image api error: %s", msg)
	}

	local, err := g.extractImage(ctx, parsed)
	if err != nil {
		return nil, err
	}
	return g.finishAsset(ctx, local), nil
}

// extractImage finds the image in whichever shape the response used and
// saves it locally.
func (g *Generator) extractImage(ctx context.Context, resp *apiResponse) (string, error) {
	// OpenAI generations format: plain URLs or b64_json blobs.
	for _, item := range resp.Data {
		if item.URL != "" {
			return g.downloadImage(ctx, item.URL)
		}
		if item.B64JSON != "" {
			return g.saveBase64(item.B64JSON, "png")
		}
	}

	// Gemini chat format: message.images data URIs, then inline content.
	for _, choice := range resp.Choices {
		for _, img := range choice.Message.Images {
			if format, data, ok := splitDataURI(img.ImageURL.URL); ok {
				return g.saveBase64(data, format)
			}
			if img.ImageURL.URL != "" {
				return g.downloadImage(ctx, img.ImageURL.URL)
			}
		}
		if m := dataURIPattern.FindStringSubmatch(choice.Message.Content); m != nil {
			return g.saveBase64(m[2], m[1])
		}
	}

	return "", ErrNoImage
}

func splitDataURI(uri string) (format, data string, ok bool) {
	m := dataURIPattern.FindStringSubmatch(uri)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func (g *Generator) saveBase64(encoded, format string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode image data: %w", err)
	}
	return g.saveImage(data, normalizeExt(format))
}

func (g *Generator) downloadImage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	return g.saveImage(data, "png")
}
