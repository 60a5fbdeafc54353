// Package recommend asks an OpenAI-compatible chat completions endpoint for
// short buyer-facing product recommendations.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gryadka/backend-go/internal/config"
	"github.com/gryadka/backend-go/internal/database/models"
)

const (
	systemPrompt = "You are an expert at describing farm products. Write short, appealing recommendations " +
		"for buyers that highlight what makes the product unique."
	temperature = 0.7
	maxTokens   = 1500
	maxBodyLog  = 512
)

var ErrEmptyRecommendation = errors.New("empty recommendation")

type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
	logger     *slog.Logger
}

// NewClient returns nil when no API key is configured.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if cfg.RecommendationAPIKey == "" {
		return nil
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RecommendationTimeout},
		url:        cfg.RecommendationAPIURL,
		apiKey:     cfg.RecommendationAPIKey,
		model:      cfg.RecommendationModel,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Recommend returns a three to four sentence recommendation for product.
func (c *Client) Recommend(ctx context.Context, product *models.Product) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(product)},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("recommendation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyLog))
		c.logger.Warn("⚠️ [Recommend] Upstream returned error", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("recommendation upstream status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode recommendation: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyRecommendation
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyRecommendation
	}
	return text, nil
}

func userPrompt(product *models.Product) string {
	var b strings.Builder
	b.WriteString("Based on the product information below, write a short recommendation for buyers ")
	b.WriteString("(3-4 sentences). Do not repeat the description; say something general and concrete.\n\n")
	b.WriteString("Product information:\n")
	fmt.Fprintf(&b, "Name: %s\n", product.Name)
	fmt.Fprintf(&b, "Category: %s\n", product.Category)
	if product.ShortDescription != nil && *product.ShortDescription != "" {
		fmt.Fprintf(&b, "Description: %s\n", *product.ShortDescription)
	}

	for _, field := range []struct{ key, label string }{
		{"origin", "Origin"},
		{"variety", "Variety"},
		{"harvest_date", "Harvest date"},
	} {
		if v, ok := product.Passport[field.key]; ok && v != nil && v != "" {
			fmt.Fprintf(&b, "%s: %v\n", field.label, v)
		}
	}

	if certs := certificationNames(product.Passport["certifications"]); len(certs) > 0 {
		fmt.Fprintf(&b, "Certifications: %s\n", strings.Join(certs, ", "))
	}

	return b.String()
}

func certificationNames(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	var names []string
	for _, item := range list {
		cert, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := cert["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}
