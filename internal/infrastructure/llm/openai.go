// Package llm calls an OpenAI compatible chat completions endpoint to draft area reports.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
)

const (
	// errorExcerptBytes caps the upstream body kept in an error. The error ends up in the
	// area's generationError and in the back office.
	errorExcerptBytes = 512

	defaultModel  = "gpt-4o-mini"
	systemMessage = "Eres un consultor de negocio. Redacta informes de diagnóstico claros y accionables en español, en formato Markdown."
)

// HTTPClient is the subset of *http.Client used by Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements application.TextGenerator.
type Client struct {
	http        HTTPClient
	endpoint    string
	apiKey      string
	model       string
	temperature float64
}

// Config configures Client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

func NewClient(cfg Config, client HTTPClient) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.4
	}
	return &Client{
		http:        client,
		endpoint:    normalizeEndpoint(cfg.BaseURL),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: temperature,
	}
}

var _ application.TextGenerator = (*Client)(nil)

// Generate sends prompt as the user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("OpenAI API キーが設定されていません")
	}
	payload := map[string]any{
		"model":       c.model,
		"temperature": c.temperature,
		"messages": []map[string]string{
			{"role": "system", "content": systemMessage},
			{"role": "user", "content": prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("生成APIへのリクエストに失敗: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, errorExcerptBytes+utf8.UTFMax))
		return "", fmt.Errorf("生成APIがエラーを返しました: status=%d body=%s", resp.StatusCode, errorExcerpt(b))
	}
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		return "", fmt.Errorf("生成APIの応答を解析できません: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("生成APIの応答に choices がありません")
	}
	return cc.Choices[0].Message.Content, nil
}

// errorExcerpt trims body to errorExcerptBytes without splitting a UTF-8 sequence.
func errorExcerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= errorExcerptBytes {
		return text
	}
	cut := errorExcerptBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func normalizeEndpoint(base string) string {
	endpoint := strings.TrimRight(strings.TrimSpace(base), "/")
	if endpoint == "" {
		endpoint = "https://api.openai.com"
	}
	switch {
	case strings.HasSuffix(endpoint, "/chat/completions"):
		return endpoint
	case strings.HasSuffix(endpoint, "/v1"):
		return endpoint + "/chat/completions"
	default:
		return endpoint + "/v1/chat/completions"
	}
}
