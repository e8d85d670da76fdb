// Package mail はメール送信ゲートウェイへの HTTP クライアント。
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
)

// Gateway posts transactional email to {endpoint}/mail.
type Gateway struct {
	endpoint   string
	from       string
	httpClient *http.Client
	attempts   int
	delay      time.Duration
}

// Config configures Gateway.
type Config struct {
	Endpoint string
	From     string
	Timeout  time.Duration
	Attempts int
	Delay    time.Duration
}

func NewGateway(cfg Config) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 3
	}
	delay := cfg.Delay
	if delay < 0 {
		delay = 0
	}
	return &Gateway{
		endpoint:   strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		from:       strings.TrimSpace(cfg.From),
		httpClient: &http.Client{Timeout: timeout},
		attempts:   attempts,
		delay:      delay,
	}
}

var _ application.Mailer = (*Gateway)(nil)

type mailPayload struct {
	To      string         `json:"to"`
	From    string         `json:"from,omitempty"`
	Message messagePayload `json:"message"`
}

type messagePayload struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
}

// Send delivers message, retrying transient failures.
func (g *Gateway) Send(ctx context.Context, message application.MailMessage) error {
	if g.endpoint == "" {
		return errors.New("メール送信先が設定されていません")
	}
	to := strings.TrimSpace(message.To)
	if to == "" {
		return errors.New("宛先メールアドレスが空です")
	}
	body, err := json.Marshal(mailPayload{
		To:   to,
		From: g.from,
		Message: messagePayload{
			Subject: message.Subject,
			HTML:    message.HTML,
			Text:    message.Text,
		},
	})
	if err != nil {
		return fmt.Errorf("メール送信用ペイロードの作成に失敗: %w", err)
	}

	var lastErr error
	for i := 0; i < g.attempts; i++ {
		if lastErr = g.post(ctx, body); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if g.delay > 0 && i < g.attempts-1 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(g.delay):
			}
		}
	}
	return lastErr
}

func (g *Gateway) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/mail", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("メール送信リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("メール送信リクエストに失敗: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		return fmt.Errorf("メール送信でエラーが発生: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(message)))
	}
	return nil
}
