package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tubechat/tubechat/pkg/config"
)

// CompletionStats is the statistics tuple carried by a channel completion
// notification. Processed counts already-cached plus newly processed videos.
type CompletionStats struct {
	ChannelTitle string
	Status       string // completed | failed
	Processed    int
	Existing     int
	NoTranscript int
	Failed       int
	Total        int
	ErrorMessage string
}

// Client is a minimal client for the email provider. A nil client (no API
// key configured) disables notifications.
type Client struct {
	apiKey  string
	baseURL string
	from    string
	client  *http.Client
}

// NewClient creates an email client, or nil when no API key is configured
func NewClient(cfg *config.EmailConfig) *Client {
	if cfg == nil || cfg.APIKey == "" {
		return nil
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.resend.com"
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: base,
		from:    cfg.From,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendChannelCompletion notifies the requesting user that a channel run
// finished. The template branches on Status.
func (c *Client) SendChannelCompletion(ctx context.Context, to string, stats CompletionStats) error {
	if c == nil || to == "" {
		return nil
	}

	subject := fmt.Sprintf("Your channel %q is ready to chat", stats.ChannelTitle)
	body := fmt.Sprintf(
		`<p>Processing for <strong>%s</strong> finished.</p>
<ul>
<li>Videos processed: %d</li>
<li>Already indexed: %d</li>
<li>No captions: %d</li>
<li>Failed: %d</li>
<li>Total: %d</li>
</ul>`,
		stats.ChannelTitle, stats.Processed, stats.Existing, stats.NoTranscript, stats.Failed, stats.Total,
	)
	if stats.Status == "failed" {
		subject = fmt.Sprintf("Processing failed for channel %q", stats.ChannelTitle)
		body = fmt.Sprintf(
			`<p>Processing for <strong>%s</strong> failed.</p><p>%s</p><p>The run will be retried automatically.</p>`,
			stats.ChannelTitle, stats.ErrorMessage,
		)
	}

	payload := sendRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    body,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}
	return nil
}
