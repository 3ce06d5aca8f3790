package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/thanhhuy/storefront-backend/pkg/config"
)

// DiscordClient posts order announcements to a Discord webhook.
type DiscordClient struct {
	webhookURL string
	http       *http.Client
}

// NewDiscordClient builds a webhook poster. An empty URL yields a disabled
// client whose sends are no-ops.
func NewDiscordClient(cfg config.DiscordConfig) *DiscordClient {
	return &DiscordClient{
		webhookURL: cfg.WebhookURL,
		http:       &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether the client has a webhook to post to.
func (c *DiscordClient) Enabled() bool {
	return c.webhookURL != ""
}

type discordMessage struct {
	Content string `json:"content"`
}

// Send posts a plain-content message to the webhook.
func (c *DiscordClient) Send(ctx context.Context, content string) error {
	if !c.Enabled() {
		return nil
	}
	body, err := json.Marshal(discordMessage{Content: content})
	if err != nil {
		return fmt.Errorf("marshal discord message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}
