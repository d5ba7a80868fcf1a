// Package notifications delivers token issuance events to Discord webhooks
// and message queues.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/rs/zerolog"
)

// DiscordConfig configures the Discord webhook sink.
type DiscordConfig struct {
	WebhookURL string
	Username   string
	AvatarURL  string
}

// DiscordMessage represents a Discord webhook message.
type DiscordMessage struct {
	Content   string         `json:"content,omitempty"`
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Embeds    []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents a Discord embed object.
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

// DiscordEmbedField represents a field in a Discord embed.
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// DiscordEmbedFooter represents a footer in a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

// Discord embed colors (decimal values)
const (
	DiscordColorGreen = 3066993  // #2ECC71
	DiscordColorBlue  = 3447003  // #3498DB
	DiscordColorGold  = 15844367 // #F1C40F
)

// DiscordSender posts token issuance events to a Discord webhook.
type DiscordSender struct {
	config DiscordConfig
	client *http.Client
	logger zerolog.Logger
}

// NewDiscordSender creates a Discord webhook sender. The URL should already
// have passed ValidateWebhookURL.
func NewDiscordSender(cfg DiscordConfig, client *http.Client, logger zerolog.Logger) (*DiscordSender, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("discord webhook URL is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DiscordSender{
		config: cfg,
		client: client,
		logger: logger.With().Str("component", "discord_webhook").Logger(),
	}, nil
}

// Name identifies the sink in logs.
func (s *DiscordSender) Name() string { return "discord" }

// Send posts a message to the webhook.
func (s *DiscordSender) Send(ctx context.Context, msg *DiscordMessage) error {
	if msg.Username == "" {
		msg.Username = s.config.Username
	}
	if msg.AvatarURL == "" {
		msg.AvatarURL = s.config.AvatarURL
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal discord message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord request: %w", err)
	}
	defer resp.Body.Close()

	// Discord webhooks return 204 No Content on success
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord API error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

// NotifyTokensIssued announces issued tokens. Token strings are masked.
func (s *DiscordSender) NotifyTokensIssued(ctx context.Context, event models.TokensIssuedEvent) error {
	if err := s.Send(ctx, BuildTokensIssuedMessage(event)); err != nil {
		return err
	}
	s.logger.Debug().Str("owner_id", event.OwnerID).Int("tokens", len(event.Tokens)).Msg("discord notification sent")
	return nil
}

// BuildTokensIssuedMessage renders the webhook message for an event.
func BuildTokensIssuedMessage(event models.TokensIssuedEvent) *DiscordMessage {
	who := event.Username
	if who == "" {
		who = event.OwnerID
	}

	embed := DiscordEmbed{
		Title:       "Tokens Claimed",
		Description: fmt.Sprintf("**%s** (<@%s>) claimed %d token(s)", who, event.OwnerID, len(event.Tokens)),
		Color:       DiscordColorGreen,
		Footer:      &DiscordEmbedFooter{Text: "modlicense"},
		Timestamp:   event.IssuedAt.UTC().Format(time.RFC3339),
	}
	if event.Source == models.IssueSourceAdminGrant {
		embed.Title = "Token Granted"
		embed.Description = fmt.Sprintf("<@%s> granted %d token(s) to <@%s>", event.GrantedBy, len(event.Tokens), event.OwnerID)
		embed.Color = DiscordColorBlue
	}

	for _, tok := range event.Tokens {
		if tok.Tier == models.TopTier() && event.Source == models.IssueSourceClaim {
			embed.Color = DiscordColorGold
		}
		expires := "never"
		if tok.ExpiresAt != nil {
			expires = fmt.Sprintf("<t:%d:R>", tok.ExpiresAt.Unix())
		}
		embed.Fields = append(embed.Fields, DiscordEmbedField{
			Name:   fmt.Sprintf("%s · %s", tok.Tier, tok.DurationLabel),
			Value:  fmt.Sprintf("`%s`, expires %s", MaskToken(tok.Token), expires),
			Inline: true,
		})
	}

	return &DiscordMessage{Embeds: []DiscordEmbed{embed}}
}

// MaskToken keeps the first and last four characters of a token.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
