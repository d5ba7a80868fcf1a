// Package auth provides Discord OAuth2 login and cookie session management.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	defaultDiscordAPIBase = "https://discord.com/api/v10"
	discordAuthURL        = "https://discord.com/oauth2/authorize"
	discordTokenURL       = "https://discord.com/api/oauth2/token"
)

// ErrNotGuildMember is returned when the user has not joined the configured guild.
var ErrNotGuildMember = errors.New("user is not a member of the guild")

// DiscordConfig holds the Discord OAuth2 application settings.
type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	GuildID      string
	Scopes       []string
	// APIBaseURL overrides the Discord REST API base, mainly for tests.
	APIBaseURL string
	// Endpoint overrides the OAuth2 endpoint, mainly for tests.
	Endpoint *oauth2.Endpoint
}

// DefaultDiscordConfig returns a DiscordConfig that can read guild roles.
func DefaultDiscordConfig(clientID, clientSecret, redirectURL, guildID string) DiscordConfig {
	return DiscordConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		GuildID:      guildID,
		Scopes:       []string{"identify", "guilds.members.read"},
		APIBaseURL:   defaultDiscordAPIBase,
	}
}

// Discord is the OAuth2 client used to sign users in.
type Discord struct {
	oauth2Config oauth2.Config
	apiBase      string
	guildID      string
	client       *http.Client
	logger       zerolog.Logger
}

// NewDiscord creates a Discord OAuth2 client. A nil httpClient uses a default
// client with a 10 second timeout.
func NewDiscord(cfg DiscordConfig, httpClient *http.Client, logger zerolog.Logger) (*Discord, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("discord client id and secret are required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("discord redirect url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultDiscordAPIBase
	}

	endpoint := oauth2.Endpoint{
		AuthURL:   discordAuthURL,
		TokenURL:  discordTokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}

	d := &Discord{
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       cfg.Scopes,
		},
		apiBase: strings.TrimRight(cfg.APIBaseURL, "/"),
		guildID: cfg.GuildID,
		client:  httpClient,
		logger:  logger.With().Str("component", "discord_oauth").Logger(),
	}

	d.logger.Info().Str("guild_id", cfg.GuildID).Msg("discord oauth client initialized")
	return d, nil
}

// GenerateState generates a cryptographically secure random state parameter.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AuthorizationURL returns the URL to redirect users to for consent.
func (d *Discord) AuthorizationURL(state string) string {
	return d.oauth2Config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "none"))
}

// Exchange exchanges an authorization code for an access token.
func (d *Discord) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := d.oauth2Config.Exchange(d.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return token, nil
}

// Identity is the Discord account behind a login together with its guild roles.
type Identity struct {
	ID       string
	Username string
	Avatar   string
	// Roles is empty when the user has not joined the guild.
	Roles []string
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

type discordMember struct {
	Nick  string   `json:"nick"`
	Roles []string `json:"roles"`
}

// FetchIdentity loads the user and, when a guild is configured, the user's roles in it.
func (d *Discord) FetchIdentity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	client := d.oauth2Config.Client(d.clientContext(ctx), token)

	var user discordUser
	if err := d.getJSON(ctx, client, "/users/@me", &user); err != nil {
		return nil, fmt.Errorf("fetch discord user: %w", err)
	}
	if user.ID == "" {
		return nil, errors.New("discord user response has no id")
	}

	identity := &Identity{
		ID:       user.ID,
		Username: user.Username,
		Avatar:   user.Avatar,
		Roles:    []string{},
	}
	if user.GlobalName != "" {
		identity.Username = user.GlobalName
	}

	if d.guildID == "" {
		return identity, nil
	}

	var member discordMember
	err := d.getJSON(ctx, client, "/users/@me/guilds/"+d.guildID+"/member", &member)
	switch {
	case errors.Is(err, ErrNotGuildMember):
		d.logger.Debug().Str("owner_id", user.ID).Msg("user is not in the guild")
	case err != nil:
		return nil, fmt.Errorf("fetch guild member: %w", err)
	default:
		identity.Roles = append(identity.Roles, member.Roles...)
	}

	return identity, nil
}

func (d *Discord) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotGuildMember
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (d *Discord) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, d.client)
}
