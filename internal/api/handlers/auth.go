package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/MacJediWizard/modlicense/internal/auth"
	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Authenticator is the OAuth2 identity provider used for login.
type Authenticator interface {
	AuthorizationURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchIdentity(ctx context.Context, token *oauth2.Token) (*auth.Identity, error)
}

// OwnerStore defines the owner persistence needed at login.
type OwnerStore interface {
	UpsertOwner(ctx context.Context, owner *models.Owner) error
}

// AuthHandler handles authentication-related HTTP endpoints.
type AuthHandler struct {
	provider      Authenticator
	sessions      *auth.SessionStore
	owners        OwnerStore
	policy        auth.RolePolicy
	redirectAfter string
	logger        zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. Users are sent to redirectAfter
// once signed in; an empty value redirects to "/".
func NewAuthHandler(provider Authenticator, sessions *auth.SessionStore, owners OwnerStore, policy auth.RolePolicy, redirectAfter string, logger zerolog.Logger) *AuthHandler {
	if redirectAfter == "" {
		redirectAfter = "/"
	}
	return &AuthHandler{
		provider:      provider,
		sessions:      sessions,
		owners:        owners,
		policy:        policy,
		redirectAfter: redirectAfter,
		logger:        logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterRoutes registers auth routes on the given router group.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/login", h.Login)
	r.GET("/callback", h.Callback)
	r.POST("/logout", h.Logout)
	r.GET("/me", h.Me)
}

// Login initiates the Discord authentication flow.
//
//	@Summary		Initiate login
//	@Description	Redirects to Discord for consent. Discord returns the user to /auth/callback.
//	@Tags			Auth
//	@Produce		html
//	@Success		307	"Redirect to Discord"
//	@Failure		500	{object}	ErrorResponse
//	@Router			/auth/login [get]
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate state")
		respondError(c, h.logger, err)
		return
	}

	if err := h.sessions.SetState(c.Request, c.Writer, state); err != nil {
		h.logger.Error().Err(err).Msg("failed to save state to session")
		respondError(c, h.logger, err)
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.provider.AuthorizationURL(state))
}

// Callback handles the Discord redirect after consent.
//
//	@Summary		OAuth2 callback
//	@Description	Verifies the state, exchanges the code, loads the Discord identity and guild roles and starts a session.
//	@Tags			Auth
//	@Param			code	query	string	true	"Authorization code"
//	@Param			state	query	string	true	"State parameter for CSRF protection"
//	@Success		307		"Redirect to the application"
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/auth/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		h.logger.Warn().
			Str("error", errParam).
			Str("description", c.Query("error_description")).
			Msg("discord returned error")
		respondInvalid(c, "login was not completed: "+errParam)
		return
	}

	state := c.Query("state")
	if state == "" {
		respondInvalid(c, "missing state parameter")
		return
	}

	savedState, err := h.sessions.PopState(c.Request, c.Writer)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to retrieve state from session")
		respondInvalid(c, "invalid session state")
		return
	}
	if subtle.ConstantTimeCompare([]byte(state), []byte(savedState)) != 1 {
		h.logger.Warn().Msg("state parameter mismatch")
		respondInvalid(c, "state mismatch")
		return
	}

	code := c.Query("code")
	if code == "" {
		respondInvalid(c, "missing authorization code")
		return
	}

	ctx := c.Request.Context()
	token, err := h.provider.Exchange(ctx, code)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to exchange authorization code")
		respondError(c, h.logger, authFailed(err))
		return
	}

	identity, err := h.provider.FetchIdentity(ctx, token)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch discord identity")
		respondError(c, h.logger, authFailed(err))
		return
	}

	if err := h.owners.UpsertOwner(ctx, models.NewOwner(identity.ID, identity.Username, identity.Avatar)); err != nil {
		h.logger.Error().Err(err).Str("owner_id", identity.ID).Msg("failed to record owner")
		respondError(c, h.logger, authFailed(err))
		return
	}

	user := &auth.SessionUser{
		OwnerID:         identity.ID,
		Username:        identity.Username,
		Avatar:          identity.Avatar,
		Roles:           identity.Roles,
		AuthenticatedAt: time.Now(),
	}
	if err := h.sessions.SetUser(c.Request, c.Writer, user); err != nil {
		h.logger.Error().Err(err).Msg("failed to save user to session")
		respondError(c, h.logger, authFailed(err))
		return
	}

	h.logger.Info().
		Str("owner_id", identity.ID).
		Int("roles", len(identity.Roles)).
		Msg("user authenticated successfully")

	c.Redirect(http.StatusTemporaryRedirect, h.redirectAfter)
}

// Logout terminates the user session.
//
//	@Summary		Logout
//	@Description	Clears the session cookie
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		500	{object}	ErrorResponse
//	@Security		SessionAuth
//	@Router			/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if user, err := h.sessions.GetUser(c.Request); err == nil {
		h.logger.Info().Str("owner_id", user.OwnerID).Msg("user logging out")
	}

	if err := h.sessions.ClearUser(c.Request, c.Writer); err != nil {
		h.logger.Error().Err(err).Msg("failed to clear session")
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// MeResponse is the response for the /auth/me endpoint.
type MeResponse struct {
	OwnerID         string    `json:"owner_id" example:"123456789012345678"`
	Username        string    `json:"username" example:"modder"`
	Avatar          string    `json:"avatar,omitempty"`
	Roles           []string  `json:"roles"`
	IsAdmin         bool      `json:"is_admin"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

// Me returns the current authenticated user.
//
//	@Summary		Get current user
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	MeResponse
//	@Failure		401	{object}	ErrorResponse
//	@Security		SessionAuth
//	@Router			/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.sessions.GetUser(c.Request)
	if err != nil {
		respondError(c, h.logger, &license.Error{Kind: license.KindUnauthenticated, Message: "not authenticated"})
		return
	}

	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}
	c.JSON(http.StatusOK, MeResponse{
		OwnerID:         user.OwnerID,
		Username:        user.Username,
		Avatar:          user.Avatar,
		Roles:           roles,
		IsAdmin:         h.policy.IsAdmin(user),
		AuthenticatedAt: user.AuthenticatedAt,
	})
}

func authFailed(err error) error {
	return &license.Error{Kind: license.KindInternal, Message: "authentication failed", Err: err}
}
