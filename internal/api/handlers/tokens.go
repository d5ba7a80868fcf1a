package handlers

import (
	"context"
	"net/http"

	"github.com/MacJediWizard/modlicense/internal/api/middleware"
	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TokenService defines the self-service licensing operations.
type TokenService interface {
	Claim(ctx context.Context, caller license.Caller) (*license.ClaimResult, error)
	ListTokens(ctx context.Context, caller license.Caller, ownerID string) ([]models.TokenView, error)
	ResetHWID(ctx context.Context, caller license.Caller, token string) (bool, error)
}

// TokensResponse is the response for listing tokens.
type TokensResponse struct {
	Tokens []models.TokenView `json:"tokens"`
}

// ResetHWIDResponse is the response for a hardware ID reset.
type ResetHWIDResponse struct {
	Reset   bool   `json:"reset"`
	Message string `json:"message" example:"hardware ID reset"`
}

// TokensHandler handles the signed-in owner's token endpoints.
type TokensHandler struct {
	service TokenService
	logger  zerolog.Logger
}

// NewTokensHandler creates a new TokensHandler.
func NewTokensHandler(service TokenService, logger zerolog.Logger) *TokensHandler {
	return &TokensHandler{
		service: service,
		logger:  logger.With().Str("component", "tokens_handler").Logger(),
	}
}

// RegisterRoutes registers token routes on the given router group.
func (h *TokensHandler) RegisterRoutes(r *gin.RouterGroup) {
	tokens := r.Group("/tokens")
	{
		tokens.GET("", h.List)
		tokens.POST("/claim", h.Claim)
		tokens.POST("/:token/reset-hwid", h.ResetHWID)
	}
}

// Claim issues the configured token bundle to the signed-in owner.
//
//	@Summary		Claim tokens
//	@Description	Issues one token per configured grant if the owner holds the claim role and is outside the claim cooldown.
//	@Tags			Tokens
//	@Produce		json
//	@Success		201	{object}	license.ClaimResult
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Failure		429	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		SessionAuth
//	@Router			/tokens/claim [post]
func (h *TokensHandler) Claim(c *gin.Context) {
	result, err := h.service.Claim(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// List returns the signed-in owner's tokens, newest first.
//
//	@Summary		List own tokens
//	@Description	Returns every token of the signed-in owner, including expired ones.
//	@Tags			Tokens
//	@Produce		json
//	@Success		200	{object}	TokensResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		SessionAuth
//	@Router			/tokens [get]
func (h *TokensHandler) List(c *gin.Context) {
	tokens, err := h.service.ListTokens(c.Request.Context(), middleware.GetCaller(c), "")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, TokensResponse{Tokens: tokens})
}

// ResetHWID unbinds the hardware ID of one of the signed-in owner's tokens.
//
//	@Summary		Reset hardware ID
//	@Description	Clears the device binding of an owned token. Resetting an unbound token succeeds with reset=false.
//	@Tags			Tokens
//	@Produce		json
//	@Param			token	path		string	true	"Token"
//	@Success		200		{object}	ResetHWIDResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		429		{object}	ErrorResponse
//	@Security		SessionAuth
//	@Router			/tokens/{token}/reset-hwid [post]
func (h *TokensHandler) ResetHWID(c *gin.Context) {
	reset, err := h.service.ResetHWID(c.Request.Context(), middleware.GetCaller(c), c.Param("token"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	msg := "hardware ID reset"
	if !reset {
		msg = "token was not bound to a device"
	}
	c.JSON(http.StatusOK, ResetHWIDResponse{Reset: reset, Message: msg})
}
