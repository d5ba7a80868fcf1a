package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/MacJediWizard/modlicense/internal/api/middleware"
	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AdminService defines the administrative licensing operations.
type AdminService interface {
	ListTokens(ctx context.Context, caller license.Caller, ownerID string) ([]models.TokenView, error)
	GrantToken(ctx context.Context, caller license.Caller, ownerID string, req models.GrantTokenRequest) (*models.TokenView, error)
	ExtendToken(ctx context.Context, caller license.Caller, ownerID, token string, days int) (*models.TokenView, error)
	DeleteToken(ctx context.Context, caller license.Caller, ownerID, token string) (bool, error)
	ResetCooldown(ctx context.Context, caller license.Caller, ownerID string) (bool, error)
	ResetAllHWID(ctx context.Context, caller license.Caller, ownerID string) (int64, error)
	SearchOwners(ctx context.Context, caller license.Caller, search models.OwnerSearch) (*models.OwnerPage, error)
}

// DeleteTokenResponse is the response for deleting a token.
type DeleteTokenResponse struct {
	Deleted bool `json:"deleted"`
}

// ResetCooldownResponse is the response for resetting an owner's claim cooldown.
type ResetCooldownResponse struct {
	Reset bool `json:"reset"`
}

// ResetAllHWIDResponse is the response for resetting every binding of an owner.
type ResetAllHWIDResponse struct {
	Count int64 `json:"count"`
}

// AdminHandler handles token administration endpoints.
type AdminHandler struct {
	service AdminService
	logger  zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// RegisterRoutes registers admin routes on the given router group. The group
// must already require administrator privileges.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	owners := r.Group("/owners")
	{
		owners.GET("", h.SearchOwners)
		owners.GET("/:owner_id/tokens", h.ListTokens)
		owners.POST("/:owner_id/tokens", h.GrantToken)
		owners.POST("/:owner_id/tokens/:token/extend", h.ExtendToken)
		owners.DELETE("/:owner_id/tokens/:token", h.DeleteToken)
		owners.DELETE("/:owner_id/cooldown", h.ResetCooldown)
		owners.POST("/:owner_id/reset-hwid", h.ResetAllHWID)
	}
}

// SearchOwners lists owners with token counts.
//
//	@Summary		Search owners
//	@Description	Returns a page of owners whose ID or username matches the query.
//	@Tags			Admin
//	@Produce		json
//	@Param			q			query		string	false	"ID or username fragment"
//	@Param			page		query		int		false	"Page number"		default(1)
//	@Param			per_page	query		int		false	"Page size (max 100)"	default(25)
//	@Success		200			{object}	models.OwnerPage
//	@Failure		400			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse
//	@Security		SessionAuth
//	@Router			/admin/owners [get]
func (h *AdminHandler) SearchOwners(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		respondInvalid(c, "page must be a number")
		return
	}
	perPage, err := queryInt(c, "per_page")
	if err != nil {
		respondInvalid(c, "per_page must be a number")
		return
	}

	result, err := h.service.SearchOwners(c.Request.Context(), middleware.GetCaller(c), models.OwnerSearch{
		Query:   c.Query("q"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListTokens returns the tokens of any owner.
//
//	@Summary		List owner tokens
//	@Tags			Admin
//	@Produce		json
//	@Param			owner_id	path		string	true	"Owner ID"
//	@Success		200			{object}	TokensResponse
//	@Failure		403			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Security		SessionAuth
//	@Router			/admin/owners/{owner_id}/tokens [get]
func (h *AdminHandler) ListTokens(c *gin.Context) {
	tokens, err := h.service.ListTokens(c.Request.Context(), middleware.GetCaller(c), c.Param("owner_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, TokensResponse{Tokens: tokens})
}

// GrantToken issues a token to an owner.
//
//	@Summary		Grant token
//	@Description	Issues one token of the given tier. duration_days of 0 grants a token that never expires.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			owner_id	path		string						true	"Owner ID"
//	@Param			request		body		models.GrantTokenRequest	true	"Grant"
//	@Success		201			{object}	models.TokenView
//	@Failure		400			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse
//	@Security		SessionAuth
//	@Router			/admin/owners/{owner_id}/tokens [post]
func (h *AdminHandler) GrantToken(c *gin.Context) {
	var req models.GrantTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request body: "+err.Error())
		return
	}

	view, err := h.service.GrantToken(c.Request.Context(), middleware.GetCaller(c), c.Param("owner_id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ExtendToken moves a token's expiry forward.
//
//	@Summary		Extend token
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			owner_id	path		string						true	"Owner ID"
//	@Param			token		path		string						true	"Token"
//	@Param			request		body		models.ExtendTokenRequest	true	"Extension"
//	@Success		200			{object}	models.TokenView
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Security		SessionAuth
//	@Router			/admin/owners/{owner_id}/tokens/{token}/extend [post]
func (h *AdminHandler) ExtendToken(c *gin.Context) {
	var req models.ExtendTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid request body: "+err.Error())
		return
	}

	view, err := h.service.ExtendToken(c.Request.Context(), middleware.GetCaller(c), c.Param("owner_id"), c.Param("token"), req.Days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteToken revokes a token.
//
//	@Summary		Delete token
//	@Description	Deletes a token. Deleting an absent token succeeds with deleted=false.
//	@Tags			Admin
//	@Produce		json
//	@Param			owner_id	path		string	true	"Owner ID"
//	@Param			token		path		string	true	"Token"
//	@Success		200			{object}	DeleteTokenResponse
//	@Failure		403			{object}	ErrorResponse
//	@Security		SessionAuth
//	@Router			/admin/owners/{owner_id}/tokens/{token} [delete]
func (h *AdminHandler) DeleteToken(c *gin.Context) {
	deleted, err := h.service.DeleteToken(c.Request.Context(), middleware.GetCaller(c), c.Param("owner_id"), c.Param("token"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, DeleteTokenResponse{Deleted: deleted})
}

// ResetCooldown lets an owner claim again immediately.
//
//	@Summary		Reset claim cooldown
//	@Tags			Admin
//	@Produce		json
//	@Param			owner_id	path		string	true	"Owner ID"
//	@Success		200			{object}	ResetCooldownResponse
//	@Failure		403			{object}	ErrorResponse
//	@Security		SessionAuth
//	@Router			/admin/owners/{owner_id}/cooldown [delete]
func (h *AdminHandler) ResetCooldown(c *gin.Context) {
	reset, err := h.service.ResetCooldown(c.Request.Context(), middleware.GetCaller(c), c.Param("owner_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ResetCooldownResponse{Reset: reset})
}

// ResetAllHWID unbinds every token of an owner.
//
//	@Summary		Reset all hardware IDs
//	@Tags			Admin
//	@Produce		json
//	@Param			owner_id	path		string	true	"Owner ID"
//	@Success		200			{object}	ResetAllHWIDResponse
//	@Failure		403			{object}	ErrorResponse
//	@Security		SessionAuth
//	@Router			/admin/owners/{owner_id}/reset-hwid [post]
func (h *AdminHandler) ResetAllHWID(c *gin.Context) {
	n, err := h.service.ResetAllHWID(c.Request.Context(), middleware.GetCaller(c), c.Param("owner_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ResetAllHWIDResponse{Count: n})
}

// queryInt parses an optional integer query parameter. Absent yields zero.
func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
