package license

import (
	"context"
	"errors"
	"strings"

	"github.com/MacJediWizard/modlicense/internal/models"
)

const (
	defaultOwnersPerPage = 25
	maxOwnersPerPage     = 100
	maxGrantDays         = 3650
)

// GrantToken issues a single token to ownerID on behalf of an administrator.
// Zero days grants a token that never expires.
func (s *Service) GrantToken(ctx context.Context, caller Caller, ownerID string, req models.GrantTokenRequest) (*models.TokenView, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, newError(KindInvalid, "owner id is required")
	}
	tier, err := models.ParseTier(req.Tier)
	if err != nil {
		return nil, newError(KindInvalid, err.Error())
	}
	if req.DurationDays < 0 || req.DurationDays > maxGrantDays {
		return nil, newError(KindInvalid, "duration_days must be between 0 and 3650")
	}

	now := s.now()
	var rec *models.TokenRecord
	for attempt := 1; ; attempt++ {
		token, err := s.generate()
		if err != nil {
			return nil, internalError("failed to generate token", err)
		}
		rec = models.NewTokenRecord(ownerID, token, tier, req.DurationDays, now)
		grantedBy := caller.OwnerID
		rec.GrantedByAdmin = &grantedBy

		err = s.store.CreateToken(ctx, rec)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateToken) && attempt < maxIssueAttempts {
			continue
		}
		return nil, internalError("failed to grant token", err)
	}

	s.recorder.RecordAdminAction("grant")
	s.recorder.RecordTokensIssued(tier, models.IssueSourceAdminGrant, 1)
	s.logger.Info().
		Str("admin_action", "grant").
		Str("admin_id", caller.OwnerID).
		Str("owner_id", ownerID).
		Str("tier", string(tier)).
		Int("duration_days", req.DurationDays).
		Msg("token granted")

	records := []*models.TokenRecord{rec}
	event := models.NewTokensIssuedEvent(ownerID, "", models.IssueSourceAdminGrant, records, now)
	event.GrantedBy = caller.OwnerID
	s.dispatchIssueEffects(ctx, ownerID, records, event)

	view := rec.View(now)
	return &view, nil
}

// ExtendToken moves the expiry of a token forward by days. Unlimited tokens stay unlimited.
func (s *Service) ExtendToken(ctx context.Context, caller Caller, ownerID, token string, days int) (*models.TokenView, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if days < 1 || days > maxGrantDays {
		return nil, newError(KindInvalid, "days must be between 1 and 3650")
	}

	rec, err := s.store.ExtendToken(ctx, ownerID, NormalizeToken(token), days)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, newError(KindNotFound, "token not found")
		}
		return nil, internalError("failed to extend token", err)
	}

	s.recorder.RecordAdminAction("extend")
	s.logger.Info().
		Str("admin_action", "extend").
		Str("admin_id", caller.OwnerID).
		Str("owner_id", ownerID).
		Int("days", days).
		Msg("token extended")

	view := rec.View(s.now())
	return &view, nil
}

// DeleteToken revokes a token. Deleting an absent token reports false without error.
func (s *Service) DeleteToken(ctx context.Context, caller Caller, ownerID, token string) (bool, error) {
	if err := requireAdmin(caller); err != nil {
		return false, err
	}

	deleted, err := s.store.DeleteToken(ctx, ownerID, NormalizeToken(token))
	if err != nil {
		return false, internalError("failed to delete token", err)
	}

	s.recorder.RecordAdminAction("delete")
	s.logger.Info().
		Str("admin_action", "delete").
		Str("admin_id", caller.OwnerID).
		Str("owner_id", ownerID).
		Bool("deleted", deleted).
		Msg("token deleted")
	return deleted, nil
}

// ResetCooldown lets ownerID claim again immediately.
func (s *Service) ResetCooldown(ctx context.Context, caller Caller, ownerID string) (bool, error) {
	if err := requireAdmin(caller); err != nil {
		return false, err
	}

	reset, err := s.store.ResetCooldown(ctx, ownerID)
	if err != nil {
		return false, internalError("failed to reset cooldown", err)
	}

	s.recorder.RecordAdminAction("reset_cooldown")
	s.logger.Info().
		Str("admin_action", "reset_cooldown").
		Str("admin_id", caller.OwnerID).
		Str("owner_id", ownerID).
		Bool("reset", reset).
		Msg("claim cooldown reset")
	return reset, nil
}

// ResetAllHWID unbinds every token of ownerID and returns how many were bound.
func (s *Service) ResetAllHWID(ctx context.Context, caller Caller, ownerID string) (int64, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}

	n, err := s.store.ClearOwnerHardwareIDs(ctx, ownerID)
	if err != nil {
		return 0, internalError("failed to reset hardware IDs", err)
	}

	s.recorder.RecordAdminAction("reset_hwid")
	s.logger.Info().
		Str("admin_action", "reset_hwid").
		Str("admin_id", caller.OwnerID).
		Str("owner_id", ownerID).
		Int64("count", n).
		Msg("hardware IDs reset")
	return n, nil
}

// SearchOwners lists owners matching the query, one page at a time.
func (s *Service) SearchOwners(ctx context.Context, caller Caller, search models.OwnerSearch) (*models.OwnerPage, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	search.Query = strings.TrimSpace(search.Query)
	if search.Page < 1 {
		search.Page = 1
	}
	if search.PerPage < 1 {
		search.PerPage = defaultOwnersPerPage
	}
	if search.PerPage > maxOwnersPerPage {
		search.PerPage = maxOwnersPerPage
	}

	page, err := s.store.SearchOwners(ctx, search, s.now())
	if err != nil {
		return nil, internalError("failed to search owners", err)
	}
	if page.Owners == nil {
		page.Owners = []models.OwnerSummary{}
	}
	page.Page = search.Page
	page.PerPage = search.PerPage
	return page, nil
}
