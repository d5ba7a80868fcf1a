// Package license implements the token lifecycle: claiming, hardware binding
// resets and administrative grants, extensions and revocations.
package license

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/rs/zerolog"
)

// maxIssueAttempts bounds token regeneration after a uniqueness collision.
const maxIssueAttempts = 3

// Config holds the licensing policy.
type Config struct {
	// Grants are the tokens issued together by one claim.
	Grants []Grant
	// ClaimRoleID is the Discord role required to claim. Empty disables the gate.
	ClaimRoleID string
	// ClaimCooldown is the minimum time between two claims of an owner.
	ClaimCooldown time.Duration
	// HWIDResetCooldown is the minimum time between self-service resets of one token. Zero disables it.
	HWIDResetCooldown time.Duration
	// SideEffectTimeout bounds tier-sync and notification work after a commit.
	SideEffectTimeout time.Duration
}

// DefaultConfig returns the observed production policy.
func DefaultConfig() Config {
	return Config{
		Grants:            DefaultGrants(),
		ClaimCooldown:     7 * 24 * time.Hour,
		HWIDResetCooldown: 24 * time.Hour,
		SideEffectTimeout: 10 * time.Second,
	}
}

// ClaimResult is returned by a successful claim.
type ClaimResult struct {
	Message string             `json:"message"`
	Tokens  []models.TokenView `json:"tokens"`
}

// Service runs licensing operations against a Store.
type Service struct {
	store    Store
	notifier Notifier
	recorder Recorder
	cfg      Config
	logger   zerolog.Logger

	now      func() time.Time
	generate TokenGenerator

	wg sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTokenGenerator replaces the random token source.
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(s *Service) { s.generate = gen }
}

// NewService creates a Service. notifier and recorder may be nil.
func NewService(store Store, notifier Notifier, recorder Recorder, cfg Config, logger zerolog.Logger, opts ...Option) (*Service, error) {
	if err := ValidateGrants(cfg.Grants); err != nil {
		return nil, fmt.Errorf("invalid grant plan: %w", err)
	}
	if cfg.ClaimCooldown < 0 || cfg.HWIDResetCooldown < 0 {
		return nil, errors.New("cooldowns must not be negative")
	}
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = DefaultConfig().SideEffectTimeout
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	s := &Service{
		store:    store,
		notifier: notifier,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger.With().Str("component", "license_service").Logger(),
		now:      time.Now,
		generate: GenerateToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the policy the service runs with.
func (s *Service) Config() Config {
	return s.cfg
}

// Wait blocks until dispatched side effects have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Claim issues the configured grants to an eligible caller outside its cooldown.
func (s *Service) Claim(ctx context.Context, caller Caller) (*ClaimResult, error) {
	if err := requireSession(caller); err != nil {
		return nil, err
	}

	if s.cfg.ClaimRoleID != "" && !caller.HasRole(s.cfg.ClaimRoleID) {
		s.recorder.RecordClaim("forbidden")
		return nil, newError(KindForbidden, "you need the supporter role in the community server to claim tokens")
	}

	now := s.now()

	cooldown, err := s.store.GetCooldown(ctx, caller.OwnerID)
	if err != nil {
		s.recorder.RecordClaim("error")
		return nil, internalError("failed to check claim cooldown", err)
	}
	if cooldown != nil && cooldown.LastClaimAt != nil {
		availableAt := cooldown.LastClaimAt.Add(s.cfg.ClaimCooldown)
		if now.Before(availableAt) {
			s.recorder.RecordClaim("cooldown")
			retry := NewRetryAfter(availableAt.Sub(now), availableAt)
			return nil, tooManyRequests(fmt.Sprintf("you can claim again in %s", retry.Label), retry)
		}
	}

	var records []*models.TokenRecord
	for attempt := 1; ; attempt++ {
		records, err = s.buildClaimTokens(caller.OwnerID, now)
		if err != nil {
			s.recorder.RecordClaim("error")
			return nil, internalError("failed to generate tokens", err)
		}

		err = s.store.ClaimTokens(ctx, caller.OwnerID, now, s.cfg.ClaimCooldown, records)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateToken) && attempt < maxIssueAttempts {
			s.logger.Warn().Int("attempt", attempt).Str("owner_id", caller.OwnerID).Msg("token collision, regenerating claim")
			continue
		}
		if errors.Is(err, ErrCooldownActive) {
			s.recorder.RecordClaim("conflict")
			return nil, newError(KindConflict, "another claim for this account was just recorded")
		}
		s.recorder.RecordClaim("error")
		return nil, internalError("failed to issue tokens", err)
	}

	s.recorder.RecordClaim("success")
	for _, r := range records {
		s.recorder.RecordTokensIssued(r.Tier, models.IssueSourceClaim, 1)
	}

	s.logger.Info().
		Str("owner_id", caller.OwnerID).
		Int("tokens", len(records)).
		Msg("tokens claimed")

	event := models.NewTokensIssuedEvent(caller.OwnerID, caller.Username, models.IssueSourceClaim, records, now)
	s.dispatchIssueEffects(ctx, caller.OwnerID, records, event)

	views := make([]models.TokenView, 0, len(records))
	for _, r := range records {
		views = append(views, r.View(now))
	}
	return &ClaimResult{
		Message: fmt.Sprintf("claimed %d tokens", len(views)),
		Tokens:  views,
	}, nil
}

func (s *Service) buildClaimTokens(ownerID string, now time.Time) ([]*models.TokenRecord, error) {
	records := make([]*models.TokenRecord, 0, len(s.cfg.Grants))
	for _, g := range s.cfg.Grants {
		token, err := s.generate()
		if err != nil {
			return nil, err
		}
		records = append(records, models.NewTokenRecord(ownerID, token, g.Tier, g.DurationDays, now))
	}
	return records, nil
}

// ListTokens returns the tokens of ownerID, or of the caller when ownerID is empty.
// Listing another owner's tokens requires administrator privileges.
func (s *Service) ListTokens(ctx context.Context, caller Caller, ownerID string) ([]models.TokenView, error) {
	if err := requireSession(caller); err != nil {
		return nil, err
	}
	if ownerID == "" {
		ownerID = caller.OwnerID
	}
	if ownerID != caller.OwnerID {
		if err := requireAdmin(caller); err != nil {
			return nil, err
		}
	}

	records, err := s.store.ListTokensByOwner(ctx, ownerID)
	if err != nil {
		return nil, internalError("failed to list tokens", err)
	}
	if len(records) == 0 {
		return nil, newError(KindNotFound, "no tokens found for this account")
	}

	now := s.now()
	views := make([]models.TokenView, 0, len(records))
	for _, r := range records {
		views = append(views, r.View(now))
	}
	return views, nil
}

// ResetHWID unbinds the device from one of the caller's own tokens. It returns
// false when the token had no binding, which is not an error.
func (s *Service) ResetHWID(ctx context.Context, caller Caller, token string) (bool, error) {
	if err := requireSession(caller); err != nil {
		return false, err
	}
	token = NormalizeToken(token)

	rec, err := s.store.GetToken(ctx, caller.OwnerID, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return false, newError(KindNotFound, "token not found")
		}
		return false, internalError("failed to load token", err)
	}
	if !rec.HWIDBound() {
		return false, nil
	}

	now := s.now()
	if s.cfg.HWIDResetCooldown > 0 && rec.LastHWIDResetAt != nil {
		availableAt := rec.LastHWIDResetAt.Add(s.cfg.HWIDResetCooldown)
		if now.Before(availableAt) {
			retry := NewRetryAfter(availableAt.Sub(now), availableAt)
			return false, tooManyRequests(fmt.Sprintf("hardware ID can be reset again in %s", retry.Label), retry)
		}
	}

	reset, err := s.store.ClearHardwareID(ctx, caller.OwnerID, token, now)
	if err != nil {
		return false, internalError("failed to reset hardware ID", err)
	}

	s.logger.Info().Str("owner_id", caller.OwnerID).Bool("reset", reset).Msg("hardware ID reset by owner")
	return reset, nil
}
