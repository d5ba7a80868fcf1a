package license

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/modlicense/internal/models"
)

// sideEffectError reports a failed best-effort task.
type sideEffectError struct {
	effect string
	err    error
}

func (e sideEffectError) Error() string {
	return fmt.Sprintf("%s: %v", e.effect, e.err)
}

// dispatchIssueEffects runs tier-sync and notification for committed tokens
// without blocking the caller. Failures are logged and counted only.
func (s *Service) dispatchIssueEffects(ctx context.Context, ownerID string, records []*models.TokenRecord, event models.TokensIssuedEvent) {
	syncTier := includesTopTier(records)

	errs := make(chan sideEffectError, 2)
	s.wg.Add(2)

	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SideEffectTimeout)
		defer cancel()

		if syncTier {
			if err := s.store.SetOwnerTier(ctx, ownerID, models.TopTier()); err != nil {
				errs <- sideEffectError{effect: "tier_sync", err: err}
			}
		}
		if err := s.notifier.NotifyTokensIssued(ctx, event); err != nil {
			errs <- sideEffectError{effect: "notify", err: err}
		}
		close(errs)
	}()

	go func() {
		defer s.wg.Done()
		for e := range errs {
			s.recorder.RecordSideEffectFailure(e.effect)
			s.logger.Error().
				Err(e.err).
				Str("effect", e.effect).
				Str("owner_id", ownerID).
				Msg("post-issue side effect failed")
		}
	}()
}
