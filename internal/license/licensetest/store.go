// Package licensetest provides an in-memory license.Store for tests.
package licensetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/MacJediWizard/modlicense/internal/models"
)

// Store is a concurrency-safe in-memory license.Store. Its claim path applies
// the same conditional cooldown write as the Postgres store.
type Store struct {
	mu        sync.Mutex
	tokens    map[string]*models.TokenRecord
	cooldowns map[string]*models.CooldownRecord
	owners    map[string]*models.Owner

	// ClaimErrs are returned, in order, by the next ClaimTokens calls.
	ClaimErrs []error
	// CreateErrs are returned, in order, by the next CreateToken calls.
	CreateErrs []error
	// SetTierErr is returned by every SetOwnerTier call when set.
	SetTierErr error
	// Err, when set, fails every read and write.
	Err error

	claimCalls int
}

var _ license.Store = (*Store)(nil)

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		tokens:    make(map[string]*models.TokenRecord),
		cooldowns: make(map[string]*models.CooldownRecord),
		owners:    make(map[string]*models.Owner),
	}
}

// AddToken inserts a record directly.
func (s *Store) AddToken(rec *models.TokenRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[rec.Token] = copyToken(rec)
}

// AddOwner inserts an owner directly.
func (s *Store) AddOwner(o *models.Owner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *o
	s.owners[o.ID] = &c
}

// Owner returns a copy of the owner, or nil.
func (s *Store) Owner(id string) *models.Owner {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.owners[id]
	if !ok {
		return nil
	}
	c := *o
	return &c
}

// Token returns a copy of the record, or nil.
func (s *Store) Token(token string) *models.TokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[token]
	if !ok {
		return nil
	}
	return copyToken(rec)
}

// Cooldown returns a copy of the owner's cooldown record, or nil.
func (s *Store) Cooldown(ownerID string) *models.CooldownRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cooldowns[ownerID]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// TokenCount returns the number of tokens held by ownerID.
func (s *Store) TokenCount(ownerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.tokens {
		if rec.OwnerID == ownerID {
			n++
		}
	}
	return n
}

// ClaimCalls returns how many times ClaimTokens was invoked.
func (s *Store) ClaimCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimCalls
}

func (s *Store) GetCooldown(_ context.Context, ownerID string) (*models.CooldownRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.cooldowns[ownerID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ClaimTokens(_ context.Context, ownerID string, claimedAt time.Time, cooldown time.Duration, tokens []*models.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimCalls++
	if s.Err != nil {
		return s.Err
	}
	if len(s.ClaimErrs) > 0 {
		err := s.ClaimErrs[0]
		s.ClaimErrs = s.ClaimErrs[1:]
		if err != nil {
			return err
		}
	}

	if c, ok := s.cooldowns[ownerID]; ok && c.LastClaimAt != nil && c.LastClaimAt.After(claimedAt.Add(-cooldown)) {
		return license.ErrCooldownActive
	}
	seen := make(map[string]bool, len(tokens))
	for _, rec := range tokens {
		if _, exists := s.tokens[rec.Token]; exists || seen[rec.Token] {
			return license.ErrDuplicateToken
		}
		seen[rec.Token] = true
	}

	s.ensureOwner(ownerID)
	at := claimedAt
	s.cooldowns[ownerID] = &models.CooldownRecord{OwnerID: ownerID, LastClaimAt: &at}
	for _, rec := range tokens {
		s.tokens[rec.Token] = copyToken(rec)
	}
	return nil
}

func (s *Store) CreateToken(_ context.Context, rec *models.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if len(s.CreateErrs) > 0 {
		err := s.CreateErrs[0]
		s.CreateErrs = s.CreateErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, exists := s.tokens[rec.Token]; exists {
		return license.ErrDuplicateToken
	}
	s.ensureOwner(rec.OwnerID)
	s.tokens[rec.Token] = copyToken(rec)
	return nil
}

func (s *Store) ListTokensByOwner(_ context.Context, ownerID string) ([]*models.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*models.TokenRecord
	for _, rec := range s.tokens {
		if rec.OwnerID == ownerID {
			out = append(out, copyToken(rec))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].Token < out[j].Token
		}
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out, nil
}

func (s *Store) GetToken(_ context.Context, ownerID, token string) (*models.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	rec, ok := s.tokens[token]
	if !ok || rec.OwnerID != ownerID {
		return nil, license.ErrTokenNotFound
	}
	return copyToken(rec), nil
}

func (s *Store) ClearHardwareID(_ context.Context, ownerID, token string, resetAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	rec, ok := s.tokens[token]
	if !ok || rec.OwnerID != ownerID {
		return false, license.ErrTokenNotFound
	}
	if rec.HardwareID == nil {
		return false, nil
	}
	at := resetAt
	rec.HardwareID = nil
	rec.LastHWIDResetAt = &at
	return true, nil
}

func (s *Store) ClearOwnerHardwareIDs(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, rec := range s.tokens {
		if rec.OwnerID == ownerID && rec.HardwareID != nil {
			rec.HardwareID = nil
			n++
		}
	}
	return n, nil
}

func (s *Store) ExtendToken(_ context.Context, ownerID, token string, days int) (*models.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	rec, ok := s.tokens[token]
	if !ok || rec.OwnerID != ownerID {
		return nil, license.ErrTokenNotFound
	}
	if rec.ExpiresAt != nil {
		extended := rec.ExpiresAt.Add(models.Days(days))
		rec.ExpiresAt = &extended
		rec.DurationDays += days
	}
	return copyToken(rec), nil
}

func (s *Store) DeleteToken(_ context.Context, ownerID, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	rec, ok := s.tokens[token]
	if !ok || rec.OwnerID != ownerID {
		return false, nil
	}
	delete(s.tokens, token)
	return true, nil
}

func (s *Store) ResetCooldown(_ context.Context, ownerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	c, ok := s.cooldowns[ownerID]
	if !ok || c.LastClaimAt == nil {
		return false, nil
	}
	c.LastClaimAt = nil
	return true, nil
}

func (s *Store) SetOwnerTier(_ context.Context, ownerID string, tier models.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetTierErr != nil {
		return s.SetTierErr
	}
	o := s.ensureOwner(ownerID)
	o.Tier = tier
	o.UpdatedAt = time.Now()
	return nil
}

func (s *Store) SearchOwners(_ context.Context, search models.OwnerSearch, now time.Time) (*models.OwnerPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	q := strings.ToLower(search.Query)
	var all []models.OwnerSummary
	for _, o := range s.owners {
		if q != "" && !strings.Contains(strings.ToLower(o.Username), q) && !strings.Contains(o.ID, q) {
			continue
		}
		sum := models.OwnerSummary{
			OwnerID:     o.ID,
			Username:    o.Username,
			Tier:        o.Tier,
			LastLoginAt: o.LastLoginAt,
		}
		for _, rec := range s.tokens {
			if rec.OwnerID != o.ID {
				continue
			}
			sum.TokenCount++
			if !rec.IsExpired(now) {
				sum.ActiveTokenCount++
			}
		}
		all = append(all, sum)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OwnerID < all[j].OwnerID })

	page := &models.OwnerPage{Total: len(all), Owners: []models.OwnerSummary{}}
	start := search.Offset()
	if start < len(all) {
		end := start + search.PerPage
		if end > len(all) {
			end = len(all)
		}
		page.Owners = all[start:end]
	}
	return page, nil
}

// UpsertOwner records a login without touching the stored tier.
func (s *Store) UpsertOwner(_ context.Context, owner *models.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	o := s.ensureOwner(owner.ID)
	now := time.Now()
	o.Username = owner.Username
	o.Avatar = owner.Avatar
	o.LastLoginAt = &now
	o.UpdatedAt = now
	owner.Tier = o.Tier
	owner.CreatedAt = o.CreatedAt
	owner.UpdatedAt = now
	owner.LastLoginAt = &now
	return nil
}

func (s *Store) ensureOwner(ownerID string) *models.Owner {
	o, ok := s.owners[ownerID]
	if !ok {
		now := time.Now()
		o = &models.Owner{ID: ownerID, Tier: models.TierNone, CreatedAt: now, UpdatedAt: now}
		s.owners[ownerID] = o
	}
	return o
}

func copyToken(rec *models.TokenRecord) *models.TokenRecord {
	c := *rec
	if rec.ExpiresAt != nil {
		t := *rec.ExpiresAt
		c.ExpiresAt = &t
	}
	if rec.HardwareID != nil {
		h := *rec.HardwareID
		c.HardwareID = &h
	}
	if rec.GrantedByAdmin != nil {
		g := *rec.GrantedByAdmin
		c.GrantedByAdmin = &g
	}
	if rec.LastHWIDResetAt != nil {
		r := *rec.LastHWIDResetAt
		c.LastHWIDResetAt = &r
	}
	return &c
}
