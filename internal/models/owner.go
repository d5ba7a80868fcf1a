package models

import "time"

// Owner is the local projection of a Discord account that has logged in.
type Owner struct {
	ID          string     `json:"owner_id"`
	Username    string     `json:"username"`
	Avatar      string     `json:"avatar,omitempty"`
	Tier        Tier       `json:"tier"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewOwner creates an owner record for a first login.
func NewOwner(id, username, avatar string) *Owner {
	now := time.Now()
	return &Owner{
		ID:          id,
		Username:    username,
		Avatar:      avatar,
		Tier:        TierNone,
		LastLoginAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// OwnerSummary is one row of the administration owner listing.
type OwnerSummary struct {
	OwnerID          string     `json:"owner_id"`
	Username         string     `json:"username"`
	Tier             Tier       `json:"tier"`
	TokenCount       int        `json:"token_count"`
	ActiveTokenCount int        `json:"active_token_count"`
	LastLoginAt      *time.Time `json:"last_login_at"`
}

// OwnerSearch filters and paginates the owner listing.
type OwnerSearch struct {
	Query   string
	Page    int
	PerPage int
}

// Offset returns the row offset of the requested page.
func (s OwnerSearch) Offset() int {
	if s.Page < 1 {
		return 0
	}
	return (s.Page - 1) * s.PerPage
}

// OwnerPage is a page of owner summaries.
type OwnerPage struct {
	Owners  []OwnerSummary `json:"owners"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}
