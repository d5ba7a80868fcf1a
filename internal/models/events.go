package models

import "time"

// IssueSource describes how tokens came to exist.
type IssueSource string

const (
	// IssueSourceClaim is a self-service claim.
	IssueSourceClaim IssueSource = "claim"
	// IssueSourceAdminGrant is an administrator grant.
	IssueSourceAdminGrant IssueSource = "admin_grant"
)

// IssuedToken describes one token inside a TokensIssuedEvent.
type IssuedToken struct {
	Token         string     `json:"token"`
	Tier          Tier       `json:"tier"`
	ExpiresAt     *time.Time `json:"expires_at"`
	DurationLabel string     `json:"duration_label"`
}

// TokensIssuedEvent is emitted to notification sinks after tokens are committed.
type TokensIssuedEvent struct {
	OwnerID   string        `json:"owner_id"`
	Username  string        `json:"username,omitempty"`
	Source    IssueSource   `json:"source"`
	GrantedBy string        `json:"granted_by,omitempty"`
	Tokens    []IssuedToken `json:"tokens"`
	IssuedAt  time.Time     `json:"issued_at"`
}

// NewTokensIssuedEvent builds an event from committed token records.
func NewTokensIssuedEvent(ownerID, username string, source IssueSource, records []*TokenRecord, issuedAt time.Time) TokensIssuedEvent {
	tokens := make([]IssuedToken, 0, len(records))
	for _, r := range records {
		tokens = append(tokens, IssuedToken{
			Token:         r.Token,
			Tier:          r.Tier,
			ExpiresAt:     r.ExpiresAt,
			DurationLabel: DurationLabel(r.DurationDays),
		})
	}
	return TokensIssuedEvent{
		OwnerID:  ownerID,
		Username: username,
		Source:   source,
		Tokens:   tokens,
		IssuedAt: issuedAt,
	}
}
