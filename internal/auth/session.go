package auth

import (
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

func init() {
	gob.Register(time.Time{})
}

const (
	// SessionName is the name of the session cookie.
	SessionName = "modlicense_session"
	// StateKey is the session key for the OAuth2 state.
	StateKey = "oauth_state"
	// OwnerIDKey is the session key for the Discord user ID.
	OwnerIDKey = "owner_id"
	// UsernameKey is the session key for the display name.
	UsernameKey = "username"
	// AvatarKey is the session key for the avatar hash.
	AvatarKey = "avatar"
	// RolesKey is the session key for the guild roles captured at login.
	RolesKey = "roles"
	// AuthenticatedAtKey is the session key for the login time.
	AuthenticatedAtKey = "authenticated_at"
)

// ErrNoSession is returned when the request carries no authenticated user.
var ErrNoSession = errors.New("no user in session")

// SessionConfig holds session store configuration.
type SessionConfig struct {
	Secret     []byte
	MaxAge     int  // seconds
	Secure     bool // require HTTPS
	HTTPOnly   bool
	SameSite   http.SameSite
	CookiePath string
}

// DefaultSessionConfig returns a SessionConfig with secure defaults.
func DefaultSessionConfig(secret []byte, secure bool) SessionConfig {
	return SessionConfig{
		Secret:     secret,
		MaxAge:     86400,
		Secure:     secure,
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
		CookiePath: "/",
	}
}

// SessionStore wraps a gorilla/sessions cookie store.
type SessionStore struct {
	store  *sessions.CookieStore
	logger zerolog.Logger
}

// NewSessionStore creates a new session store.
func NewSessionStore(cfg SessionConfig, logger zerolog.Logger) (*SessionStore, error) {
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}

	store := sessions.NewCookieStore(cfg.Secret)
	store.Options = &sessions.Options{
		Path:     cfg.CookiePath,
		MaxAge:   cfg.MaxAge,
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}
	store.MaxAge(cfg.MaxAge)

	s := &SessionStore{
		store:  store,
		logger: logger.With().Str("component", "session").Logger(),
	}

	s.logger.Info().
		Bool("secure", cfg.Secure).
		Int("max_age", cfg.MaxAge).
		Msg("session store initialized")

	return s, nil
}

// Get retrieves the session of the request. A cookie that fails to decode
// yields a fresh session rather than an error.
func (s *SessionStore) Get(r *http.Request) (*sessions.Session, error) {
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		if session != nil && session.IsNew {
			s.logger.Debug().Err(err).Msg("discarding undecodable session cookie")
			return session, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// Save writes the session to the response.
func (s *SessionStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SetState stores the OAuth2 state in the session.
func (s *SessionStore) SetState(r *http.Request, w http.ResponseWriter, state string) error {
	session, err := s.Get(r)
	if err != nil {
		return err
	}
	session.Values[StateKey] = state
	return s.Save(r, w, session)
}

// PopState retrieves and clears the OAuth2 state from the session.
func (s *SessionStore) PopState(r *http.Request, w http.ResponseWriter) (string, error) {
	session, err := s.Get(r)
	if err != nil {
		return "", err
	}
	state, ok := session.Values[StateKey].(string)
	if !ok || state == "" {
		return "", fmt.Errorf("no state in session")
	}
	delete(session.Values, StateKey)
	if err := s.Save(r, w, session); err != nil {
		return "", err
	}
	return state, nil
}

// SessionUser is the signed-in Discord account stored in the session.
type SessionUser struct {
	OwnerID         string
	Username        string
	Avatar          string
	Roles           []string
	AuthenticatedAt time.Time
}

// SetUser stores the user after a successful login.
func (s *SessionStore) SetUser(r *http.Request, w http.ResponseWriter, user *SessionUser) error {
	session, err := s.Get(r)
	if err != nil {
		return err
	}
	session.Values[OwnerIDKey] = user.OwnerID
	session.Values[UsernameKey] = user.Username
	session.Values[AvatarKey] = user.Avatar
	session.Values[RolesKey] = user.Roles
	session.Values[AuthenticatedAtKey] = user.AuthenticatedAt
	return s.Save(r, w, session)
}

// GetUser returns the signed-in user, or ErrNoSession.
func (s *SessionStore) GetUser(r *http.Request) (*SessionUser, error) {
	session, err := s.Get(r)
	if err != nil {
		return nil, err
	}

	ownerID, ok := session.Values[OwnerIDKey].(string)
	if !ok || ownerID == "" {
		return nil, ErrNoSession
	}

	username, _ := session.Values[UsernameKey].(string)
	avatar, _ := session.Values[AvatarKey].(string)
	roles, _ := session.Values[RolesKey].([]string)
	authenticatedAt, _ := session.Values[AuthenticatedAtKey].(time.Time)

	return &SessionUser{
		OwnerID:         ownerID,
		Username:        username,
		Avatar:          avatar,
		Roles:           roles,
		AuthenticatedAt: authenticatedAt,
	}, nil
}

// ClearUser removes the user from the session and expires the cookie.
func (s *SessionStore) ClearUser(r *http.Request, w http.ResponseWriter) error {
	session, err := s.Get(r)
	if err != nil {
		return err
	}
	for _, key := range []string{OwnerIDKey, UsernameKey, AvatarKey, RolesKey, AuthenticatedAtKey} {
		delete(session.Values, key)
	}
	session.Options.MaxAge = -1
	return s.Save(r, w, session)
}
