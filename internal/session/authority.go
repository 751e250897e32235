// Package session implements the token authority: three KV-backed stores
// (OAuth state, OAuth session, access-token map) plus fiber middleware
// enforcing the auth/role contracts. KV access is
// grounded on common/mredis/redis.go's connection-wrapper shape; the
// middleware's c.Locals attribute-attachment idiom is grounded on
// common/net/http/withBasicAuth.go.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

const (
	// DefaultStateTTL bounds the redirect->callback window.
	DefaultStateTTL = 300 * time.Second
	// DefaultSessionTTL is the authenticated-session lifetime.
	DefaultSessionTTL = 7 * 24 * time.Hour
	// DefaultAccessTokenTTL is the opaque bearer-token lifetime.
	DefaultAccessTokenTTL = 15 * time.Minute
)

// KV is the minimal key-value contract the three stores need.
type KV interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, key string) error
}

// Session is the authenticated identity attached to a request by the
// middleware.
type Session struct {
	SessionID string
	RepoID    string
	Handle    string
	Scopes    []string
}

// Authority wires the three KV stores behind the session/token contract.
type Authority struct {
	state       KV
	sessions    KV
	accessToken KV

	stateTTL       time.Duration
	sessionTTL     time.Duration
	accessTokenTTL time.Duration

	logger ctxlog.Logger
	newID  func() string
}

// Config tunes the TTLs; zero values fall back to the package defaults.
type Config struct {
	StateTTL       time.Duration
	SessionTTL     time.Duration
	AccessTokenTTL time.Duration
}

// New constructs an Authority. state/sessions/accessToken may be the same
// underlying KV client with distinct key prefixes applied by the caller.
func New(state, sessions, accessToken KV, cfg Config, logger ctxlog.Logger) *Authority {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &Authority{
		state:          state,
		sessions:       sessions,
		accessToken:    accessToken,
		stateTTL:       cfg.StateTTL,
		sessionTTL:     cfg.SessionTTL,
		accessTokenTTL: cfg.AccessTokenTTL,
		logger:         logger,
		newID:          func() string { return uuid.NewString() },
	}
}

// BeginOAuthState mints and stores a state value, returning the state key
// to embed in the redirect URI.
func (a *Authority) BeginOAuthState(ctx context.Context) (string, error) {
	state := a.newID()
	if err := a.state.Set(ctx, state, state, a.stateTTL); err != nil {
		return "", err
	}

	return state, nil
}

// ConsumeOAuthState validates and deletes a state value; returns false if
// it is absent or expired.
func (a *Authority) ConsumeOAuthState(ctx context.Context, state string) (bool, error) {
	_, found, err := a.state.Get(ctx, state)
	if err != nil {
		return false, err
	}

	if !found {
		return false, nil
	}

	if err := a.state.Del(ctx, state); err != nil {
		a.logger.Warnf("session: failed to delete consumed oauth state %s: %v", state, err)
	}

	return true, nil
}

// sessionKey and tokenKey namespace the shared KV surface by store.
func sessionKey(repoID string) string { return "session:" + repoID }
func tokenKey(token string) string    { return "token:" + token }

// CreateSession upserts a session for repoID and mints an opaque access
// token bound to it.
func (a *Authority) CreateSession(ctx context.Context, repoID, handle string, scopes []string) (sess Session, accessToken string, err error) {
	sessionID := a.newID()
	sess = Session{SessionID: sessionID, RepoID: repoID, Handle: handle, Scopes: scopes}

	if err := a.sessions.Set(ctx, sessionKey(repoID), encodeSession(sess), a.sessionTTL); err != nil {
		return Session{}, "", err
	}

	accessToken = a.newID()
	if err := a.accessToken.Set(ctx, tokenKey(accessToken), sessionID+"|"+repoID, a.accessTokenTTL); err != nil {
		return Session{}, "", err
	}

	return sess, accessToken, nil
}

// ValidateAccessToken resolves an opaque bearer token to its Session. It
// returns (nil, nil) on miss/expiry — not an error — and an error only on a
// genuine KV transport failure.
func (a *Authority) ValidateAccessToken(ctx context.Context, token string) (*Session, error) {
	mapped, found, err := a.accessToken.Get(ctx, tokenKey(token))
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	repoID := repoIDFromMapping(mapped)
	if repoID == "" {
		return nil, nil
	}

	encoded, found, err := a.sessions.Get(ctx, sessionKey(repoID))
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	sess := decodeSession(encoded)

	return &sess, nil
}

// Revoke deletes repoID's session, so any outstanding access token mapping
// to it fails ValidateAccessToken's session lookup on its next use. The
// token mapping itself is left to expire naturally.
func (a *Authority) Revoke(ctx context.Context, repoID string) error {
	return a.sessions.Del(ctx, sessionKey(repoID))
}

func repoIDFromMapping(mapped string) string {
	for i := 0; i < len(mapped); i++ {
		if mapped[i] == '|' {
			return mapped[i+1:]
		}
	}

	return ""
}

// encodeSession/decodeSession use a delimiter-joined scheme rather than
// JSON: the value never leaves this package and scopes rarely contain the
// delimiter, so a tiny hand-rolled codec avoids an encoding/json round trip
// on every request.
func encodeSession(s Session) string {
	out := s.SessionID + "\x1f" + s.RepoID + "\x1f" + s.Handle
	for _, scope := range s.Scopes {
		out += "\x1f" + scope
	}

	return out
}

func decodeSession(encoded string) Session {
	fields := splitUnitSeparator(encoded)
	sess := Session{}

	if len(fields) > 0 {
		sess.SessionID = fields[0]
	}
	if len(fields) > 1 {
		sess.RepoID = fields[1]
	}
	if len(fields) > 2 {
		sess.Handle = fields[2]
	}
	if len(fields) > 3 {
		sess.Scopes = fields[3:]
	}

	return sess
}

func splitUnitSeparator(s string) []string {
	var fields []string
	start := 0

	for i := 0; i < len(s); i++ {
		if s[i] == '\x1f' {
			fields = append(fields, s[start:i])
			start = i + 1
		}
	}

	fields = append(fields, s[start:])

	return fields
}
