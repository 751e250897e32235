package session

import "context"

// IdentityProvider is the external OAuth authorization-code flow
// collaborator; CasdoorProvider is the concrete implementation.
type IdentityProvider interface {
	SigninURL(state string) string
	ExchangeCode(ctx context.Context, code, state string) (repoID, handle string, err error)
}

// Flow ties the Authority's state store to an IdentityProvider, implementing
// the redirect -> callback -> session sequence.
type Flow struct {
	authority *Authority
	provider  IdentityProvider
}

// NewFlow constructs a Flow.
func NewFlow(authority *Authority, provider IdentityProvider) *Flow {
	return &Flow{authority: authority, provider: provider}
}

// BeginRedirect mints a state value and returns the provider's signin URL
// embedding it.
func (f *Flow) BeginRedirect(ctx context.Context) (redirectURL string, err error) {
	state, err := f.authority.BeginOAuthState(ctx)
	if err != nil {
		return "", err
	}

	return f.provider.SigninURL(state), nil
}

// CompleteCallback validates state, exchanges code, and mints a session and
// access token. ok is false if state was missing/expired (the caller should
// respond 401 without contacting the provider).
func (f *Flow) CompleteCallback(ctx context.Context, code, state string) (sess Session, accessToken string, ok bool, err error) {
	valid, err := f.authority.ConsumeOAuthState(ctx, state)
	if err != nil {
		return Session{}, "", false, err
	}

	if !valid {
		return Session{}, "", false, nil
	}

	repoID, handle, err := f.provider.ExchangeCode(ctx, code, state)
	if err != nil {
		return Session{}, "", false, err
	}

	sess, accessToken, err = f.authority.CreateSession(ctx, repoID, handle, nil)
	if err != nil {
		return Session{}, "", false, err
	}

	return sess, accessToken, true, nil
}
