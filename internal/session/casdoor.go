package session

import (
	"context"
	"fmt"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// CasdoorConfig mirrors common/mcasdoor/casdoor.go's AuthConfig fields,
// adapted to the session package's own connection wrapper.
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
	RedirectURI      string
}

// CasdoorProvider is the IdentityProvider implementation backed by a hosted
// Casdoor instance, fronting the OAuth authorization-code flow.
type CasdoorProvider struct {
	cfg    CasdoorConfig
	client *casdoorsdk.Client
	logger ctxlog.Logger
}

// NewCasdoorProvider constructs and connects a CasdoorProvider.
func NewCasdoorProvider(cfg CasdoorConfig, logger ctxlog.Logger) *CasdoorProvider {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	client := casdoorsdk.NewClientWithConf(&casdoorsdk.AuthConfig{
		Endpoint:         cfg.Endpoint,
		ClientId:         cfg.ClientID,
		ClientSecret:     cfg.ClientSecret,
		Certificate:      cfg.Certificate,
		OrganizationName: cfg.OrganizationName,
		ApplicationName:  cfg.ApplicationName,
	})

	return &CasdoorProvider{cfg: cfg, client: client, logger: logger}
}

// SigninURL builds the redirect-to-provider URL for state.
func (p *CasdoorProvider) SigninURL(state string) string {
	return fmt.Sprintf("%s&state=%s", p.client.GetSigninUrl(p.cfg.RedirectURI), state)
}

// ExchangeCode trades an authorization code for the authenticated user's
// repo-id (the provider's subject id) and handle.
func (p *CasdoorProvider) ExchangeCode(ctx context.Context, code, state string) (repoID, handle string, err error) {
	token, err := p.client.GetOAuthToken(code, state)
	if err != nil {
		return "", "", fmt.Errorf("casdoor: exchange code: %w", err)
	}

	claims, err := p.client.ParseJwtToken(token.AccessToken)
	if err != nil {
		return "", "", fmt.Errorf("casdoor: parse token: %w", err)
	}

	return claims.User.Id, claims.User.Name, nil
}
