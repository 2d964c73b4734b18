package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

const defaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// NewOAuthConfig builds the consent configuration for the calendar account.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{gcal.CalendarScope},
		Endpoint:     google.Endpoint,
	}
}

// Authorizer owns the credential lifecycle: consent, exchange, refresh
// persistence and revocation.
type Authorizer struct {
	config     *oauth2.Config
	store      CredentialStore
	httpClient *http.Client
	revokeURL  string
	logger     *slog.Logger
}

func NewAuthorizer(config *oauth2.Config, store CredentialStore, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{
		config:     config,
		store:      store,
		httpClient: http.DefaultClient,
		revokeURL:  defaultRevokeURL,
		logger:     logger,
	}
}

// AuthCodeURL asks for offline access so Google issues a refresh token.
func (a *Authorizer) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (a *Authorizer) Exchange(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return errors.New("authorization code is required")
	}
	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("error exchanging authorization code: %w", err)
	}
	if err := a.store.Save(ctx, tok); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "calendar authorized", "expiry", tok.Expiry, "has_refresh_token", tok.RefreshToken != "")
	return nil
}

func (a *Authorizer) IsAuthorized(ctx context.Context) bool {
	tok, err := a.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoCredentials) {
			a.logger.WarnContext(ctx, "could not load calendar credentials", "error", err)
		}
		return false
	}
	return tok.RefreshToken != "" || tok.Valid()
}

// TokenSource returns a source that refreshes through Google and writes every
// refreshed token back to the store.
func (a *Authorizer) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := a.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return nil, ErrNotAuthorized
		}
		return nil, err
	}
	if tok.RefreshToken == "" && !tok.Valid() {
		return nil, ErrNotAuthorized
	}
	return &persistingTokenSource{
		ctx:    ctx,
		base:   a.config.TokenSource(ctx, tok),
		last:   tok,
		store:  a.store,
		logger: a.logger,
	}, nil
}

// Revoke invalidates the grant at Google and forgets it locally. A failure at
// Google is logged; the local credential is removed regardless.
func (a *Authorizer) Revoke(ctx context.Context) error {
	tok, err := a.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return nil
		}
		return err
	}

	token := tok.RefreshToken
	if token == "" {
		token = tok.AccessToken
	}
	if err := a.revokeRemote(ctx, token); err != nil {
		a.logger.WarnContext(ctx, "remote token revocation failed", "error", err)
	}
	return a.store.Delete(ctx)
}

func (a *Authorizer) revokeRemote(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("revoke returned status %d", resp.StatusCode)
	}
	return nil
}

type persistingTokenSource struct {
	ctx    context.Context
	base   oauth2.TokenSource
	last   *oauth2.Token
	store  CredentialStore
	logger *slog.Logger
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		if err := s.store.Save(s.ctx, tok); err != nil {
			s.logger.WarnContext(s.ctx, "could not persist refreshed calendar token", "error", err)
		}
		s.last = tok
	}
	return tok, nil
}
