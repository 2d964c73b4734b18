package calendar

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrNoCredentials is returned by a CredentialStore that holds nothing yet.
var ErrNoCredentials = errors.New("calendar: no stored credentials")

// CredentialStore persists the long-lived OAuth token of the calendar account.
type CredentialStore interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, tok *oauth2.Token) error
	Delete(ctx context.Context) error
}
