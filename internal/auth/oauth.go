// Package auth handles the Google OAuth flow and password logins.
package auth

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sparkdata/sparkdata-go/internal/store"
)

// Key store service names the callback persists tokens under.
const (
	RefreshTokenService = "google_ads_refresh"
	AccessTokenService  = "google_ads_access"
)

// Scopes requested from Google: identity plus read access to Ads and
// Analytics.
var Scopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/adwords",
	"https://www.googleapis.com/auth/analytics.readonly",
}

// Flow drives the authorization-code exchange and caches the resulting
// token in a single slot shared with the Ads summary handler.
type Flow struct {
	config *oauth2.Config
	tokens *store.Slot[*oauth2.Token]
	keys   *store.KeyStore
}

func NewFlow(clientID, clientSecret, redirectURL string, tokens *store.Slot[*oauth2.Token], keys *store.KeyStore) *Flow {
	return &Flow{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
		tokens: tokens,
		keys:   keys,
	}
}

// AuthURL returns the consent-screen URL with offline access so a
// refresh token is issued.
func (f *Flow) AuthURL() string {
	return f.config.AuthCodeURL("", oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades the callback code for tokens, caches them, and
// persists refresh/access tokens in the key store. Persistence failure
// is reported back but the in-memory cache is already updated, so the
// session keeps working.
func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, eris.Wrap(err, "auth: exchange code")
	}
	f.tokens.Set(token)

	if f.keys != nil {
		if token.RefreshToken != "" {
			if err := f.keys.Upsert(ctx, RefreshTokenService, token.RefreshToken); err != nil {
				return token, eris.Wrap(err, "auth: persist refresh token")
			}
		}
		if token.AccessToken != "" {
			if err := f.keys.Upsert(ctx, AccessTokenService, token.AccessToken); err != nil {
				return token, eris.Wrap(err, "auth: persist access token")
			}
		}
	}
	return token, nil
}

// CachedToken returns the latest exchanged token, if any.
func (f *Flow) CachedToken() (*oauth2.Token, bool) {
	return f.tokens.Get()
}

// Preview truncates a token value for safe inclusion in responses.
func Preview(v string) string {
	if len(v) > 12 {
		return v[:12] + "..."
	}
	return v
}
