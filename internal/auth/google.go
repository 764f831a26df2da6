// Package auth implements the Google OAuth2 authorization-code flow used
// to establish a portal identity.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// Identity is the subset of the userinfo response the portal cares about.
type Identity struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Google performs the authorization-code handshake against Google.
type Google struct {
	cfg *oauth2.Config
}

// NewGoogle builds the OAuth config. Empty client credentials yield a
// disabled instance; the login endpoint reports this to the user.
func NewGoogle(clientID, clientSecret, redirectURL string) *Google {
	return &Google{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// Enabled reports whether client credentials were configured.
func (g *Google) Enabled() bool {
	return g.cfg.ClientID != "" && g.cfg.ClientSecret != ""
}

// BeginAuth returns the provider URL to redirect the browser to, plus the
// anti-forgery state token the caller must persist for the callback.
func (g *Google) BeginAuth() (url, state string) {
	state = uuid.NewString()
	url = g.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return url, state
}

// CompleteAuth exchanges the authorization code for a token and fetches
// the user's identity. Any failure surfaces as an authentication error;
// no partial state is retained.
func (g *Google) CompleteAuth(ctx context.Context, code string) (Identity, error) {
	token, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	resp, err := g.cfg.Client(ctx, token).Get(userinfoURL)
	if err != nil {
		return Identity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return Identity{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if id.Email == "" {
		return Identity{}, fmt.Errorf("userinfo response missing email")
	}
	if id.Name == "" {
		id.Name = id.Email
	}
	return id, nil
}
