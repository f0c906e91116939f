// Package auth implements the OAuth 2.0 + PKCE flow used to obtain and
// refresh the bearer token internal/remotestore/zoho authenticates with,
// generalized from the teacher's internal/auth/oauth.go.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

// Endpoint is the OAuth authorization/token pair a Client talks to. Zoho
// WorkDrive's accounts endpoint is the default; tests and other providers
// can substitute their own.
type Endpoint struct {
	AuthURL  string
	TokenURL string
}

// DefaultEndpoint is Zoho's accounts service.
var DefaultEndpoint = Endpoint{
	AuthURL:  "https://accounts.zoho.com/oauth/v2/auth",
	TokenURL: "https://accounts.zoho.com/oauth/v2/token",
}

// TokenStore persists the signed-in token across process restarts. A
// concrete implementation lives in internal/storage.
type TokenStore interface {
	SaveToken(token *types.TokenInfo) error
	LoadToken() (*types.TokenInfo, bool, error)
	ClearToken() error
}

// Client drives the authorization-code-with-PKCE flow and refreshes tokens
// on demand, generalized from the teacher's OAuthClient.
type Client struct {
	oauth    *oauth2.Config
	store    TokenStore
	verifier string
	state    string
}

// New builds a Client from cfg and an Endpoint. store may be nil, in which
// case the caller is responsible for persisting the returned TokenInfo.
func New(cfg types.AuthConfig, endpoint Endpoint, store TokenStore) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  endpoint.AuthURL,
				TokenURL: endpoint.TokenURL,
			},
		},
		store: store,
	}
}

func generateRandomURLSafe(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AuthCodeURL generates fresh PKCE verifier/challenge and state values and
// returns the URL the user should open in a browser.
func (c *Client) AuthCodeURL() (string, error) {
	verifier, err := generateRandomURLSafe(32)
	if err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	state, err := generateRandomURLSafe(16)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	c.verifier = verifier
	c.state = state

	challengeHash := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(challengeHash[:])

	authURL := c.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("access_type", "offline"),
	)

	logrus.WithField("component", "auth").Debug("generated authorization URL")
	return authURL, nil
}

// Exchange trades an authorization code (and the state it arrived with) for
// a TokenInfo, verifying the PKCE verifier and state generated by
// AuthCodeURL. On success, the token is persisted via TokenStore if one was
// configured.
func (c *Client) Exchange(ctx context.Context, code, state string) (*types.TokenInfo, error) {
	if c.verifier == "" || c.state == "" {
		return nil, types.NewSyncError(types.ErrorClassAuth, types.CodeNotSignedIn, "no authorization flow in progress", nil)
	}
	if state != c.state {
		return nil, types.NewSyncError(types.ErrorClassAuth, types.CodePermissionDenied, "state parameter mismatch", nil)
	}

	token, err := c.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", c.verifier))
	if err != nil {
		return nil, types.NewSyncError(types.ErrorClassAuth, types.CodeNotSignedIn, "exchange authorization code", err)
	}

	info := tokenInfoFrom(token)
	if c.store != nil {
		if err := c.store.SaveToken(info); err != nil {
			return nil, fmt.Errorf("persist token: %w", err)
		}
	}
	logrus.WithField("component", "auth").Info("signed in")
	return info, nil
}

// Refresh exchanges a refresh token for a new access token, persisting the
// result if a TokenStore is configured.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*types.TokenInfo, error) {
	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, types.NewSyncError(types.ErrorClassAuth, types.CodeNotSignedIn, "refresh access token", err)
	}

	info := tokenInfoFrom(token)
	if c.store != nil {
		if err := c.store.SaveToken(info); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
	}
	return info, nil
}

func tokenInfoFrom(token *oauth2.Token) *types.TokenInfo {
	info := &types.TokenInfo{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}
	if !token.Expiry.IsZero() {
		info.ExpiresIn = int(time.Until(token.Expiry).Seconds())
	}
	return info
}

// IsSignedIn reports whether a non-expired token is on file.
func (c *Client) IsSignedIn() bool {
	if c.store == nil {
		return false
	}
	token, found, err := c.store.LoadToken()
	if err != nil || !found {
		return false
	}
	return tokenValid(token)
}

func tokenValid(token *types.TokenInfo) bool {
	if token == nil || token.AccessToken == "" {
		return false
	}
	return time.Now().Add(5 * time.Minute).Before(token.ExpiresAt)
}

// GetToken returns a usable access token, transparently refreshing it via
// the stored refresh token if the current one is near expiry. Implements
// the remotestore/zoho.TokenSource contract.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	if c.store == nil {
		return "", types.NewSyncError(types.ErrorClassAuth, types.CodeNotSignedIn, "no token store configured", nil)
	}

	token, found, err := c.store.LoadToken()
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if !found {
		return "", types.NewSyncError(types.ErrorClassAuth, types.CodeNotSignedIn, "not signed in", nil)
	}
	if tokenValid(token) {
		return token.AccessToken, nil
	}

	refreshed, err := c.Refresh(ctx, token.RefreshToken)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// AccessToken satisfies internal/remotestore/zoho.TokenSource.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	return c.GetToken(ctx)
}

// SignOut clears any persisted token.
func (c *Client) SignOut() error {
	if c.store == nil {
		return nil
	}
	return c.store.ClearToken()
}

// ValidateAuthConfig checks that cfg has everything required to start an
// OAuth flow.
func ValidateAuthConfig(cfg types.AuthConfig) error {
	if cfg.ClientID == "" {
		return types.NewSyncError(types.ErrorClassAuth, types.CodeNotSignedIn, "client_id is required", nil)
	}
	if cfg.RedirectURI == "" {
		return types.NewSyncError(types.ErrorClassAuth, types.CodeNotSignedIn, "redirect_uri is required", nil)
	}
	if _, err := url.Parse(cfg.RedirectURI); err != nil {
		return fmt.Errorf("invalid redirect_uri: %w", err)
	}
	return nil
}

// RunLocalCallbackServer starts a one-shot HTTP server on redirectURI's
// port, waits for the OAuth redirect, and exchanges the resulting code for
// a token. Generalized from the teacher's StartCallbackServer.
func (c *Client) RunLocalCallbackServer(ctx context.Context, redirectURI string) (*types.TokenInfo, error) {
	redirectURL, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}

	resultCh := make(chan *types.TokenInfo, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirectURL.Path, func(w http.ResponseWriter, r *http.Request) {
		if msg := r.URL.Query().Get("error"); msg != "" {
			errCh <- fmt.Errorf("oauth error: %s", msg)
			fmt.Fprintf(w, "<h1>Authentication failed</h1><p>%s</p>", msg)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			errCh <- fmt.Errorf("no authorization code received")
			fmt.Fprint(w, "<h1>Authentication failed</h1><p>no authorization code received</p>")
			return
		}

		token, err := c.Exchange(r.Context(), code, r.URL.Query().Get("state"))
		if err != nil {
			errCh <- err
			fmt.Fprintf(w, "<h1>Authentication failed</h1><p>%s</p>", err.Error())
			return
		}
		resultCh <- token
		fmt.Fprint(w, "<h1>Authentication successful</h1><p>You can close this window.</p>")
	})

	server := &http.Server{Addr: ":" + redirectURL.Port(), Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer server.Close()

	select {
	case token := <-resultCh:
		return token, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, types.NewSyncError(types.ErrorClassAuth, types.CodeNotSignedIn, "authentication timed out", ctx.Err())
	}
}
