// Package auth implements the OAuth 2.0 Authorization Code flow with PKCE
// used to log a user in: spin up a loopback callback server, send the
// user's browser to the identity provider, and exchange the resulting code
// for an access/refresh token pair.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/phylum-dev/cli/internal/util/browser"
)

// Endpoints are the identity provider URLs needed to drive the flow.
type Endpoints struct {
	AuthorizationURL string
	TokenURL         string
}

// Tokens is the result of a successful login or refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// locksmithPrefix marks an offline token minted out-of-band (e.g. by a CI
// secret manager) that should be used as-is rather than exchanged or
// refreshed against the token endpoint.
const locksmithPrefix = "locksmith_"

// IsLocksmithToken reports whether token is a pre-minted offline token that
// can answer getAccessToken calls without a network round trip.
func IsLocksmithToken(token string) bool {
	return strings.HasPrefix(token, locksmithPrefix)
}

// tokenHTTPTimeout bounds every request to the token endpoint. Unlike the
// retrying client used for the risk-analysis API, token exchange is not
// retried: a stale authorization code must not be replayed.
const tokenHTTPTimeout = 5 * time.Second

// Login runs one full interactive login attempt: generate a PKCE pair and
// state nonce, open the user's browser at the authorization endpoint, wait
// for the loopback callback, then exchange the code for tokens.
func Login(ctx context.Context, endpoints Endpoints, clientID string) (*Tokens, error) {
	pair, err := newPKCEPair()
	if err != nil {
		return nil, err
	}
	state, err := newState()
	if err != nil {
		return nil, err
	}

	srv, err := newOneShotServer(state)
	if err != nil {
		return nil, errors.Wrap(err, "starting local callback server")
	}
	srv.start()

	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/", srv.Port)
	if err := checkRoutability("http", "127.0.0.1"); err != nil {
		return nil, err
	}

	authURL, err := buildAuthorizationURL(endpoints.AuthorizationURL, clientID, redirectURI, pair.Challenge, state)
	if err != nil {
		return nil, err
	}

	browser.OpenBrowser(authURL)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result, err := srv.wait(waitCtx)
	if err != nil {
		return nil, err
	}

	return exchangeCode(ctx, endpoints.TokenURL, clientID, result.code, pair.Verifier, redirectURI)
}

func buildAuthorizationURL(base, clientID, redirectURI, challenge, state string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, "parsing authorization endpoint")
	}
	if u.Scheme != "https" {
		if err := checkRoutability(u.Scheme, u.Hostname()); err != nil {
			return "", err
		}
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	q.Set("state", state)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func exchangeCode(ctx context.Context, tokenURL, clientID, code, verifier, redirectURI string) (*Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", clientID)
	form.Set("code", code)
	form.Set("code_verifier", verifier)
	form.Set("redirect_uri", redirectURI)

	return postTokenRequest(ctx, tokenURL, form)
}

// Refresh exchanges a refresh token for a new access/refresh token pair.
func Refresh(ctx context.Context, tokenURL, clientID, refreshToken string) (*Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", clientID)
	form.Set("refresh_token", refreshToken)

	return postTokenRequest(ctx, tokenURL, form)
}

func postTokenRequest(ctx context.Context, tokenURL string, form url.Values) (*Tokens, error) {
	reqCtx, cancel := context.WithTimeout(ctx, tokenHTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "building token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: tokenHTTPTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "contacting token endpoint")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil && errBody.Error == "not_allowed" {
			return nil, ErrAccountNotActivated
		}
		return nil, fmt.Errorf("%w: status %d", ErrTokenExchangeFailed, resp.StatusCode)
	}

	var tokens Tokens
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, errors.Wrap(err, "decoding token response")
	}
	return &tokens, nil
}
