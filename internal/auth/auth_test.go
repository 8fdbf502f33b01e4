package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPKCEVerifierLengthWithinSpecRange(t *testing.T) {
	pair, err := newPKCEPair()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(pair.Verifier), 43)
	assert.LessOrEqual(t, len(pair.Verifier), 128)
}

func TestPKCEChallengeIsDeterministicFunctionOfVerifier(t *testing.T) {
	pair, err := newPKCEPair()
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Challenge)
	assert.NotContains(t, pair.Challenge, "=")
	assert.NotEqual(t, pair.Verifier, pair.Challenge)
	sum := sha256.Sum256([]byte(pair.Verifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), pair.Challenge)
}

func TestIsLocksmithTokenRecognizesPrefix(t *testing.T) {
	assert.True(t, IsLocksmithToken("locksmith_abc123"))
	assert.False(t, IsLocksmithToken("abc123"))
}

func TestRoutabilityGuardRejectsHTTPToPublicHost(t *testing.T) {
	err := checkRoutability("http", "93.184.216.34")
	assert.ErrorIs(t, err, ErrRoutabilityViolation)
}

func TestRoutabilityGuardAllowsHTTPToLoopback(t *testing.T) {
	assert.NoError(t, checkRoutability("http", "127.0.0.1"))
	assert.NoError(t, checkRoutability("http", "localhost"))
	assert.NoError(t, checkRoutability("http", "0.0.0.0"))
	assert.NoError(t, checkRoutability("http", "::1"))
}

func TestRoutabilityGuardRejectsHTTPToLANHost(t *testing.T) {
	err := checkRoutability("http", "10.0.0.5")
	assert.ErrorIs(t, err, ErrRoutabilityViolation)
}

func TestRoutabilityGuardAllowsHTTPSRegardlessOfHost(t *testing.T) {
	assert.NoError(t, checkRoutability("https", "93.184.216.34"))
}

func TestRefreshSurfacesAccountNotActivated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"not_allowed","error_description":"account pending activation"}`))
	}))
	defer srv.Close()

	_, err := Refresh(context.Background(), srv.URL, "client-id", "some-refresh-token")
	assert.ErrorIs(t, err, ErrAccountNotActivated)
}

func TestBuildAuthorizationURLIncludesPKCEParams(t *testing.T) {
	u, err := buildAuthorizationURL("https://idp.example.com/authorize", "client-id", "http://127.0.0.1:9999/callback", "chal123", "state456")
	require.NoError(t, err)
	assert.True(t, strings.Contains(u, "code_challenge=chal123"))
	assert.True(t, strings.Contains(u, "code_challenge_method=S256"))
	assert.True(t, strings.Contains(u, "state=state456"))
}
