package update

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knownGoodBlob and knownGoodSignature are a bundled test fixture signed
// with the private half of the pinned key in pubkey.go (§8's "bundled
// known-good test blob" property).
var knownGoodBlob = []byte("PK\x03\x04 phylum-test-release-blob-for-signature-verification\n")

const knownGoodSignatureB64 = "hgrC2d3AUgT0vcpB8bgbsfvvDPxo4xMwxuSI/oitYgqFicCHV9O/92JOqudUduaLiSR33HikXcDlZDCRpUHkkBTxiLOUQAavEo2ue7mWFdX7ko1F3FPcm7OjydD1HzCHXc03dfoyL3XUXPoAs3WSUQPUaBJha5VV5f3rPEIJq9/52izvherdI52Spi4wYZI0U1NvGHNKvfOXaC/F7b46NFCaoa776gHxsVf8xvEfP9OPA01p692dWXXm1IfT4G+XJpf5I9aV3wzQrLLX6vG9spD65krd5H8lg2ms87+dfDrFr0NxKI48jsdovJHCPcYvcLuUgSOnCnEzJXoAsYaZUg=="

func mustDecodeSignature(t *testing.T) []byte {
	t.Helper()
	sig, err := base64.StdEncoding.DecodeString(knownGoodSignatureB64)
	require.NoError(t, err)
	return sig
}

func TestVerifySignatureAcceptsKnownGoodBlob(t *testing.T) {
	sig := mustDecodeSignature(t)
	assert.NoError(t, VerifySignature(knownGoodBlob, sig))
}

func TestVerifySignatureRejectsFlippedSignatureBit(t *testing.T) {
	sig := mustDecodeSignature(t)
	sig[0] ^= 0x01
	assert.ErrorIs(t, VerifySignature(knownGoodBlob, sig), ErrSignatureInvalid)
}

func TestVerifySignatureRejectsFlippedPayloadBit(t *testing.T) {
	sig := mustDecodeSignature(t)
	tampered := append([]byte(nil), knownGoodBlob...)
	tampered[len(tampered)-1] ^= 0x01
	assert.ErrorIs(t, VerifySignature(tampered, sig), ErrSignatureInvalid)
}

func TestReleaseNormalizedTagStripsLeadingV(t *testing.T) {
	assert.Equal(t, "1.2.3", Release{Tag: "v1.2.3"}.NormalizedTag())
	assert.Equal(t, "1.2.3", Release{Tag: " 1.2.3 "}.NormalizedTag())
}

func TestTargetTripleKnownPlatforms(t *testing.T) {
	triple, err := TargetTriple("amd64", "linux")
	require.NoError(t, err)
	assert.Equal(t, "x86_64-unknown-linux-gnu", triple)

	triple, err = TargetTriple("arm64", "darwin")
	require.NoError(t, err)
	assert.Equal(t, "aarch64-apple-darwin", triple)
}

func TestTargetTripleUnsupportedPlatform(t *testing.T) {
	_, err := TargetTriple("386", "plan9")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestFindAssetMissingSignatureIsHardError(t *testing.T) {
	u := New("https://example.com")
	release := &Release{
		Tag: "v1.0.0",
		Assets: []Asset{
			{Name: "phylum-x86_64-unknown-linux-gnu.zip", DownloadURL: "https://example.com/zip"},
		},
	}
	_, err := u.FetchAndVerify(nil, release, "x86_64-unknown-linux-gnu") //nolint:staticcheck // nil ctx is fine, request never fires: asset lookup fails first
	assert.ErrorIs(t, err, ErrAssetMissing)
}
