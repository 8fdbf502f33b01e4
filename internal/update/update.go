// Package update implements the signed self-update flow (§4.3): discover
// the latest release, download its platform asset and detached signature,
// verify the signature in memory against the pinned public key before
// anything is written to disk, then hand off to the bundled installer
// script. The archive is verified once; it is not re-verified after
// extraction.
package update

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	hcversion "github.com/hashicorp/go-version"
	"github.com/nightlyone/lockfile"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// Asset is a single downloadable file attached to a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

// Release is a single entry from the release index.
type Release struct {
	Tag    string  `json:"tag_name"`
	Assets []Asset `json:"assets"`
}

// NormalizedTag strips a leading "v" and surrounding whitespace, matching
// the exact-mismatch (not semver) comparison §4.3 specifies.
func (r Release) NormalizedTag() string {
	return strings.TrimPrefix(strings.TrimSpace(r.Tag), "v")
}

// ParseVersion validates that a tag (the release's or the compiled-in
// version) is a well-formed version string, for display purposes only -
// §4.3 is explicit that the actual newer-release decision is an exact
// string mismatch, not a semver comparison.
func ParseVersion(tag string) (*hcversion.Version, error) {
	return hcversion.NewVersion(strings.TrimPrefix(strings.TrimSpace(tag), "v"))
}

const httpTimeout = 30 * time.Second

// Updater discovers and applies releases from a release index (a GitHub
// Releases-shaped API by default).
type Updater struct {
	IndexBaseURL string
	HTTPClient   *retryablehttp.Client
}

// New returns an Updater pointed at the release index at indexBaseURL,
// using the same bounded-retry HTTP client shape internal/client's
// NewClient configures, since release-index reads and asset downloads are
// idempotent GETs safe to retry (unlike the auth token endpoint, which
// never retries per §4.2).
func New(indexBaseURL string) *Updater {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = httpTimeout

	return &Updater{
		IndexBaseURL: indexBaseURL,
		HTTPClient:   rc,
	}
}

// Check discovers the latest release and reports it only if it is newer
// than currentVersion. A release is "newer" iff its normalized tag simply
// differs from the compiled-in version - no semver ordering is applied, so
// a stale release index is detected as a downgrade rather than ignored
// (§4.3's intentional exact-mismatch rule).
func (u *Updater) Check(ctx context.Context, currentVersion string, prerelease bool) (*Release, error) {
	release, err := u.discover(ctx, prerelease)
	if err != nil {
		return nil, err
	}
	if release.NormalizedTag() == strings.TrimPrefix(strings.TrimSpace(currentVersion), "v") {
		return nil, nil
	}
	return release, nil
}

func (u *Updater) discover(ctx context.Context, prerelease bool) (*Release, error) {
	path := "/releases/latest"
	if prerelease {
		path = "/releases"
	}

	reqCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(reqCtx, http.MethodGet, u.IndexBaseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building release index request")
	}

	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching release index")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release index returned status %d", resp.StatusCode)
	}

	if prerelease {
		var releases []Release
		if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
			return nil, errors.Wrap(err, "decoding release index")
		}
		if len(releases) == 0 {
			return nil, errors.New("release index returned no releases")
		}
		return &releases[0], nil
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, errors.Wrap(err, "decoding latest release")
	}
	return &release, nil
}

// TargetTriple names the known platform archive suffixes (§4.3). Only
// x86_64/aarch64 on linux-gnu/darwin are published.
func TargetTriple(goarch, goos string) (string, error) {
	var arch string
	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	default:
		return "", ErrUnsupportedPlatform
	}

	var osName string
	switch goos {
	case "linux":
		osName = "unknown-linux-gnu"
	case "darwin":
		osName = "apple-darwin"
	default:
		return "", ErrUnsupportedPlatform
	}

	return arch + "-" + osName, nil
}

// CurrentTargetTriple resolves the triple for the platform this binary is
// currently running on.
func CurrentTargetTriple() (string, error) {
	return TargetTriple(runtime.GOARCH, runtime.GOOS)
}

// assetNames returns the zip and signature asset names expected for a
// given target triple (§6).
func assetNames(triple string) (zipName, sigName string) {
	zipName = fmt.Sprintf("phylum-%s.zip", triple)
	return zipName, zipName + ".signature"
}

func findAsset(release *Release, name string) (*Asset, bool) {
	for i := range release.Assets {
		if release.Assets[i].Name == name {
			return &release.Assets[i], true
		}
	}
	return nil, false
}

func (u *Updater) downloadBytes(ctx context.Context, url string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building download request")
	}

	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "downloading asset")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from %s", ErrDownloadFailed, resp.StatusCode, url)
	}

	bar := progressbar.DefaultBytes(resp.ContentLength, "downloading "+filepath.Base(url))
	var buf bytes.Buffer
	if _, err := io.Copy(io.MultiWriter(&buf, bar), resp.Body); err != nil {
		return nil, errors.Wrap(err, "reading downloaded asset")
	}
	return buf.Bytes(), nil
}

// FetchAndVerify locates, downloads, and signature-verifies the zip asset
// for triple within release, entirely in memory: the archive bytes are
// never written to disk before verification completes (§4.3 step 2-3).
func (u *Updater) FetchAndVerify(ctx context.Context, release *Release, triple string) ([]byte, error) {
	zipName, sigName := assetNames(triple)

	zipAsset, ok := findAsset(release, zipName)
	if !ok {
		return nil, errors.Wrapf(ErrAssetMissing, "%s", zipName)
	}
	sigAsset, ok := findAsset(release, sigName)
	if !ok {
		// §9 open question: a missing signature is always a hard error,
		// even when the zip itself was found.
		return nil, errors.Wrapf(ErrAssetMissing, "%s", sigName)
	}

	zipBytes, err := u.downloadBytes(ctx, zipAsset.DownloadURL)
	if err != nil {
		return nil, err
	}
	sigBytes, err := u.downloadBytes(ctx, sigAsset.DownloadURL)
	if err != nil {
		return nil, err
	}

	if err := VerifySignature(zipBytes, sigBytes); err != nil {
		return nil, err
	}

	return zipBytes, nil
}

// VerifySignature checks an RSA-PKCS#1v1.5-over-SHA256 signature of
// payload against the pinned public key (§4.3 step 3). It never touches
// the filesystem, so a failure here leaves nothing installed.
func VerifySignature(payload, signature []byte) error {
	block, _ := pem.Decode([]byte(pinnedPublicKeyPEM))
	if block == nil {
		return errors.New("update: pinned public key is malformed")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return errors.Wrap(err, "parsing pinned public key")
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return errors.New("update: pinned public key is not RSA")
	}

	sum := sha256.Sum256(payload)
	if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA256, sum[:], signature); err != nil {
		return errors.Wrap(ErrSignatureInvalid, err.Error())
	}
	return nil
}

// Apply extracts a verified zip archive to a temporary directory and runs
// its install.sh (§4.3 step 4). The caller is responsible for having
// already verified zipBytes via FetchAndVerify: Apply does not re-download
// or re-verify, it only unpacks and executes.
//
// A PID lockfile under the system temp directory keeps two concurrent
// `phylum update` invocations from racing to overwrite the same installed
// binary; a second invocation fails fast with ErrUpdateInProgress rather
// than stepping on the first's half-applied install.
func Apply(ctx context.Context, zipBytes []byte) error {
	lock, err := lockfile.New(filepath.Join(os.TempDir(), "phylum-update.lock"))
	if err != nil {
		return errors.Wrap(err, "constructing update lockfile")
	}
	if err := lock.TryLock(); err != nil {
		return errors.Wrap(ErrUpdateInProgress, err.Error())
	}
	defer func() { _ = lock.Unlock() }()

	tmpDir, err := os.MkdirTemp("", "phylum-update-*")
	if err != nil {
		return errors.Wrap(err, "creating temporary extraction directory")
	}
	defer os.RemoveAll(tmpDir)

	if err := extractZip(zipBytes, tmpDir); err != nil {
		return errors.Wrap(err, "extracting update archive")
	}

	installer := filepath.Join(tmpDir, "install.sh")
	cmd := exec.CommandContext(ctx, installer)
	cmd.Dir = tmpDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrap(ErrInstallerFailed, err.Error())
	}
	return nil
}

// extractZip writes every entry of a zip archive under destDir, rejecting
// any entry whose name would escape destDir (zip-slip).
func extractZip(zipBytes []byte, destDir string) error {
	r, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return err
	}

	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) && target != filepath.Clean(destDir) {
			return fmt.Errorf("update: zip entry %q escapes extraction directory", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// InstallBinary atomically swaps dest with a verified binary already
// unpacked at srcPath, satisfying §4.3's invariant ("verify, then rename
// from temp on the same filesystem"): os.Rename is atomic when src and
// dest share a filesystem, so a process reading dest never observes a
// partially-written file.
func InstallBinary(srcPath, dest string) error {
	if err := os.Chmod(srcPath, 0o755); err != nil {
		return errors.Wrap(err, "setting installed binary permissions")
	}
	if err := os.Rename(srcPath, dest); err != nil {
		return errors.Wrap(err, "moving verified binary into place")
	}
	return nil
}
