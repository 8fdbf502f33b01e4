package lockfile

import (
	"encoding/json"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

func init() {
	register(Parser{
		Format:     FormatNpmV7,
		name:       "npm-v7",
		Parse:      parseNpmV7,
		IsLockfile: isNpmLockfile,
		IsManifest: isNpmManifest,
		Generate:   generateNpmLockfile,
	})
	register(Parser{
		Format: FormatNpmV6,
		name:   "npm-v6",
		Parse:  parseNpmV6,
		// IsLockfile is intentionally nil: package-lock.json is claimed once,
		// by npm-v7 above, which branches on lockfileVersion internally and
		// delegates to parseNpmV6 for pre-v2 content. This format tag still
		// resolves via an explicit --lockfile-type hint and participates in
		// fallbackParse's content-guessing pass.
	})
}

func isNpmLockfile(path string) bool {
	return filepath.Base(path) == "package-lock.json"
}

func isNpmManifest(path string) bool {
	return filepath.Base(path) == "package.json"
}

func generateNpmLockfile(manifestDir string) error {
	return runGenerator(manifestDir, "npm", "install", "--package-lock-only")
}

type npmLockfileV7 struct {
	LockfileVersion int                         `json:"lockfileVersion"`
	Packages        map[string]npmLockfilePkgV7 `json:"packages"`
}

type npmLockfilePkgV7 struct {
	Version  string `json:"version"`
	Resolved string `json:"resolved"`
	InBundle bool   `json:"inBundle"`
}

// parseNpmV7 handles package-lock.json regardless of version: lockfileVersion
// 2/3 ("packages" keyed by node_modules path) is parsed here directly, and
// lockfileVersion < 2 (the v6 "dependencies" grammar) is delegated to
// parseNpmV6. Auto-detection only ever claims package-lock.json once (this
// parser), so the version split has to happen inside Parse rather than at
// IsLockfile, which never sees file content.
func parseNpmV7(content []byte) ([]Package, error) {
	var lf npmLockfileV7
	if err := json.Unmarshal(content, &lf); err != nil {
		return nil, errors.Wrap(err, "decoding npm lockfile")
	}
	if lf.LockfileVersion < 2 {
		return parseNpmV6(content)
	}

	var out []Package
	for key, pkg := range lf.Packages {
		if key == "" || pkg.InBundle {
			continue
		}
		name := npmNameFromKey(key)
		if name == "" {
			continue
		}
		out = append(out, Package{
			Name:      name,
			Ecosystem: EcosystemNpm,
			Version:   classifyNpmResolved(pkg.Resolved, pkg.Version),
		})
	}
	return out, nil
}

// npmNameFromKey strips the "node_modules/" prefix chain off a packages
// key, leaving the final package name (including scope, if any).
func npmNameFromKey(key string) string {
	idx := strings.LastIndex(key, "node_modules/")
	if idx < 0 {
		return ""
	}
	return key[idx+len("node_modules/"):]
}

func classifyNpmResolved(resolved, version string) Version {
	switch {
	case strings.HasPrefix(resolved, "https://registry.npmjs.org/"):
		return FirstPartyVersion(version)
	case strings.HasPrefix(resolved, "git+"):
		return GitVersion(strings.TrimPrefix(resolved, "git+"))
	case strings.HasPrefix(resolved, "http://"), strings.HasPrefix(resolved, "https://"):
		if u, err := url.Parse(resolved); err == nil {
			return ThirdPartyVersion(version, u.Host)
		}
		return ThirdPartyVersion(version, resolved)
	default:
		return PathVersion(resolved)
	}
}

type npmLockfileV6 struct {
	Dependencies map[string]npmLockfilePkgV6 `json:"dependencies"`
}

type npmLockfilePkgV6 struct {
	Version  string `json:"version"`
	Resolved string `json:"resolved"`
}

func parseNpmV6(content []byte) ([]Package, error) {
	var lf npmLockfileV6
	if err := json.Unmarshal(content, &lf); err != nil {
		return nil, errors.Wrap(err, "decoding npm v6 lockfile")
	}
	var out []Package
	for name, pkg := range lf.Dependencies {
		out = append(out, Package{
			Name:      name,
			Ecosystem: EcosystemNpm,
			Version:   classifyNpmResolved(pkg.Resolved, pkg.Version),
		})
	}
	return out, nil
}
