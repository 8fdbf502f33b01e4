package lockfile

import (
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

func init() {
	register(Parser{
		Format:     FormatPoetry,
		name:       "poetry",
		Parse:      parsePoetryLock,
		IsLockfile: isPoetryLock,
		Generate:   generatePoetryLock,
	})
}

func isPoetryLock(path string) bool {
	return filepath.Base(path) == "poetry.lock"
}

func generatePoetryLock(manifestDir string) error {
	return runGenerator(manifestDir, "poetry", "lock", "--no-update")
}

type poetryLockfile struct {
	Package []poetryPackage `toml:"package"`
}

type poetryPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Source  *struct {
		Type string `toml:"type"`
		URL  string `toml:"url"`
	} `toml:"source"`
}

// parsePoetryLock maps each package's source.type to the matching version
// variant; an absent source means FirstParty, and the legacy PyPI simple
// index URL normalizes to FirstParty rather than ThirdParty (§4.1).
func parsePoetryLock(content []byte) ([]Package, error) {
	var lf poetryLockfile
	if err := toml.Unmarshal(content, &lf); err != nil {
		return nil, errors.Wrap(err, "decoding poetry.lock")
	}

	var out []Package
	for _, p := range lf.Package {
		out = append(out, Package{
			Name:      p.Name,
			Ecosystem: EcosystemPyPI,
			Version:   poetryVersion(p),
		})
	}
	return out, nil
}

const legacyPyPIIndex = "https://pypi.org/simple"

func poetryVersion(p poetryPackage) Version {
	if p.Source == nil {
		return FirstPartyVersion(p.Version)
	}
	switch p.Source.Type {
	case "legacy":
		if p.Source.URL == legacyPyPIIndex {
			return FirstPartyVersion(p.Version)
		}
		return ThirdPartyVersion(p.Version, p.Source.URL)
	case "directory":
		return PathVersion(p.Source.URL)
	case "file":
		return DownloadURLVersion(p.Source.URL)
	case "git":
		return GitVersion(p.Source.URL)
	case "url":
		return DownloadURLVersion(p.Source.URL)
	default:
		return FirstPartyVersion(p.Version)
	}
}
