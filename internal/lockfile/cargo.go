package lockfile

import (
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

func init() {
	register(Parser{
		Format:     FormatCargoLock,
		name:       "cargo-lock",
		Parse:      parseCargoLock,
		IsLockfile: isCargoLock,
		Generate:   generateCargoLock,
	})
}

func isCargoLock(path string) bool {
	return filepath.Base(path) == "Cargo.lock"
}

func generateCargoLock(manifestDir string) error {
	return runGenerator(manifestDir, "cargo", "generate-lockfile")
}

type cargoLockfile struct {
	Package []cargoPackage `toml:"package"`
}

type cargoPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Source  string `toml:"source"`
}

// parseCargoLock drops workspace members (no "source" field - they are
// local, not upstream) and maps "source = git+URL" to Git, everything else
// to FirstParty (§4.1, §8 scenario 2).
func parseCargoLock(content []byte) ([]Package, error) {
	var lf cargoLockfile
	if err := toml.Unmarshal(content, &lf); err != nil {
		return nil, errors.Wrap(err, "decoding Cargo.lock")
	}

	var out []Package
	for _, p := range lf.Package {
		if p.Source == "" {
			continue
		}
		out = append(out, Package{
			Name:      p.Name,
			Ecosystem: EcosystemCargo,
			Version:   cargoVersion(p),
		})
	}
	return out, nil
}

func cargoVersion(p cargoPackage) Version {
	if strings.HasPrefix(p.Source, "git+") {
		return GitVersion(p.Source)
	}
	return FirstPartyVersion(p.Version)
}
