package lockfile

import (
	"encoding/json"
	"path/filepath"

	"github.com/pkg/errors"
)

func init() {
	register(Parser{
		Format:     FormatPipfileLock,
		name:       "pipfile-lock",
		Parse:      parsePipfileLock,
		IsLockfile: isPipfileLock,
	})
}

func isPipfileLock(path string) bool {
	return filepath.Base(path) == "Pipfile.lock"
}

type pipfileLock struct {
	Default map[string]pipfileEntry `json:"default"`
	Develop map[string]pipfileEntry `json:"develop"`
}

type pipfileEntry struct {
	Version string `json:"version"`
	Git     string `json:"git"`
	Ref     string `json:"ref"`
	Path    string `json:"path"`
	File    string `json:"file"`
}

// parsePipfileLock merges the default and develop dependency groups. Each
// entry must have exactly one of {version, git+ref, path, file}; more or
// fewer is a parse error (§4.1).
func parsePipfileLock(content []byte) ([]Package, error) {
	var lf pipfileLock
	if err := json.Unmarshal(content, &lf); err != nil {
		return nil, errors.Wrap(err, "decoding Pipfile.lock")
	}

	var out []Package
	for _, group := range []map[string]pipfileEntry{lf.Default, lf.Develop} {
		for name, entry := range group {
			pkg, err := pipfileEntryToPackage(name, entry)
			if err != nil {
				return nil, err
			}
			out = append(out, pkg)
		}
	}
	return out, nil
}

func pipfileEntryToPackage(name string, e pipfileEntry) (Package, error) {
	set := 0
	if e.Version != "" {
		set++
	}
	if e.Git != "" {
		set++
	}
	if e.Path != "" {
		set++
	}
	if e.File != "" {
		set++
	}
	if set != 1 {
		return Package{}, errors.Errorf("Pipfile.lock entry %q has ambiguous or missing resolution (version/git/path/file)", name)
	}

	switch {
	case e.Version != "":
		return Package{Name: name, Ecosystem: EcosystemPyPI, Version: FirstPartyVersion(trimPinPrefix(e.Version))}, nil
	case e.Git != "":
		ref := e.Git
		if e.Ref != "" {
			ref = e.Git + "#" + e.Ref
		}
		return Package{Name: name, Ecosystem: EcosystemPyPI, Version: GitVersion(ref)}, nil
	case e.Path != "":
		return Package{Name: name, Ecosystem: EcosystemPyPI, Version: PathVersion(e.Path)}, nil
	default:
		return Package{Name: name, Ecosystem: EcosystemPyPI, Version: DownloadURLVersion(e.File)}, nil
	}
}

func trimPinPrefix(v string) string {
	for _, prefix := range []string{"==", ">=", "<=", "~=", "!="} {
		if len(v) > len(prefix) && v[:len(prefix)] == prefix {
			return v[len(prefix):]
		}
	}
	return v
}
