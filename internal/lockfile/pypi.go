package lockfile

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
)

func init() {
	register(Parser{
		Format:     FormatPyPIRequirements,
		name:       "pypi-requirements",
		Parse:      parsePyPIRequirements,
		IsLockfile: isPyPIRequirements,
	})
}

func isPyPIRequirements(path string) bool {
	base := filepath.Base(path)
	return base == "requirements.txt" || strings.HasSuffix(base, "-requirements.txt")
}

var pypiPinRe = regexp.MustCompile(`^([A-Za-z0-9._-]+)(\[[^\]]*\])?==([A-Za-z0-9.\-+!]+)`)
var pypiURIRe = regexp.MustCompile(`^([A-Za-z0-9._-]+)\s*@\s*(.+)$`)

// parsePyPIRequirements handles one dependency per line: exact pins
// (`name==version`, optional `[extras]`, optional `; marker` and
// `--hash=` tails, both ignored), `-e` editable git/path deps, and
// `name @ uri` deps where uri is a file/git/http reference.
func parsePyPIRequirements(content []byte) ([]Package, error) {
	var out []Package
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "-e ") || strings.HasPrefix(line, "--editable ") {
			target := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "-e"), "--editable"))
			out = append(out, pypiEditablePackage(target))
			continue
		}

		if m := pypiURIRe.FindStringSubmatch(line); m != nil && strings.Contains(m[2], "://") {
			out = append(out, pypiURIPackage(m[1], strings.TrimSpace(m[2])))
			continue
		}

		if m := pypiPinRe.FindStringSubmatch(line); m != nil {
			out = append(out, Package{
				Name:      m[1],
				Ecosystem: EcosystemPyPI,
				Version:   FirstPartyVersion(m[3]),
			})
			continue
		}
		// Unpinned requirement (ranges, "*", bare names): not an exact
		// pin, silently skipped per §4.1's "accept only exact pins" rule.
	}
	return out, scanner.Err()
}

func pypiEditablePackage(target string) Package {
	name := editableEggName(target)
	if strings.Contains(target, "://") {
		return Package{Name: name, Ecosystem: EcosystemPyPI, Version: GitVersion(target)}
	}
	return Package{Name: name, Ecosystem: EcosystemPyPI, Version: PathVersion(target)}
}

func editableEggName(target string) string {
	if idx := strings.Index(target, "#egg="); idx >= 0 {
		return target[idx+len("#egg="):]
	}
	return filepath.Base(strings.TrimSuffix(target, "/"))
}

func pypiURIPackage(name, uri string) Package {
	switch {
	case strings.HasPrefix(uri, "git+"):
		return Package{Name: name, Ecosystem: EcosystemPyPI, Version: GitVersion(strings.TrimPrefix(uri, "git+"))}
	case strings.HasPrefix(uri, "file://"):
		return Package{Name: name, Ecosystem: EcosystemPyPI, Version: PathVersion(strings.TrimPrefix(uri, "file://"))}
	default:
		return Package{Name: name, Ecosystem: EcosystemPyPI, Version: DownloadURLVersion(uri)}
	}
}
