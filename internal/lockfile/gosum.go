package lockfile

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
)

// goSumVersionPattern matches the version acceptor shared by the line-
// oriented parsers (§4.1.1): go.sum versions are always "vX.Y.Z..."
// pseudo-versions or tags, never bare words, so this also keeps the
// fallback format guesser (§4.1 step 4) from misclassifying arbitrary
// whitespace-separated text as a go.sum line.
var goSumVersionPattern = regexp.MustCompile(`^v[0-9][A-Za-z0-9.\-+]*$`)

func init() {
	register(Parser{
		Format:     FormatGoSum,
		name:       "go-sum",
		Parse:      parseGoSum,
		IsLockfile: isGoSum,
	})
}

func isGoSum(path string) bool {
	return filepath.Base(path) == "go.sum"
}

// parseGoSum reads the `module version hash` line grammar, yielding one
// FirstParty package per distinct module@version (the /go.mod hash line
// for the same module@version is a duplicate and skipped).
func parseGoSum(content []byte) ([]Package, error) {
	seen := map[string]bool{}
	var out []Package

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		module, version := fields[0], fields[1]
		version = strings.TrimSuffix(version, "/go.mod")
		if !strings.Contains(module, "/") && !strings.Contains(module, ".") {
			continue
		}
		if !goSumVersionPattern.MatchString(version) {
			continue
		}

		key := module + "@" + version
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, Package{Name: module, Ecosystem: EcosystemGolang, Version: FirstPartyVersion(version)})
	}
	return out, scanner.Err()
}
