package lockfile

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
)

func init() {
	register(Parser{
		Format:     FormatGradleLockfile,
		name:       "gradle-lockfile",
		Parse:      parseGradleLockfile,
		IsLockfile: isGradleLockfile,
	})
}

func isGradleLockfile(path string) bool {
	return filepath.Base(path) == "gradle.lockfile"
}

// parseGradleLockfile reads the simple `group:artifact:version=...` line
// grammar.
func parseGradleLockfile(content []byte) ([]Package, error) {
	var out []Package
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "empty=") {
			continue
		}
		spec := line
		if idx := strings.Index(line, "="); idx >= 0 {
			spec = line[:idx]
		}
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) != 3 {
			continue
		}
		out = append(out, Package{
			Name:      parts[0] + ":" + parts[1],
			Ecosystem: EcosystemMaven,
			Version:   FirstPartyVersion(parts[2]),
		})
	}
	return out, scanner.Err()
}
