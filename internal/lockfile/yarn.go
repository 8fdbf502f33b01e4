package lockfile

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	yarnlock "github.com/iseki0/go-yarnlock"
	"github.com/pkg/errors"
)

func init() {
	register(Parser{
		Format:     FormatYarnV1,
		name:       "yarn-v1",
		Parse:      parseYarnV1,
		IsLockfile: isYarnLockfile,
		Generate:   generateYarnLockfile,
	})
	register(Parser{
		Format:     FormatYarnBerry,
		name:       "yarn-berry",
		Parse:      parseYarnBerry,
		IsLockfile: isYarnLockfile,
		Generate:   generateYarnLockfile,
	})
}

func isYarnLockfile(path string) bool {
	return strings.HasSuffix(path, "yarn.lock")
}

func generateYarnLockfile(manifestDir string) error {
	return runGenerator(manifestDir, "yarn", "install", "--mode", "update-lockfile")
}

// block is one header+indented-properties group of a yarn.lock file, as
// read by parseYarnBerry (the v1 dialect is decoded by go-yarnlock).
type block struct {
	header string
	props  []string
}

func groupYarnBlocks(content []byte) ([]block, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var blocks []block
	var current *block
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !strings.HasPrefix(line, " ") {
			if current != nil {
				blocks = append(blocks, *current)
			}
			current = &block{header: strings.TrimSuffix(line, ":")}
		} else if current == nil {
			return nil, errors.New("malformed yarn.lock: indented line before any header")
		} else {
			current.props = append(current.props, strings.TrimSpace(line))
		}
	}
	if current != nil {
		blocks = append(blocks, *current)
	}
	return blocks, scanner.Err()
}

var yarnVersionRe = regexp.MustCompile(`^"?version"?:? "?([\w.\-+]+)"?$`)
var yarnResolutionRe = regexp.MustCompile(`^"?resolution"?:? "([^"]+)"$`)

func blockProp(props []string, re *regexp.Regexp) string {
	for _, p := range props {
		if m := re.FindStringSubmatch(p); m != nil {
			return m[1]
		}
	}
	return ""
}

// parseYarnV1 handles the legacy yarn.lock grammar (no `__metadata`
// sentinel) by delegating the header/property grammar to go-yarnlock, the
// same decoder the teacher's own yarn_lockfile.go uses for its classic
// lockfile support.
func parseYarnV1(content []byte) ([]Package, error) {
	if bytes.Contains(content, []byte("__metadata:")) {
		return nil, errors.New("not a yarn v1 lockfile")
	}

	lf, err := yarnlock.ParseLockFileData(content)
	if err != nil {
		return nil, errors.Wrap(err, "parsing yarn v1 lockfile")
	}

	var out []Package
	for key, entry := range lf {
		name := yarnV1Name(key)
		if name == "" {
			continue
		}
		out = append(out, Package{
			Name:      name,
			Ecosystem: EcosystemNpm,
			Version:   FirstPartyVersion(entry.Version),
		})
	}
	return out, nil
}

func yarnV1Name(header string) string {
	first := strings.Split(header, ",")[0]
	first = strings.Trim(first, "\"")
	isScoped := strings.HasPrefix(first, "@")
	if isScoped {
		first = strings.TrimPrefix(first, "@")
	}
	name := first
	if idx := strings.LastIndex(first, "@"); idx > 0 {
		name = first[:idx]
	}
	if isScoped {
		name = "@" + name
	}
	return name
}

// parseYarnBerry handles yarn v2+ (berry) lockfiles: YAML-ish, identified
// by the `__metadata` sentinel block. Headers take the form
// `name@<resolver>[, name@<resolver>]*` and patched dependencies look like
// `name@patch:<inner-resolver>#patch`.
func parseYarnBerry(content []byte) ([]Package, error) {
	if !bytes.Contains(content, []byte("__metadata:")) {
		return nil, errors.New("not a yarn berry lockfile")
	}

	blocks, err := groupYarnBlocks(content)
	if err != nil {
		return nil, err
	}

	var out []Package
	for _, b := range blocks {
		if b.header == "__metadata" {
			continue
		}
		spec := strings.TrimSpace(strings.Split(b.header, ",")[0])
		spec = strings.Trim(spec, "\"")

		name, resolver, ok := splitBerrySpec(spec)
		if !ok {
			continue
		}

		version := blockProp(b.props, yarnVersionRe)
		resolution := blockProp(b.props, yarnResolutionRe)

		pkg, skip := classifyBerryResolver(name, resolver, version, resolution)
		if skip {
			continue
		}
		out = append(out, pkg)
	}
	return out, nil
}

// splitBerrySpec separates a berry package header ("name@resolver") into
// name and resolver, accounting for scoped package names.
func splitBerrySpec(spec string) (name, resolver string, ok bool) {
	isScoped := strings.HasPrefix(spec, "@")
	search := spec
	if isScoped {
		search = spec[1:]
	}
	idx := strings.Index(search, "@")
	if idx < 0 {
		return "", "", false
	}
	name = search[:idx]
	resolver = search[idx+1:]
	if isScoped {
		name = "@" + name
	}
	return name, resolver, true
}

// classifyBerryResolver maps a berry resolver protocol to a Version
// variant per §4.1's yarn v2+ rules. skip is true for the "workspace root"
// self-entry (`workspace:.`).
func classifyBerryResolver(name, resolver, version, resolution string) (pkg Package, skip bool) {
	// Patched deps: name@patch:<inner>#patch - recover the inner resolver.
	if strings.HasPrefix(resolver, "patch:") {
		inner := strings.TrimPrefix(resolver, "patch:")
		if hashIdx := strings.Index(inner, "#"); hashIdx >= 0 {
			inner = inner[:hashIdx]
		}
		_, innerResolver, ok := splitBerrySpec(inner)
		if ok {
			resolver = innerResolver
		}
	}

	switch {
	case resolver == "workspace:.":
		return Package{}, true
	case strings.HasPrefix(resolver, "workspace:"):
		return Package{Name: name, Ecosystem: EcosystemNpm, Version: PathVersion(strings.TrimPrefix(resolver, "workspace:"))}, false
	case strings.HasPrefix(resolver, "file:"):
		return Package{Name: name, Ecosystem: EcosystemNpm, Version: PathVersion(strings.TrimPrefix(resolver, "file:"))}, false
	case strings.HasPrefix(resolver, "link:"):
		return Package{Name: name, Ecosystem: EcosystemNpm, Version: PathVersion(strings.TrimPrefix(resolver, "link:"))}, false
	case strings.HasPrefix(resolver, "npm:"):
		return Package{Name: name, Ecosystem: EcosystemNpm, Version: FirstPartyVersion(version)}, false
	case strings.HasPrefix(resolver, "http:"), strings.HasPrefix(resolver, "https:"), strings.HasPrefix(resolver, "ssh:"):
		target := resolution
		if target == "" {
			target = resolver
		}
		if strings.Contains(target, "#commit=") {
			return Package{Name: name, Ecosystem: EcosystemNpm, Version: GitVersion(target)}, false
		}
		return Package{Name: name, Ecosystem: EcosystemNpm, Version: DownloadURLVersion(target)}, false
	default:
		// Bare semver range with no protocol prefix behaves like npm:.
		return Package{Name: name, Ecosystem: EcosystemNpm, Version: FirstPartyVersion(version)}, false
	}
}
