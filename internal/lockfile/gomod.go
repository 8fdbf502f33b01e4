package lockfile

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	hcversion "github.com/hashicorp/go-version"
	"github.com/pkg/errors"
)

func init() {
	register(Parser{
		Format:     FormatGoMod,
		name:       "go-mod",
		Parse:      parseGoMod,
		IsManifest: isGoMod,
	})
}

func isGoMod(path string) bool {
	return filepath.Base(path) == "go.mod"
}

type goRequire struct {
	path     string
	version  string
	indirect bool
}

type goReplace struct {
	oldPath    string
	oldVersion string
	newPath    string
	newVersion string
}

// parseGoMod implements §4.1's go.mod rules: collect requires (respecting
// "// indirect"), apply exclude (drops a require outright), then apply
// replace - a replace with a target version swaps name+version in place;
// a replace without a version turns the target into a Path package and
// drops every other require sharing its source path, *except* those
// marked indirect (§9's resolved open question: indirect survives
// exclude/replace-drop).
func parseGoMod(content []byte) ([]Package, error) {
	requires := map[string]*goRequire{}
	var excludes []string
	var replaces []goReplace
	var minGo string

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var blockKind string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		if blockKind != "" {
			if line == ")" {
				blockKind = ""
				continue
			}
			consumeGoModLine(blockKind, line, requires, &excludes, &replaces)
			continue
		}

		switch {
		case strings.HasPrefix(line, "go "):
			minGo = strings.TrimSpace(strings.TrimPrefix(line, "go"))
		case line == "require (":
			blockKind = "require"
		case line == "exclude (":
			blockKind = "exclude"
		case line == "replace (":
			blockKind = "replace"
		case strings.HasPrefix(line, "require "):
			consumeGoModLine("require", strings.TrimPrefix(line, "require "), requires, &excludes, &replaces)
		case strings.HasPrefix(line, "exclude "):
			consumeGoModLine("exclude", strings.TrimPrefix(line, "exclude "), requires, &excludes, &replaces)
		case strings.HasPrefix(line, "replace "):
			consumeGoModLine("replace", strings.TrimPrefix(line, "replace "), requires, &excludes, &replaces)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning go.mod")
	}

	if minGo != "" {
		older, err := isGoDirectiveOlderThan(minGo, "1.17")
		if err != nil {
			return nil, errors.Wrapf(err, "parsing go directive %q", minGo)
		}
		if older {
			return nil, errors.Errorf("go.mod requires go >= 1.17, found %q", minGo)
		}
	}

	for _, path := range excludes {
		if r, ok := requires[path]; ok && !r.indirect {
			delete(requires, path)
		}
	}

	droppedPaths := map[string]bool{}
	var pathReplacements []Package
	for _, r := range replaces {
		if r.newVersion != "" {
			if existing, ok := requires[r.oldPath]; ok {
				existing.path = r.newPath
				existing.version = r.newVersion
			}
			continue
		}
		// No new version: target becomes a Path package; drop sibling
		// requires on the same source path unless indirect.
		pathReplacements = append(pathReplacements, Package{
			Name:      r.newPath,
			Ecosystem: EcosystemGolang,
			Version:   PathVersion(r.newPath),
		})
		droppedPaths[r.oldPath] = true
	}

	var out []Package
	for path, r := range requires {
		if droppedPaths[path] && !r.indirect {
			continue
		}
		out = append(out, Package{Name: r.path, Ecosystem: EcosystemGolang, Version: FirstPartyVersion(r.version)})
	}
	out = append(out, pathReplacements...)
	return out, nil
}

func consumeGoModLine(kind, line string, requires map[string]*goRequire, excludes *[]string, replaces *[]goReplace) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	indirect := strings.Contains(line, "// indirect")
	line = strings.SplitN(line, "//", 2)[0]
	line = strings.TrimSpace(line)

	fields := strings.Fields(line)

	switch kind {
	case "require":
		if len(fields) < 2 {
			return
		}
		requires[fields[0]] = &goRequire{path: fields[0], version: fields[1], indirect: indirect}
	case "exclude":
		if len(fields) < 1 {
			return
		}
		*excludes = append(*excludes, fields[0])
	case "replace":
		// "old [oldver] => new [newver]"
		parts := strings.SplitN(line, "=>", 2)
		if len(parts) != 2 {
			return
		}
		left := strings.Fields(strings.TrimSpace(parts[0]))
		right := strings.Fields(strings.TrimSpace(parts[1]))
		if len(left) < 1 || len(right) < 1 {
			return
		}
		r := goReplace{oldPath: left[0], newPath: right[0]}
		if len(left) > 1 {
			r.oldVersion = left[1]
		}
		if len(right) > 1 {
			r.newVersion = right[1]
		}
		*replaces = append(*replaces, r)
	}
}

// isGoDirectiveOlderThan reports whether the `go` directive's version a is
// older than the required minimum b, using go-version's segment-wise
// numeric comparison so a two-component directive like "1.9" sorts correctly
// against a three-component one like "1.17.0".
func isGoDirectiveOlderThan(a, b string) (bool, error) {
	va, err := hcversion.NewVersion(a)
	if err != nil {
		return false, err
	}
	vb, err := hcversion.NewVersion(b)
	if err != nil {
		return false, err
	}
	return va.LessThan(vb), nil
}
