package lockfile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"
)

// maxWalkDepth bounds the breadth-first project-root walk used to find a
// manifest's sibling lockfile (§4.1 step 3).
const maxWalkDepth = 5

// docLink is appended to hard errors that point the user at a fixable
// problem (§4.1's generation failure contract).
const docLink = "https://docs.phylum.io/docs/lockfile_generation"

// Resolve implements the format dispatch algorithm in §4.1: a caller-
// supplied format hint wins outright; otherwise the first parser whose
// IsLockfile claims path wins; otherwise, if path is a manifest, a sibling
// lockfile is preferred over generation; otherwise every parser is tried
// against content in enumeration order and the first non-empty result
// wins, with warning set to note the guess.
func Resolve(formatHint *Format, path string, content []byte) (pkgs []Package, warning string, err error) {
	if formatHint != nil {
		p, ok := ParserFor(*formatHint)
		if !ok {
			return nil, "", &UnknownFormatError{Path: path}
		}
		pkgs, err = p.Parse(content)
		if err != nil {
			return nil, "", &ParseFailureError{Path: path, Err: err}
		}
		return pkgs, "", nil
	}

	for _, p := range Parsers() {
		if p.IsLockfile != nil && p.IsLockfile(path) {
			pkgs, err = p.Parse(content)
			if err != nil {
				return nil, "", &ParseFailureError{Path: path, Err: err}
			}
			return pkgs, "", nil
		}
	}

	if manifestParser, ok := claimingManifestParser(path); ok {
		return resolveManifest(manifestParser, path, content)
	}

	return fallbackParse(path, content)
}

func claimingManifestParser(path string) (Parser, bool) {
	for _, p := range Parsers() {
		if p.IsManifest != nil && p.IsManifest(path) {
			return p, true
		}
	}
	return Parser{}, false
}

// resolveManifest implements §4.1 step 3: walk the project root for a
// sibling lockfile claimed by any parser; if found, parse that instead.
// Otherwise this manifest is a generation candidate.
func resolveManifest(manifestParser Parser, path string, content []byte) ([]Package, string, error) {
	root := filepath.Dir(path)

	if lockfilePath, lockfileParser, ok := findSiblingLockfile(root); ok {
		data, err := os.ReadFile(lockfilePath)
		if err != nil {
			return nil, "", errors.Wrapf(err, "reading %s", lockfilePath)
		}
		pkgs, err := lockfileParser.Parse(data)
		if err != nil {
			return nil, "", &ParseFailureError{Path: lockfilePath, Err: err}
		}
		return pkgs, "", nil
	}

	if manifestParser.Generate == nil {
		return nil, "", &ManifestWithoutGenerationError{Path: path}
	}

	manifestDir, err := filepath.Abs(root)
	if err != nil {
		return nil, "", errors.Wrap(err, "resolving manifest directory")
	}
	if err := manifestParser.Generate(manifestDir); err != nil {
		return nil, "", &GenerationFailureError{Path: path, Err: errors.Wrap(err, docLink)}
	}

	// Re-walk: the generator just wrote the lockfile this manifest's
	// parser (or a sibling parser) claims.
	if lockfilePath, lockfileParser, ok := findSiblingLockfile(root); ok {
		data, err := os.ReadFile(lockfilePath)
		if err != nil {
			return nil, "", errors.Wrapf(err, "reading generated %s", lockfilePath)
		}
		pkgs, err := lockfileParser.Parse(data)
		if err != nil {
			return nil, "", &ParseFailureError{Path: lockfilePath, Err: err}
		}
		return pkgs, "", nil
	}
	_ = content
	return nil, "", &GenerationFailureError{Path: path, Err: errors.New("generator ran but produced no recognisable lockfile")}
}

// levelResult is one directory's scan outcome within a BFS level: the
// subdirectories it contributes to the next level, and a lockfile match if
// one of its entries was claimed by a parser.
type levelResult struct {
	subdirs []string
	match   string
	parser  Parser
	found   bool
}

// findSiblingLockfile walks root breadth-first (gitignore-aware, depth <=
// maxWalkDepth) looking for any file a registered parser's IsLockfile
// claims. Each level's directories are scanned concurrently via errgroup,
// since a project root can fan out widely (node_modules-adjacent repos
// especially) and the scans are independent I/O-bound directory reads.
func findSiblingLockfile(root string) (string, Parser, bool) {
	ignore := compileIgnore(root)

	type node struct {
		path  string
		depth int
	}
	level := []node{{path: root, depth: 0}}

	for len(level) > 0 {
		results := make([]levelResult, len(level))

		g, _ := errgroup.WithContext(context.Background())
		for i, cur := range level {
			i, cur := i, cur
			if cur.depth > maxWalkDepth {
				continue
			}
			g.Go(func() error {
				results[i] = scanLevelDir(root, cur.path, cur.depth, ignore)
				return nil
			})
		}
		_ = g.Wait()

		var next []node
		for i, cur := range level {
			r := results[i]
			if r.found {
				return r.match, r.parser, true
			}
			for _, sub := range r.subdirs {
				next = append(next, node{path: sub, depth: cur.depth + 1})
			}
		}
		level = next
	}
	return "", Parser{}, false
}

func scanLevelDir(root, dir string, depth int, ignore *gitignore.GitIgnore) levelResult {
	var res levelResult

	entries, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return res
	}
	for _, ent := range entries {
		full := filepath.Join(dir, ent.Name())
		rel, relErr := filepath.Rel(root, full)
		if relErr == nil && ignore.MatchesPath(rel) {
			continue
		}
		if ent.IsDir() {
			if depth+1 <= maxWalkDepth {
				res.subdirs = append(res.subdirs, full)
			}
			continue
		}
		for _, p := range Parsers() {
			if p.IsLockfile != nil && p.IsLockfile(full) {
				res.match, res.parser, res.found = full, p, true
				return res
			}
		}
	}
	return res
}

func compileIgnore(root string) *gitignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err == nil {
		if ig, err := gitignore.CompileIgnoreFile(path); err == nil {
			return ig
		}
	}
	return gitignore.CompileIgnoreLines()
}

// fallbackParse tries every parser in enumeration order and accepts the
// first that yields a non-empty package list (§4.1 step 4). Individual
// parser errors are expected here - most parsers reject input that isn't
// theirs - so they are collected into a multierror rather than surfaced
// directly; only a universal failure to find a claimant is, with the
// aggregate attached for diagnostics.
func fallbackParse(path string, content []byte) ([]Package, string, error) {
	var tried *multierror.Error
	for _, p := range Parsers() {
		pkgs, err := p.Parse(content)
		if err != nil {
			tried = multierror.Append(tried, errors.Wrapf(err, "tried %s", p.name))
			continue
		}
		if len(pkgs) == 0 {
			continue
		}
		return pkgs, "guessed format " + p.name + " for " + path, nil
	}
	return nil, "", &UnknownFormatError{Path: path, Attempts: tried.ErrorOrNil()}
}
