package lockfile

// Format is the closed set of dependency-file formats this parser bank
// understands. The name<->tag mapping is stable across versions: it is
// persisted in on-disk project configs, so values must never be reordered
// or renumbered, only appended to.
type Format int

const (
	FormatNpmV6 Format = iota
	FormatNpmV7
	FormatYarnV1
	FormatYarnBerry
	FormatPyPIRequirements
	FormatPipfileLock
	FormatPoetry
	FormatMavenEffectivePom
	FormatGradleLockfile
	FormatGoMod
	FormatGoSum
	FormatCargoLock
	FormatSPDX
	FormatCycloneDX
	FormatDotNetCsproj
)

// Name returns the stable, persisted name of a format.
func (f Format) Name() string {
	if p, ok := parserTable[f]; ok {
		return p.name
	}
	return "unknown"
}

// Generator invokes an ecosystem's own tool to synthesize a lockfile from
// a manifest directory. Implementations run the tool under the OS sandbox
// (see internal/sandbox) with read+execute on the ecosystem's toolchain
// and write access scoped to manifestDir.
type Generator func(manifestDir string) error

// Parser is the static, per-format entry in the parser bank: a tagged
// variant dispatching statically rather than through a dynamic-dispatch
// interface, mirroring the table-of-function-fields shape the teacher
// repo uses for its own per-ecosystem dispatch.
type Parser struct {
	Format Format
	name   string

	// Parse turns raw file content into packages, or a typed error.
	Parse func(content []byte) ([]Package, error)

	// IsLockfile reports whether path names a lockfile this parser owns.
	IsLockfile func(path string) bool

	// IsManifest reports whether path names a manifest this parser can
	// generate a lockfile for.
	IsManifest func(path string) bool

	// Generate is nil when this format has no generation support.
	Generate Generator
}

// parserTable maps each Format to its parser. It is never iterated
// directly: every fallback pass walks parserOrder (registration order)
// instead, since iteration order is part of the dispatch contract (§4.1).
var parserTable = map[Format]Parser{}

var parserOrder []Format

func register(p Parser) {
	parserTable[p.Format] = p
	parserOrder = append(parserOrder, p.Format)
}

// Parsers returns the registered parser bank in fixed enumeration order.
func Parsers() []Parser {
	out := make([]Parser, 0, len(parserOrder))
	for _, f := range parserOrder {
		out = append(out, parserTable[f])
	}
	return out
}

// ParserFor returns the parser bound to a format tag.
func ParserFor(f Format) (Parser, bool) {
	p, ok := parserTable[f]
	return p, ok
}

// FormatByName resolves a format's stable persisted name (e.g. "npm-v7",
// "cargo-lock") back to its tag, for CLI flags and on-disk project configs
// that must spell formats as strings rather than integers.
func FormatByName(name string) (Format, bool) {
	for _, f := range parserOrder {
		if parserTable[f].name == name {
			return f, true
		}
	}
	return 0, false
}
