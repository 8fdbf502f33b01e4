package lockfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCargoLockFiltersWorkspaceMembers(t *testing.T) {
	const fixture = `
[[package]]
name = "workspace-root"
version = "0.1.0"

[[package]]
name = "workspace-member"
version = "0.1.0"

[[package]]
name = "serde"
version = "1.0.150"
source = "registry+https://github.com/rust-lang/crates.io-index"

[[package]]
name = "libc"
version = "0.2.139"
source = "registry+https://github.com/rust-lang/crates.io-index"

[[package]]
name = "my-fork"
version = "0.3.0"
source = "git+https://x/y#deadbeef"
`
	pkgs, err := parseCargoLock([]byte(fixture))
	require.NoError(t, err)
	require.Len(t, pkgs, 3)

	for _, p := range pkgs {
		assert.Equal(t, EcosystemCargo, p.Ecosystem)
		assert.NotEqual(t, "workspace-root", p.Name)
		assert.NotEqual(t, "workspace-member", p.Name)
	}

	var git *Package
	for i := range pkgs {
		if pkgs[i].Version.Kind == Git {
			git = &pkgs[i]
		}
	}
	require.NotNil(t, git)
	assert.Equal(t, "my-fork", git.Name)
	assert.Equal(t, "git+https://x/y#deadbeef", git.Version.URL)
}

func TestParseSPDXJSONRequiresPURL(t *testing.T) {
	const fixture = `{
		"packages": [
			{
				"name": "left-pad",
				"versionInfo": "1.3.0",
				"downloadLocation": "https://registry.npmjs.org/left-pad/-/left-pad-1.3.0.tgz",
				"externalRefs": [
					{"referenceCategory": "PACKAGE-MANAGER", "referenceType": "purl", "referenceLocator": "pkg:npm/left-pad@1.3.0"}
				]
			},
			{
				"name": "no-purl-package",
				"versionInfo": "2.0.0",
				"downloadLocation": "NOASSERTION"
			}
		]
	}`
	pkgs, err := parseSPDX([]byte(fixture))
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "left-pad", pkgs[0].Name)
	assert.Equal(t, EcosystemNpm, pkgs[0].Ecosystem)
	assert.Equal(t, FirstParty, pkgs[0].Version.Kind)
	assert.Equal(t, "1.3.0", pkgs[0].Version.Version)
}

func TestParseSPDXVersionInfoTakesPrecedenceOverPURLVersion(t *testing.T) {
	const fixture = `{
		"packages": [
			{
				"name": "requests",
				"versionInfo": "2.28.2",
				"externalRefs": [
					{"referenceCategory": "PACKAGE_MANAGER", "referenceType": "purl", "referenceLocator": "pkg:pypi/requests@2.28.1"}
				]
			}
		]
	}`
	pkgs, err := parseSPDX([]byte(fixture))
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "2.28.2", pkgs[0].Version.Version)
}

func TestParseCycloneDXJSONFiltersByTypeAndScope(t *testing.T) {
	const fixture = `{
		"components": [
			{"type": "library", "scope": "required", "name": "chalk", "version": "5.2.0", "purl": "pkg:npm/chalk@5.2.0"},
			{"type": "library", "scope": "excluded", "name": "dev-only", "version": "1.0.0", "purl": "pkg:npm/dev-only@1.0.0"},
			{"type": "operating-system", "name": "linux", "version": "1.0.0"},
			{"type": "library", "name": "nested-parent", "version": "1.0.0", "purl": "pkg:npm/nested-parent@1.0.0", "components": [
				{"type": "library", "name": "nested-child", "version": "2.0.0", "purl": "pkg:npm/nested-child@2.0.0"}
			]}
		]
	}`
	pkgs, err := parseCycloneDX([]byte(fixture))
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, p := range pkgs {
		names[p.Name] = true
	}
	assert.True(t, names["chalk"])
	assert.True(t, names["nested-parent"])
	assert.True(t, names["nested-child"])
	assert.False(t, names["dev-only"])
	assert.False(t, names["linux"])
}

func TestParseCsprojCollectsPackageReferences(t *testing.T) {
	const fixture = `<Project Sdk="Microsoft.NET.Sdk">
  <ItemGroup>
    <PackageReference Include="Newtonsoft.Json" Version="13.0.1" />
    <PackageReference Include="Serilog" Version="2.12.0" />
  </ItemGroup>
</Project>`
	pkgs, err := parseCsproj([]byte(fixture))
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "Newtonsoft.Json", pkgs[0].Name)
	assert.Equal(t, EcosystemNuGet, pkgs[0].Ecosystem)
	assert.Equal(t, "13.0.1", pkgs[0].Version.Version)
}

func TestParsePURLRoundTripsMavenCoordinates(t *testing.T) {
	p, ok := parsePURL("pkg:maven/org.apache.commons/commons-lang3@3.12.0")
	require.True(t, ok)
	assert.Equal(t, "maven", p.Type)
	assert.Equal(t, "org.apache.commons", p.Namespace)
	assert.Equal(t, "commons-lang3", p.Name)
	assert.Equal(t, "3.12.0", p.Version)

	eco, ok := purlEcosystem(p.Type)
	require.True(t, ok)
	assert.Equal(t, "org.apache.commons:commons-lang3", purlPackageName(p, eco))
}

func TestFilterForSubmissionDropsPathAndDownloadURL(t *testing.T) {
	pkgs := []Package{
		{Name: "a", Version: PathVersion("../a")},
		{Name: "b", Version: DownloadURLVersion("https://example.com/b.tgz")},
		{Name: "c", Version: GitVersion("https://x/y#ref")},
		{Name: "d", Version: FirstPartyVersion("1.0.0")},
	}
	out := FilterForSubmission(pkgs)
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[0].Name)
	assert.Equal(t, "https://x/y#ref", SubmissionVersion(out[0]))
	assert.Equal(t, "d", out[1].Name)
	assert.Equal(t, "1.0.0", SubmissionVersion(out[1]))
}

func TestResolveUsesFormatHintWhenSupplied(t *testing.T) {
	hint := FormatCargoLock
	const fixture = `
[[package]]
name = "serde"
version = "1.0.150"
source = "registry+https://github.com/rust-lang/crates.io-index"
`
	pkgs, warning, err := Resolve(&hint, "Cargo.lock", []byte(fixture))
	require.NoError(t, err)
	assert.Empty(t, warning)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "serde", pkgs[0].Name)
}

func TestResolveDetectsLockfileByPathWithoutHint(t *testing.T) {
	const fixture = `
[[package]]
name = "serde"
version = "1.0.150"
source = "registry+https://github.com/rust-lang/crates.io-index"
`
	pkgs, warning, err := Resolve(nil, "/proj/Cargo.lock", []byte(fixture))
	require.NoError(t, err)
	assert.Empty(t, warning)
	require.Len(t, pkgs, 1)
}

func TestResolveUnknownFormatErrors(t *testing.T) {
	_, _, err := Resolve(nil, "/proj/weird.ext", []byte("\x00\x01\x02 not valid anything"))
	require.Error(t, err)
	var unknownErr *UnknownFormatError
	assert.ErrorAs(t, err, &unknownErr)
}
