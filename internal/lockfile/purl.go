package lockfile

import (
	"net/url"
	"strings"
)

// purl is a parsed Package URL (pkg:type/namespace/name@version?qualifiers),
// the identifier SPDX and CycloneDX use to name a package across
// ecosystems. See https://github.com/package-url/purl-spec.
type purl struct {
	Type       string
	Namespace  string
	Name       string
	Version    string
	Qualifiers map[string]string
}

// parsePURL parses the subset of the purl grammar this parser bank needs:
// scheme, type, optional namespace, name, optional version, and
// '&'-separated qualifiers. It does not validate percent-encoding beyond
// what net/url already decodes.
func parsePURL(raw string) (*purl, bool) {
	const scheme = "pkg:"
	if !strings.HasPrefix(raw, scheme) {
		return nil, false
	}
	rest := raw[len(scheme):]

	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		rest = rest[:idx]
	}

	var qualifiers map[string]string
	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		qualifiers = parsePURLQualifiers(rest[idx+1:])
		rest = rest[:idx]
	}

	typeIdx := strings.IndexByte(rest, '/')
	if typeIdx < 0 {
		return nil, false
	}
	pType := rest[:typeIdx]
	path := rest[typeIdx+1:]

	var version string
	if idx := strings.LastIndexByte(path, '@'); idx >= 0 {
		version, _ = url.PathUnescape(path[idx+1:])
		path = path[:idx]
	}

	segments := strings.Split(path, "/")
	name, _ := url.PathUnescape(segments[len(segments)-1])
	namespace := ""
	if len(segments) > 1 {
		parts := make([]string, len(segments)-1)
		for i, s := range segments[:len(segments)-1] {
			parts[i], _ = url.PathUnescape(s)
		}
		namespace = strings.Join(parts, "/")
	}

	return &purl{
		Type:       strings.ToLower(pType),
		Namespace:  namespace,
		Name:       name,
		Version:    version,
		Qualifiers: qualifiers,
	}, true
}

func parsePURLQualifiers(raw string) map[string]string {
	out := map[string]string{}
	for _, kv := range strings.Split(raw, "&") {
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		val, err := url.QueryUnescape(parts[1])
		if err != nil {
			val = parts[1]
		}
		out[parts[0]] = val
	}
	return out
}

// purlEcosystem maps a purl "type" to the ecosystem enum, per §4.1's SPDX
// and CycloneDX rules. An empty result means the type has no mapping in
// this parser bank.
func purlEcosystem(pType string) (Ecosystem, bool) {
	switch pType {
	case "npm":
		return EcosystemNpm, true
	case "gem":
		return EcosystemGem, true
	case "pypi":
		return EcosystemPyPI, true
	case "maven":
		return EcosystemMaven, true
	case "nuget":
		return EcosystemNuGet, true
	case "golang":
		return EcosystemGolang, true
	case "cargo":
		return EcosystemCargo, true
	default:
		return "", false
	}
}

// purlPackageName builds the canonical package name for a purl, joining
// namespace and name with the ecosystem's own separator (Maven uses
// "groupId:artifactId", everything else, npm scopes included, joins as
// "namespace/name"; a purl without a namespace yields the bare name).
func purlPackageName(p *purl, eco Ecosystem) string {
	if p.Namespace == "" {
		return p.Name
	}
	switch eco {
	case EcosystemMaven:
		return p.Namespace + ":" + p.Name
	case EcosystemNpm:
		return p.Namespace + "/" + p.Name
	default:
		return p.Namespace + "/" + p.Name
	}
}

// purlVersion resolves the version variant for a purl per §4.1: qualifier
// "vcs_url" (git+ prefix) promotes to Git, "repository_url" to ThirdParty,
// "download_url" to DownloadURL; otherwise FirstParty using versionOverride
// when set (SPDX's versionInfo takes precedence over the purl's own
// version) or the purl's own version field.
func purlVersion(p *purl, versionOverride string) Version {
	version := p.Version
	if versionOverride != "" {
		version = versionOverride
	}

	if vcs, ok := p.Qualifiers["vcs_url"]; ok && vcs != "" {
		return GitVersion(strings.TrimPrefix(vcs, "git+"))
	}
	if dl, ok := p.Qualifiers["download_url"]; ok && dl != "" {
		return DownloadURLVersion(dl)
	}
	if repo, ok := p.Qualifiers["repository_url"]; ok && repo != "" {
		return ThirdPartyVersion(version, repo)
	}
	return FirstPartyVersion(version)
}

// ecosystemFromDownloadLocation infers an ecosystem from an SPDX
// downloadLocation host when no purl external ref is present, per §4.1's
// SPDX fallback rule.
func ecosystemFromDownloadLocation(loc string) (Ecosystem, bool) {
	switch {
	case strings.Contains(loc, "registry.npmjs.org"):
		return EcosystemNpm, true
	case strings.Contains(loc, "rubygems.org"):
		return EcosystemGem, true
	case strings.Contains(loc, "pypi.org"), strings.Contains(loc, "files.pythonhosted.org"):
		return EcosystemPyPI, true
	case strings.Contains(loc, "repo1.maven.org"), strings.Contains(loc, "maven.org"):
		return EcosystemMaven, true
	case strings.Contains(loc, "nuget.org"):
		return EcosystemNuGet, true
	case strings.Contains(loc, "proxy.golang.org"):
		return EcosystemGolang, true
	case strings.Contains(loc, "crates.io"):
		return EcosystemCargo, true
	default:
		return "", false
	}
}
