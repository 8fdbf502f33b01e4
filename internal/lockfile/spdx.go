package lockfile

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func init() {
	register(Parser{
		Format:     FormatSPDX,
		name:       "spdx",
		Parse:      parseSPDX,
		IsLockfile: isSPDX,
	})
}

func isSPDX(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".spdx.json") ||
		strings.HasSuffix(lower, ".spdx.yaml") ||
		strings.HasSuffix(lower, ".spdx.yml") ||
		strings.HasSuffix(lower, ".spdx")
}

type spdxDocument struct {
	Packages []spdxPackage `json:"packages" yaml:"packages"`
}

type spdxPackage struct {
	Name             string            `json:"name" yaml:"name"`
	VersionInfo      string            `json:"versionInfo" yaml:"versionInfo"`
	DownloadLocation string            `json:"downloadLocation" yaml:"downloadLocation"`
	ExternalRefs     []spdxExternalRef `json:"externalRefs" yaml:"externalRefs"`
}

type spdxExternalRef struct {
	ReferenceCategory string `json:"referenceCategory" yaml:"referenceCategory"`
	ReferenceType     string `json:"referenceType" yaml:"referenceType"`
	ReferenceLocator  string `json:"referenceLocator" yaml:"referenceLocator"`
}

// parseSPDX accepts either JSON or YAML serialization of an SPDX document
// (they share one logical schema); JSON is tried first since it is the
// common case and a strict subset of what the YAML decoder accepts.
func parseSPDX(content []byte) ([]Package, error) {
	var doc spdxDocument
	jsonErr := json.Unmarshal(content, &doc)
	if jsonErr != nil || len(doc.Packages) == 0 {
		if yamlErr := yaml.Unmarshal(content, &doc); yamlErr != nil && jsonErr != nil {
			return nil, errors.Wrap(jsonErr, "decoding SPDX document")
		}
	}

	var out []Package
	for _, p := range doc.Packages {
		pkg, ok := spdxPackageToPackage(p)
		if !ok {
			continue
		}
		out = append(out, pkg)
	}
	return out, nil
}

// spdxPackageToPackage requires a PURL in externalRefs (§4.1): a package
// without one cannot be attributed to an ecosystem and is skipped, falling
// back to inferring the ecosystem from downloadLocation's host only when a
// purl is present but its type is unrecognised.
func spdxPackageToPackage(p spdxPackage) (Package, bool) {
	for _, ref := range p.ExternalRefs {
		cat := strings.ToUpper(ref.ReferenceCategory)
		if (cat != "PACKAGE-MANAGER" && cat != "PACKAGE_MANAGER") || ref.ReferenceType != "purl" {
			continue
		}
		parsed, ok := parsePURL(ref.ReferenceLocator)
		if !ok {
			continue
		}
		eco, ok := purlEcosystem(parsed.Type)
		if !ok {
			eco, ok = ecosystemFromDownloadLocation(p.DownloadLocation)
			if !ok {
				continue
			}
		}
		name := purlPackageName(parsed, eco)
		if name == "" {
			name = p.Name
		}
		return Package{
			Name:      name,
			Ecosystem: eco,
			Version:   purlVersion(parsed, p.VersionInfo),
		}, true
	}
	return Package{}, false
}
