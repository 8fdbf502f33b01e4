package lockfile

import (
	"encoding/json"
	"encoding/xml"
	"strings"

	"github.com/pkg/errors"
)

func init() {
	register(Parser{
		Format:     FormatCycloneDX,
		name:       "cyclonedx",
		Parse:      parseCycloneDX,
		IsLockfile: isCycloneDX,
	})
}

func isCycloneDX(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "bom.json") ||
		strings.Contains(lower, "bom.xml") ||
		strings.HasSuffix(lower, ".cdx.json") ||
		strings.HasSuffix(lower, ".cdx.xml")
}

// cyclonedxComponent mirrors the recursive "components" shape shared by
// both the JSON and XML serializations of a CycloneDX document: each
// component may itself carry nested components.
type cyclonedxComponent struct {
	Type       string               `json:"type" xml:"type,attr"`
	Scope      string               `json:"scope" xml:"scope"`
	Name       string               `json:"name" xml:"name"`
	Version    string               `json:"version" xml:"version"`
	PURL       string               `json:"purl" xml:"purl"`
	Components []cyclonedxComponent `json:"components" xml:"components>component"`
}

type cyclonedxJSONDoc struct {
	Components []cyclonedxComponent `json:"components"`
}

type cyclonedxXMLDoc struct {
	XMLName    xml.Name             `xml:"bom"`
	Components []cyclonedxComponent `xml:"components>component"`
}

// parseCycloneDX accepts either the JSON or XML serialization; XML
// documents begin with a '<' byte once whitespace is trimmed, anything
// else is tried as JSON first.
func parseCycloneDX(content []byte) ([]Package, error) {
	trimmed := strings.TrimSpace(string(content))

	var components []cyclonedxComponent
	if strings.HasPrefix(trimmed, "<") {
		var doc cyclonedxXMLDoc
		if err := xml.Unmarshal(content, &doc); err != nil {
			return nil, errors.Wrap(err, "decoding CycloneDX XML document")
		}
		components = doc.Components
	} else {
		var doc cyclonedxJSONDoc
		if err := json.Unmarshal(content, &doc); err != nil {
			return nil, errors.Wrap(err, "decoding CycloneDX JSON document")
		}
		components = doc.Components
	}

	var out []Package
	walkCycloneDXComponents(components, &out)
	return out, nil
}

// walkCycloneDXComponents recurses into nested components, keeping only
// application/framework/library components that are not explicitly
// excluded scope (§4.1).
func walkCycloneDXComponents(components []cyclonedxComponent, out *[]Package) {
	for _, c := range components {
		if cycloneDXComponentIncluded(c) {
			if pkg, ok := cycloneDXComponentToPackage(c); ok {
				*out = append(*out, pkg)
			}
		}
		walkCycloneDXComponents(c.Components, out)
	}
}

func cycloneDXComponentIncluded(c cyclonedxComponent) bool {
	switch c.Type {
	case "application", "framework", "library":
	default:
		return false
	}
	return c.Scope == "" || c.Scope == "required"
}

func cycloneDXComponentToPackage(c cyclonedxComponent) (Package, bool) {
	if c.PURL == "" {
		return Package{}, false
	}
	parsed, ok := parsePURL(c.PURL)
	if !ok {
		return Package{}, false
	}
	eco, ok := purlEcosystem(parsed.Type)
	if !ok {
		return Package{}, false
	}
	name := purlPackageName(parsed, eco)
	if name == "" {
		name = c.Name
	}
	return Package{
		Name:      name,
		Ecosystem: eco,
		Version:   purlVersion(parsed, c.Version),
	}, true
}
