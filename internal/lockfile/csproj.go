package lockfile

import (
	"encoding/xml"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

func init() {
	register(Parser{
		Format:     FormatDotNetCsproj,
		name:       "dotnet-csproj",
		Parse:      parseCsproj,
		IsManifest: isCsproj,
	})
}

func isCsproj(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csproj")
}

type csprojProject struct {
	ItemGroups []csprojItemGroup `xml:"ItemGroup"`
}

type csprojItemGroup struct {
	PackageReferences []csprojPackageReference `xml:"PackageReference"`
}

type csprojPackageReference struct {
	Include string `xml:"Include,attr"`
	Version string `xml:"Version,attr"`
}

// parseCsproj reads every PackageReference across all ItemGroups (§4.1);
// .csproj is manifest-only here - it has no companion lockfile format in
// this parser bank, so versions are taken as pinned at face value.
func parseCsproj(content []byte) ([]Package, error) {
	var project csprojProject
	if err := xml.Unmarshal(content, &project); err != nil {
		return nil, errors.Wrap(err, "decoding .csproj")
	}

	var out []Package
	for _, group := range project.ItemGroups {
		for _, ref := range group.PackageReferences {
			if ref.Include == "" {
				continue
			}
			out = append(out, Package{
				Name:      ref.Include,
				Ecosystem: EcosystemNuGet,
				Version:   FirstPartyVersion(ref.Version),
			})
		}
	}
	return out, nil
}
