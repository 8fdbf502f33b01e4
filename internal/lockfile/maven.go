package lockfile

import (
	"encoding/xml"
	"path/filepath"

	"github.com/deckarep/golang-set"
	"github.com/pkg/errors"
)

func init() {
	register(Parser{
		Format:     FormatMavenEffectivePom,
		name:       "maven-effective-pom",
		Parse:      parseMavenEffectivePom,
		IsLockfile: isMavenEffectivePom,
		Generate:   generateMavenEffectivePom,
	})
}

func isMavenEffectivePom(path string) bool {
	base := filepath.Base(path)
	return base == "effective-pom.xml" || base == "pom.xml"
}

func generateMavenEffectivePom(manifestDir string) error {
	return runGenerator(manifestDir, "mvn", "dependency:resolve")
}

type mavenDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

type mavenProject struct {
	Dependencies []mavenDependency `xml:"dependencies>dependency"`
	Build        struct {
		Plugins    []mavenPlugin     `xml:"plugins>plugin"`
		Extensions []mavenDependency `xml:"extensions>extension"`
	} `xml:"build"`
	Reporting struct {
		Plugins []mavenPlugin `xml:"plugins>plugin"`
	} `xml:"reporting"`
	Profiles []struct {
		Dependencies []mavenDependency `xml:"dependencies>dependency"`
	} `xml:"profiles>profile"`
}

type mavenPlugin struct {
	mavenDependency
	Dependencies []mavenDependency `xml:"dependencies>dependency"`
}

// mavenWorkspace is a multi-module aggregator: <projects><project>...
type mavenWorkspace struct {
	Projects []mavenProject `xml:"project"`
}

// parseMavenEffectivePom unions dependencies, plugin dependencies
// (recursively), reporting-plugin dependencies, build extensions, and
// profile dependencies across every inner project of a workspace pom,
// deduping by groupId:artifactId:version.
func parseMavenEffectivePom(content []byte) ([]Package, error) {
	var ws mavenWorkspace
	projects := []mavenProject{}

	if err := xml.Unmarshal(content, &ws); err == nil && len(ws.Projects) > 0 {
		projects = ws.Projects
	} else {
		var single mavenProject
		if err := xml.Unmarshal(content, &single); err != nil {
			return nil, errors.Wrap(err, "decoding effective pom")
		}
		projects = append(projects, single)
	}

	seen := mapset.NewSet()
	var out []Package
	add := func(d mavenDependency) {
		name := d.GroupID + ":" + d.ArtifactID
		key := name + "@" + d.Version
		if seen.Contains(key) {
			return
		}
		seen.Add(key)
		out = append(out, Package{Name: name, Ecosystem: EcosystemMaven, Version: FirstPartyVersion(d.Version)})
	}

	for _, p := range projects {
		for _, d := range p.Dependencies {
			add(d)
		}
		for _, plugin := range p.Build.Plugins {
			add(plugin.mavenDependency)
			for _, d := range plugin.Dependencies {
				add(d)
			}
		}
		for _, plugin := range p.Reporting.Plugins {
			add(plugin.mavenDependency)
			for _, d := range plugin.Dependencies {
				add(d)
			}
		}
		for _, d := range p.Build.Extensions {
			add(d)
		}
		for _, profile := range p.Profiles {
			for _, d := range profile.Dependencies {
				add(d)
			}
		}
	}
	return out, nil
}
