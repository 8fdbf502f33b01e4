package extension

import (
	"fmt"
	"net"
	"strings"

	"github.com/gobwas/glob"
)

// PermissionAxis is one of the five axes a manifest can grant access on
// (§4.4). Each axis is either wide open, fully denied, or an allowlist of
// literal values.
type PermissionAxis struct {
	allowAll bool
	literals []string
}

// allowsLiteral reports whether value is covered by this axis: wide open
// grants everything, otherwise value must glob-match one of the allowed
// literals. Filesystem axes match by path prefix; everything else is an
// exact/glob match on the literal itself.
func (a PermissionAxis) allowsLiteral(value string, prefixMatch bool) bool {
	if a.allowAll {
		return true
	}
	for _, lit := range a.literals {
		g, err := glob.Compile(lit, '/')
		if err == nil && g.Match(value) {
			return true
		}
		if lit == value {
			return true
		}
		if prefixMatch && strings.HasPrefix(value, strings.TrimSuffix(lit, "/")+"/") {
			return true
		}
	}
	return false
}

// Permissions is the parsed permissions block of an extension manifest.
type Permissions struct {
	Read  PermissionAxis
	Write PermissionAxis
	Env   PermissionAxis
	Run   PermissionAxis
	Net   PermissionAxis
}

// AllowsRead reports whether path is readable under this policy.
func (p Permissions) AllowsRead(path string) bool { return p.Read.allowsLiteral(path, true) }

// AllowsWrite reports whether path is writable under this policy.
func (p Permissions) AllowsWrite(path string) bool { return p.Write.allowsLiteral(path, true) }

// AllowsEnv reports whether environment variable name is visible.
func (p Permissions) AllowsEnv(name string) bool { return p.Env.allowsLiteral(name, false) }

// AllowsRun reports whether executable (name or absolute path) may be run.
func (p Permissions) AllowsRun(executable string) bool { return p.Run.allowsLiteral(executable, false) }

// AllowsNet reports whether hostPort ("host" or "host:port") may be dialed.
func (p Permissions) AllowsNet(hostPort string) bool {
	if p.Net.allowAll {
		return true
	}
	host, _, err := net.SplitHostPort(hostPort)
	if err != nil {
		host = hostPort
	}
	for _, lit := range p.Net.literals {
		if lit == hostPort || lit == host {
			return true
		}
	}
	return false
}

// axisNarrows reports whether child is no wider than parent: child cannot
// be allowAll unless parent is, and every literal child grants must also
// be granted by parent. This is the building block for §4.4's
// runSandboxed narrowing invariant ("never widens").
func axisNarrows(parent, child PermissionAxis) bool {
	if child.allowAll && !parent.allowAll {
		return false
	}
	if parent.allowAll {
		return true
	}
	for _, lit := range child.literals {
		if !parent.allowsLiteral(lit, true) {
			return false
		}
	}
	return true
}

// Narrows reports whether child grants nothing that parent does not
// already grant, across every axis. runSandboxed does not call it: it
// checks each requested exception on its own in hostAPI.narrowedException.
func (p Permissions) Narrows(child Permissions) bool {
	return axisNarrows(p.Read, child.Read) &&
		axisNarrows(p.Write, child.Write) &&
		axisNarrows(p.Env, child.Env) &&
		axisNarrows(p.Run, child.Run) &&
		axisNarrows(p.Net, child.Net)
}

func (a PermissionAxis) describe(axis string) string {
	switch {
	case a.allowAll:
		return axis + ": all"
	case len(a.literals) == 0:
		return ""
	default:
		return fmt.Sprintf("%s: %s", axis, strings.Join(a.literals, ", "))
	}
}

// Summary renders the permission grant in the human-readable form shown to
// a user before they approve an extension install (§4.4).
func (p Permissions) Summary() []string {
	var lines []string
	for _, d := range []string{
		p.Read.describe("read"),
		p.Write.describe("write"),
		p.Env.describe("env"),
		p.Run.describe("run"),
		p.Net.describe("net"),
	} {
		if d != "" {
			lines = append(lines, d)
		}
	}
	return lines
}
