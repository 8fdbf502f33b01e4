package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowsReadPrefixMatch(t *testing.T) {
	p := Permissions{Read: PermissionAxis{literals: []string{"/home/user/project"}}}
	assert.True(t, p.AllowsRead("/home/user/project/package.json"))
	assert.False(t, p.AllowsRead("/home/user/other"))
}

func TestAllowsEnvIsExactNotPrefix(t *testing.T) {
	p := Permissions{Env: PermissionAxis{literals: []string{"PHYLUM_API_KEY"}}}
	assert.True(t, p.AllowsEnv("PHYLUM_API_KEY"))
	assert.False(t, p.AllowsEnv("PHYLUM_API_KEYS"))
}

func TestAllowsNetHostOrHostPort(t *testing.T) {
	p := Permissions{Net: PermissionAxis{literals: []string{"example.com"}}}
	assert.True(t, p.AllowsNet("example.com"))
	assert.True(t, p.AllowsNet("example.com:443"))
	assert.False(t, p.AllowsNet("evil.example.com"))
}

func TestNarrowsRejectsWiderChildAxis(t *testing.T) {
	parent := Permissions{Read: PermissionAxis{literals: []string{"/work"}}}
	child := Permissions{Read: PermissionAxis{allowAll: true}}
	assert.False(t, parent.Narrows(child))
}

func TestNarrowsAcceptsSubsetChildAxis(t *testing.T) {
	parent := Permissions{Read: PermissionAxis{literals: []string{"/work"}}}
	child := Permissions{Read: PermissionAxis{literals: []string{"/work/sub"}}}
	assert.True(t, parent.Narrows(child))
}

func TestNarrowsRejectsChildLiteralOutsideParent(t *testing.T) {
	parent := Permissions{Run: PermissionAxis{literals: []string{"npm"}}}
	child := Permissions{Run: PermissionAxis{literals: []string{"npm", "curl"}}}
	assert.False(t, parent.Narrows(child))
}

func TestNarrowsAllowAllParentAcceptsAnyChild(t *testing.T) {
	parent := Permissions{Net: PermissionAxis{allowAll: true}}
	child := Permissions{Net: PermissionAxis{literals: []string{"example.com"}}}
	assert.True(t, parent.Narrows(child))
}
