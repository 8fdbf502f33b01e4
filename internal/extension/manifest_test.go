package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifestBooleanAxes(t *testing.T) {
	content := []byte(`
name = "example"
description = "does a thing"

[permissions]
read = true
write = false
run = ["npm", "yarn"]
env = ["PHYLUM_API_KEY"]
net = false
`)

	m, err := ParseManifest(content)
	require.NoError(t, err)

	assert.Equal(t, "example", m.Name)
	assert.True(t, m.Permissions.AllowsRead("/anything"))
	assert.False(t, m.Permissions.AllowsWrite("/anything"))
	assert.True(t, m.Permissions.AllowsRun("npm"))
	assert.False(t, m.Permissions.AllowsRun("rm"))
	assert.True(t, m.Permissions.AllowsEnv("PHYLUM_API_KEY"))
	assert.False(t, m.Permissions.AllowsNet("example.com"))
}

func TestParseManifestRejectsMalformedAxis(t *testing.T) {
	content := []byte(`
name = "example"

[permissions]
read = 5
`)
	_, err := ParseManifest(content)
	assert.Error(t, err)
}

func TestParseManifestMissingPermissionsBlockDeniesEverything(t *testing.T) {
	content := []byte(`
name = "bare"
description = "no permissions declared"
`)
	m, err := ParseManifest(content)
	require.NoError(t, err)
	assert.False(t, m.Permissions.AllowsRead("/tmp/x"))
	assert.False(t, m.Permissions.AllowsNet("example.com"))
}

func TestValidateNameGrammar(t *testing.T) {
	assert.NoError(t, ValidateName("my-extension"))
	assert.ErrorIs(t, ValidateName("My-Extension"), ErrNameInvalid)
	assert.ErrorIs(t, ValidateName("-leading-dash"), ErrNameInvalid)
	assert.ErrorIs(t, ValidateName("has space"), ErrNameInvalid)
}

func TestValidateNameRejectsReservedSubcommands(t *testing.T) {
	assert.ErrorIs(t, ValidateName("analyze"), ErrNameReserved)
	assert.ErrorIs(t, ValidateName("update"), ErrNameReserved)
}
