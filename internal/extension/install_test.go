package extension

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExtensionSource(t *testing.T, fs afero.Fs, dir, name string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(dir, 0o755))
	manifest := "name = \"" + name + "\"\ndescription = \"test extension\"\n"
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "PHYLUM_EXT.toml"), []byte(manifest), 0o644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "main.ts"), []byte("console.log('hi')"), 0o644))
}

func TestInstallThenUninstall(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeExtensionSource(t, fs, "/src/my-ext", "my-ext")

	dest, err := Install(fs, "/data", "/src/my-ext")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "extensions", "my-ext"), dest)

	exists, err := afero.Exists(fs, filepath.Join(dest, "main.ts"))
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, Uninstall(fs, "/data", "my-ext"))

	exists, err = afero.DirExists(fs, dest)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInstallRejectsInvalidName(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeExtensionSource(t, fs, "/src/Bad-Name", "Bad-Name")

	_, err := Install(fs, "/data", "/src/Bad-Name")
	assert.ErrorIs(t, err, ErrNameInvalid)
}

func TestInstallRejectsReservedName(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeExtensionSource(t, fs, "/src/analyze", "analyze")

	_, err := Install(fs, "/data", "/src/analyze")
	assert.ErrorIs(t, err, ErrNameReserved)
}

func TestUninstallMissingExtensionIsNotInstalledError(t *testing.T) {
	fs := afero.NewMemMapFs()
	err := Uninstall(fs, "/data", "nonexistent")
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestInstallOverwritesExistingInstallation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeExtensionSource(t, fs, "/src/my-ext", "my-ext")
	_, err := Install(fs, "/data", "/src/my-ext")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/src/my-ext/main.ts", []byte("console.log('v2')"), 0o644))
	dest, err := Install(fs, "/data", "/src/my-ext")
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, filepath.Join(dest, "main.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "v2")
}
