package cmdutil

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyEnvVarOverridesPersistedToken(t *testing.T) {
	t.Setenv("PHYLUM_API_KEY", "env-token")
	t.Cleanup(func() { _ = os.Unsetenv("PHYLUM_API_KEY") })

	flags := pflag.NewFlagSet("test-flags", pflag.ContinueOnError)
	h := NewHelper("test-version")
	h.Fs = afero.NewMemMapFs()
	h.AddFlags(flags)
	require.NoError(t, flags.Parse(nil))

	base, err := h.GetCmdBase(flags)
	require.NoError(t, err)
	assert.NotNil(t, base.APIClient)
	assert.Equal(t, "env-token", base.Settings.AuthInfo.OfflineAccess)
}

func TestAPIURIFlagOverridesDefaultConnectionURI(t *testing.T) {
	flags := pflag.NewFlagSet("test-flags", pflag.ContinueOnError)
	h := NewHelper("test-version")
	h.Fs = afero.NewMemMapFs()
	h.AddFlags(flags)
	require.NoError(t, flags.Parse([]string{"--api-uri", "https://staging.phylum.io"}))

	base, err := h.GetCmdBase(flags)
	require.NoError(t, err)
	assert.NotNil(t, base.APIClient)
	assert.Equal(t, "https://staging.phylum.io", base.APIClient.BaseURL())
}
