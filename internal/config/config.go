// Package config handles on-disk persistence: the per-project
// .phylum_project file and the per-user ~/.phylum/settings.yaml file.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ProjectFile is the name of the per-directory project marker, searched for
// in the working directory and up to 32 ancestors.
const ProjectFile = ".phylum_project"

const maxAncestorLevels = 32

// ProjectConfig is the contents of a .phylum_project file.
type ProjectConfig struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Group    string   `yaml:"group,omitempty"`
	DepFiles []string `yaml:"depfiles,omitempty"`
}

// AuthInfo holds the persisted OAuth state for a user.
type AuthInfo struct {
	OfflineAccess string `yaml:"offline_access,omitempty"`
}

// Settings is the contents of ~/.phylum/settings.yaml.
type Settings struct {
	ConnectionURI string   `yaml:"connection_uri"`
	AuthInfo      AuthInfo `yaml:"auth_info"`
	LastUpdate    string   `yaml:"last_update,omitempty"`
}

const defaultConnectionURI = "https://api.phylum.io"

// NewSettings returns Settings populated with defaults.
func NewSettings() *Settings {
	return &Settings{ConnectionURI: defaultConnectionURI}
}

// UserConfigDir returns the directory settings.yaml lives in, honoring
// XDG_CONFIG_HOME the same way the teacher's config_file.go resolves its
// user config path, falling back to ~/.phylum. Home resolution goes through
// go-homedir rather than os.UserHomeDir, matching the teacher's login
// package, since it also handles a Cygwin-style HOME on Windows.
func UserConfigDir() (string, error) {
	if p, err := xdg.ConfigFile(filepath.Join("phylum", "settings.yaml")); err == nil {
		return filepath.Dir(p), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "resolving home directory")
	}
	return filepath.Join(home, ".phylum"), nil
}

// UserDataDir returns the directory extensions and their data live in,
// honoring XDG_DATA_HOME.
func UserDataDir() (string, error) {
	return filepath.Join(xdg.DataHome, "phylum"), nil
}

func settingsPath() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.yaml"), nil
}

// LoadSettings reads ~/.phylum/settings.yaml, returning defaults if it does
// not exist yet. PHYLUM_API_KEY, if set, overrides the persisted refresh
// token (matching original_source's read_configuration — a CI job
// injecting a secret shouldn't need to write settings.yaml first);
// everything else in Settings is sourced from the file alone.
func LoadSettings(fs afero.Fs) (*Settings, error) {
	path, err := settingsPath()
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(fs, path)
	settings := NewSettings()
	if errors.Is(err, os.ErrNotExist) {
		// fall through with defaults; the env var below may still apply.
	} else if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	} else if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	v := viper.New()
	v.SetEnvPrefix("phylum")
	v.AutomaticEnv()
	if key := v.GetString("api_key"); key != "" {
		settings.AuthInfo.OfflineAccess = key
	}
	return settings, nil
}

// WriteSettings persists settings to ~/.phylum/settings.yaml.
func WriteSettings(fs afero.Fs, settings *Settings) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "marshaling settings")
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(path))
	}

	return afero.WriteFile(fs, path, data, 0o600)
}

// FindProjectConfig walks upward from dir looking for a .phylum_project
// file, stopping after maxAncestorLevels. It returns (nil, "", nil) rather
// than an error when none is found, matching the teacher's findUp idiom of
// treating "not present" as a normal outcome, not a failure.
func FindProjectConfig(fs afero.Fs, dir string) (*ProjectConfig, string, error) {
	current := dir
	for i := 0; i < maxAncestorLevels; i++ {
		candidate := filepath.Join(current, ProjectFile)
		if ok, err := afero.Exists(fs, candidate); err == nil && ok {
			cfg, err := readProjectConfig(fs, candidate)
			if err != nil {
				return nil, "", err
			}
			return cfg, candidate, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return nil, "", nil
}

func readProjectConfig(fs afero.Fs, path string) (*ProjectConfig, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return &cfg, nil
}

// WriteProjectConfig creates a new .phylum_project in dir.
func WriteProjectConfig(fs afero.Fs, dir string, cfg *ProjectConfig) (string, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	path := filepath.Join(dir, ProjectFile)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", errors.Wrap(err, "marshaling project config")
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	return path, nil
}
