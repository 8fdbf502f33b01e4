package extension

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Manifest is the on-disk PHYLUM_EXT.toml contract for an extension: name,
// description, and a permissions block where each axis is either a
// boolean (allow-all/deny-all) or an allowlist of literal values (§4.4,
// §6).
type Manifest struct {
	Name        string
	Description string
	Permissions Permissions
}

// manifestFile mirrors the TOML shape directly: permissions come through
// as interface{} because each axis is polymorphic (bool or []string).
type manifestFile struct {
	Name        string                 `toml:"name"`
	Description string                 `toml:"description"`
	Permissions map[string]interface{} `toml:"permissions"`
}

// ParseManifest decodes a PHYLUM_EXT.toml file's contents.
func ParseManifest(content []byte) (*Manifest, error) {
	var raw manifestFile
	if err := toml.Unmarshal(content, &raw); err != nil {
		return nil, errors.Wrap(err, "decoding extension manifest")
	}

	perms, err := parsePermissions(raw.Permissions)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		Name:        raw.Name,
		Description: raw.Description,
		Permissions: perms,
	}, nil
}

func parsePermissions(raw map[string]interface{}) (Permissions, error) {
	axis := func(key string) (PermissionAxis, error) {
		v, ok := raw[key]
		if !ok {
			return PermissionAxis{}, nil
		}
		return decodeAxis(key, v)
	}

	read, err := axis("read")
	if err != nil {
		return Permissions{}, err
	}
	write, err := axis("write")
	if err != nil {
		return Permissions{}, err
	}
	env, err := axis("env")
	if err != nil {
		return Permissions{}, err
	}
	run, err := axis("run")
	if err != nil {
		return Permissions{}, err
	}
	netAxis, err := axis("net")
	if err != nil {
		return Permissions{}, err
	}

	return Permissions{Read: read, Write: write, Env: env, Run: run, Net: netAxis}, nil
}

func decodeAxis(key string, v interface{}) (PermissionAxis, error) {
	switch val := v.(type) {
	case bool:
		return PermissionAxis{allowAll: val}, nil
	case []interface{}:
		lits := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return PermissionAxis{}, errors.Errorf("permissions.%s: expected a list of strings", key)
			}
			lits = append(lits, s)
		}
		return PermissionAxis{literals: lits}, nil
	default:
		return PermissionAxis{}, errors.Errorf("permissions.%s: expected a boolean or a list of strings", key)
	}
}
