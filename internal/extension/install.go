package extension

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// namePattern is the extension-name grammar from §4.4.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// reservedNames are the built-in subcommands an extension's own name must
// never collide with, so `phylum <name>` always dispatches unambiguously
// to one or the other.
var reservedNames = map[string]bool{
	"analyze": true, "auth": true, "batch": true, "exception": true,
	"extension": true, "group": true, "history": true, "org": true,
	"package": true, "parse": true, "ping": true, "project": true,
	"update": true, "version": true, "login": true, "register": true,
	"status": true, "token": true,
}

// ValidateName checks an extension name against the grammar and the
// reserved-name set (§4.4).
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return ErrNameInvalid
	}
	if reservedNames[name] {
		return ErrNameReserved
	}
	return nil
}

// extensionsDir is the directory installed extensions live under, relative
// to the process-wide data home (§3, §6's XDG_DATA_HOME).
func extensionsDir(dataHome string) string {
	return filepath.Join(dataHome, "extensions")
}

// Install copies srcDir (an extension's source directory) under dataHome
// and atomically renames it into place, so a reader never observes a
// partially-copied extension directory (§4.4).
func Install(fs afero.Fs, dataHome, srcDir string) (string, error) {
	manifestPath := filepath.Join(srcDir, "PHYLUM_EXT.toml")
	data, err := afero.ReadFile(fs, manifestPath)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", manifestPath)
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return "", err
	}
	if err := ValidateName(manifest.Name); err != nil {
		return "", err
	}

	dir := extensionsDir(dataHome)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}

	staging := filepath.Join(dir, "."+manifest.Name+".install")
	_ = fs.RemoveAll(staging)
	if err := copyDir(fs, srcDir, staging); err != nil {
		_ = fs.RemoveAll(staging)
		return "", errors.Wrap(err, "staging extension copy")
	}

	dest := filepath.Join(dir, manifest.Name)
	_ = fs.RemoveAll(dest)
	if err := fs.Rename(staging, dest); err != nil {
		return "", errors.Wrap(err, "moving extension into place")
	}
	return dest, nil
}

// Uninstall removes an installed extension's directory. Removing an
// extension that is not installed returns ErrNotInstalled, matching
// §4.4's idempotent-failure contract (the operation is a no-op either
// way, but the caller is told nothing was there to remove).
func Uninstall(fs afero.Fs, dataHome, name string) error {
	dest := filepath.Join(extensionsDir(dataHome), name)
	exists, err := afero.DirExists(fs, dest)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotInstalled
	}
	return fs.RemoveAll(dest)
}

// InstalledPath returns the path an extension would be installed at,
// without checking whether it exists.
func InstalledPath(dataHome, name string) string {
	return filepath.Join(extensionsDir(dataHome), name)
}

func copyDir(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fs.MkdirAll(target, info.Mode())
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		return afero.WriteFile(fs, target, data, info.Mode())
	})
}
