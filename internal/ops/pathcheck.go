package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/harbor/internal/config"
	"github.com/hpungsan/harbor/internal/errors"
)

// ArchiveExt is the only extension accepted for archive import and export.
const ArchiveExt = ".zip"

// PathCheckMode says whether an archive path is about to be read or written.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // archive import
	PathCheckWrite                      // archive export
)

// archivePolicy decides where archives may live. Unless unsafe is set, an
// archive must sit directly inside one of dirs; nested directories are
// refused so no intermediate component can be swapped for a symlink between
// the check and the open.
type archivePolicy struct {
	dirs   []string
	unsafe bool
}

func newArchivePolicy(cfg *config.Config) (archivePolicy, error) {
	if cfg != nil && cfg.AllowUnsafePaths {
		return archivePolicy{unsafe: true}, nil
	}
	exports, err := DefaultExportsDir()
	if err != nil {
		return archivePolicy{}, err
	}
	candidates := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			// Relative entries would depend on the working directory.
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	policy := archivePolicy{dirs: make([]string, 0, len(candidates))}
	for _, dir := range candidates {
		dir = filepath.Clean(dir)
		if isSymlink(dir) {
			resolved, err := filepath.EvalSymlinks(dir)
			if err != nil {
				return archivePolicy{}, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve allowed path %s: %v", dir, err))
			}
			dir = resolved
		}
		policy.dirs = append(policy.dirs, dir)
	}
	return policy, nil
}

// check validates path and returns it in absolute form. Symlinks are refused
// for the file itself in every mode.
func (p archivePolicy) check(path string, mode PathCheckMode) (string, error) {
	if path == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	if hasDotDot(path) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	if !strings.EqualFold(filepath.Ext(path), ArchiveExt) {
		return "", errors.NewInvalidRequest("path must have " + ArchiveExt + " extension")
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if !p.unsafe {
		parent := filepath.Dir(abs)
		if !p.allows(parent) {
			return "", errors.NewInvalidRequest(fmt.Sprintf(
				"file must be directly in an allowed directory (no subdirectories); allowed: %v", p.dirs))
		}
		if isSymlink(parent) {
			return "", errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return "", errors.NewFileNotFound(path)
		}
	}
	if isSymlink(abs) {
		return "", errors.NewInvalidRequest("path must not be a symlink")
	}
	return abs, nil
}

func (p archivePolicy) allows(dir string) bool {
	for _, d := range p.dirs {
		if dir == d {
			return true
		}
	}
	return false
}

// ValidatePath checks an archive path against the configured policy: no
// ".." components, a .zip extension, a location directly inside
// ~/.harbor/exports or an allowed_paths entry (unless allow_unsafe_paths),
// and no symlinks. The final component is later opened with O_NOFOLLOW.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	policy, err := newArchivePolicy(cfg)
	if err != nil {
		return err
	}
	_, err = policy.check(path, mode)
	return err
}

// DefaultExportsDir returns ~/.harbor/exports.
func DefaultExportsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(home, ".harbor", "exports"), nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// hasDotDot reports whether any component of path is "..". Both "/" and the
// OS separator count as separators.
func hasDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	for _, part := range parts {
		if part == ".." {
			return true
		}
	}
	return false
}

// archiveBaseName turns a user-supplied export name into a file name:
// separators and ".." become dashes, control characters are dropped and
// dash runs collapse.
func archiveBaseName(name string) string {
	name = strings.TrimSuffix(name, ArchiveExt)
	name = strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(name)
	name = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, name)
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	if name = strings.Trim(name, "-"); name == "" {
		return "unnamed"
	}
	return name
}
