package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-otbr/go-otbr/lib/util/logger"
)

// File and directory modes used across the agent. Anything holding key
// material (PSKc, network key, control password) gets the secure modes.
const (
	SecureFilePermissions   = 0o600
	SecureDirPermissions    = 0o700
	StandardFilePermissions = 0o644
	StandardDirPermissions  = 0o755
)

// SanitizePath resolves userPath against basePath and rejects anything that
// escapes the base directory. Relative paths are joined to the base; absolute
// paths are accepted only when they already sit inside it. An empty userPath
// resolves to the base itself. The returned path is absolute and cleaned.
//
// Driver settings files are derived from the configured interface name, so
// every such derivation goes through here before touching the filesystem.
func SanitizePath(basePath, userPath string) (string, error) {
	if basePath == "" {
		return "", fmt.Errorf("base path cannot be empty")
	}

	base, err := filepath.Abs(filepath.Clean(basePath))
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	if userPath == "" {
		return base, nil
	}

	joined := userPath
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(base, joined)
	}
	resolved, err := filepath.Abs(filepath.Clean(joined))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if resolved != base && !strings.HasPrefix(resolved, base+string(filepath.Separator)) {
		log.WithFields(logger.Fields{
			"at":            "SanitizePath",
			"reason":        "path_traversal_attempt",
			"base_path":     base,
			"resolved_path": resolved,
		}).Warn("potential path traversal blocked")
		return "", fmt.Errorf("path %q escapes base directory %q", userPath, basePath)
	}

	return resolved, nil
}

// CreateSecureDirectory creates a directory for sensitive files, owner-only.
// MkdirAll can inherit looser modes from the process umask or an existing
// parent, so the mode is enforced with an explicit chmod afterwards.
func CreateSecureDirectory(path string) error {
	cleaned := filepath.Clean(path)

	if err := os.MkdirAll(cleaned, SecureDirPermissions); err != nil {
		return fmt.Errorf("failed to create secure directory %q: %w", cleaned, err)
	}

	if err := os.Chmod(cleaned, SecureDirPermissions); err != nil {
		log.WithFields(logger.Fields{
			"at":     "CreateSecureDirectory",
			"reason": "chmod_failed",
			"path":   cleaned,
			"error":  err.Error(),
		}).Warn("could not set secure permissions on directory")
	}

	log.WithFields(logger.Fields{
		"at":   "CreateSecureDirectory",
		"path": cleaned,
		"mode": fmt.Sprintf("%04o", SecureDirPermissions),
	}).Debug("created secure directory")

	return nil
}

// CreateStandardDirectory creates a directory for non-sensitive files with
// the standard mode.
func CreateStandardDirectory(path string) error {
	cleaned := filepath.Clean(path)

	if err := os.MkdirAll(cleaned, StandardDirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", cleaned, err)
	}

	return nil
}

// WriteSecureFile writes data owner-readable only. Used for anything that
// carries key material, like persisted datasets.
func WriteSecureFile(path string, data []byte) error {
	cleaned := filepath.Clean(path)

	if err := os.WriteFile(cleaned, data, SecureFilePermissions); err != nil {
		return fmt.Errorf("failed to write secure file %q: %w", cleaned, err)
	}

	// WriteFile does not chmod files that already exist.
	if err := os.Chmod(cleaned, SecureFilePermissions); err != nil {
		log.WithFields(logger.Fields{
			"at":     "WriteSecureFile",
			"reason": "chmod_failed",
			"path":   cleaned,
			"error":  err.Error(),
		}).Warn("could not set secure permissions on file")
	}

	return nil
}

// CheckDefaultPasswordWarning logs a warning when the control server still
// uses the shipped default password.
func CheckDefaultPasswordWarning(password string) {
	if password == DefaultControlConfig.Password {
		log.WithFields(logger.Fields{
			"at":     "CheckDefaultPasswordWarning",
			"reason": "default_password_in_use",
		}).Warn("control server is using the default password 'go-otbr' - change this in production!")
	}
}

// IsPathSecure reports whether path has no permission bits beyond maxMode.
// Non-existent paths count as secure; there is nothing to leak yet.
func IsPathSecure(path string, maxMode os.FileMode) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}

	return info.Mode().Perm()&^maxMode == 0, nil
}

// SecureExistingPath chmods an existing file or directory down to the secure
// mode for its type. Fixes up paths created with looser defaults before the
// agent managed them. A missing path is not an error; a path of the wrong
// type is.
func SecureExistingPath(path string, isDir bool) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if info.IsDir() != isDir {
		if isDir {
			return fmt.Errorf("expected directory but found file: %s", path)
		}
		return fmt.Errorf("expected file but found directory: %s", path)
	}

	mode := os.FileMode(SecureFilePermissions)
	if isDir {
		mode = SecureDirPermissions
	}
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("failed to secure path %q: %w", path, err)
	}

	log.WithFields(logger.Fields{
		"at":   "SecureExistingPath",
		"path": path,
		"mode": fmt.Sprintf("%04o", mode),
	}).Debug("updated path permissions")

	return nil
}
