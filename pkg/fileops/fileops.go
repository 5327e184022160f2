// Package fileops owns filesystem mutations under a repository root:
// snapshot backup, per-change application, restore, and path safety.
// It is not concurrency-safe; callers serialize writes.
package fileops

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeready-toolchain/repoai/pkg/models"
)

// CreateBackup snapshots the working tree into a sibling directory
// named <root-name>_backup_<YYYYMMDD_HHMMSS> and returns its path.
func CreateBackup(root string) (string, error) {
	root = filepath.Clean(root)
	stamp := time.Now().Format("20060102_150405")
	backupRoot := filepath.Join(filepath.Dir(root), filepath.Base(root)+"_backup_"+stamp)

	if err := copyTree(root, backupRoot); err != nil {
		return "", fmt.Errorf("create backup of %s: %w", root, err)
	}
	slog.Info("Created backup snapshot", "root", root, "backup_root", backupRoot)
	return backupRoot, nil
}

// Apply dispatches one change against root. When backupRoot is
// non-empty, the prior version of a modified or deleted file is copied
// there, preserving its relative path, before the mutation.
func Apply(change models.CodeChange, root, backupRoot string) error {
	rel, err := safeRelPath(change.FilePath, root)
	if err != nil {
		return err
	}
	target := filepath.Join(root, rel)

	switch change.ChangeType {
	case models.ChangeCreated:
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("%w: %s", ErrTargetExists, change.FilePath)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent directories for %s: %w", change.FilePath, err)
		}
		if err := os.WriteFile(target, []byte(change.ModifiedContent), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", change.FilePath, err)
		}
		return nil

	case models.ChangeModified:
		if backupRoot != "" {
			if err := backupFile(target, rel, backupRoot); err != nil {
				return err
			}
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent directories for %s: %w", change.FilePath, err)
		}
		if err := os.WriteFile(target, []byte(change.ModifiedContent), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", change.FilePath, err)
		}
		return nil

	case models.ChangeDeleted:
		if backupRoot != "" {
			if err := backupFile(target, rel, backupRoot); err != nil {
				return err
			}
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete %s: %w", change.FilePath, err)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownChangeType, change.ChangeType)
	}
}

// Restore reverts root to the backup snapshot: files with no backup
// counterpart were created after the snapshot and are removed, then
// every backup file is copied back, preserving relative paths.
func Restore(backupRoot, root string) error {
	if _, err := os.Stat(backupRoot); err != nil {
		return fmt.Errorf("backup root %s: %w", backupRoot, err)
	}
	if err := removeExtras(backupRoot, root); err != nil {
		return fmt.Errorf("restore %s from %s: %w", root, backupRoot, err)
	}
	if err := copyTree(backupRoot, root); err != nil {
		return fmt.Errorf("restore %s from %s: %w", root, backupRoot, err)
	}
	slog.Info("Restored working tree from backup", "root", root, "backup_root", backupRoot)
	return nil
}

// removeExtras deletes files under root that do not exist in the
// snapshot.
func removeExtras(backupRoot, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if _, err := os.Stat(filepath.Join(backupRoot, rel)); os.IsNotExist(err) {
			return os.Remove(path)
		}
		return nil
	})
}

// ValidatePaths rejects changes whose paths are absolute, contain "..",
// or resolve outside root. It returns the offending changes.
func ValidatePaths(changes []models.CodeChange, root string) []error {
	var errs []error
	for _, change := range changes {
		if _, err := safeRelPath(change.FilePath, root); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// CleanupBackup removes the snapshot directory. Missing directories are
// not an error.
func CleanupBackup(backupRoot string) error {
	if backupRoot == "" {
		return nil
	}
	if err := os.RemoveAll(backupRoot); err != nil {
		return fmt.Errorf("cleanup backup %s: %w", backupRoot, err)
	}
	return nil
}

// safeRelPath validates a repository-relative change path and returns
// its platform form.
func safeRelPath(path, root string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsafePath)
	}
	normalized := filepath.ToSlash(path)
	if strings.HasPrefix(normalized, "/") || filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: absolute path %q", ErrUnsafePath, path)
	}
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: path traversal in %q", ErrUnsafePath, path)
		}
	}
	rel := filepath.FromSlash(normalized)
	resolved := filepath.Join(filepath.Clean(root), rel)
	if !strings.HasPrefix(resolved, filepath.Clean(root)+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q resolves outside repository root", ErrUnsafePath, path)
	}
	return rel, nil
}

// backupFile copies target into backupRoot at rel, once. An existing
// backup entry is kept so retries preserve the pre-change version.
func backupFile(target, rel, backupRoot string) error {
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return nil
	}
	dest := filepath.Join(backupRoot, rel)
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create backup directories for %s: %w", rel, err)
	}
	if err := copyFile(target, dest); err != nil {
		return fmt.Errorf("back up %s: %w", rel, err)
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dst, 0o755)
		}
		dest := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(dest, info.Mode().Perm())
		}
		return copyFile(path, dest)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
