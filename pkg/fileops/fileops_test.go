package fileops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/repoai/pkg/models"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func newRepo(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "repo")
	writeFile(t, root, "src/main/java/com/example/UserService.java", "public class UserService {}\n")
	writeFile(t, root, "pom.xml", "<project/>\n")
	return root
}

func TestApplyCreated(t *testing.T) {
	root := newRepo(t)

	change := models.CodeChange{
		FilePath:        "src/main/java/com/example/Cache.java",
		ChangeType:      models.ChangeCreated,
		ModifiedContent: "public class Cache {}\n",
	}
	require.NoError(t, Apply(change, root, ""))
	assert.Equal(t, "public class Cache {}\n", readFile(t, root, change.FilePath))

	// Creating over an existing file is refused.
	err := Apply(change, root, "")
	assert.ErrorIs(t, err, ErrTargetExists)
}

func TestApplyModifiedBacksUpPriorVersion(t *testing.T) {
	root := newRepo(t)
	backupRoot := filepath.Join(t.TempDir(), "backup")

	change := models.CodeChange{
		FilePath:        "src/main/java/com/example/UserService.java",
		ChangeType:      models.ChangeModified,
		ModifiedContent: "public class UserService { /* v2 */ }\n",
	}
	require.NoError(t, Apply(change, root, backupRoot))

	assert.Equal(t, change.ModifiedContent, readFile(t, root, change.FilePath))
	assert.Equal(t, "public class UserService {}\n", readFile(t, backupRoot, change.FilePath))
}

func TestApplyModifiedKeepsFirstBackupEntry(t *testing.T) {
	root := newRepo(t)
	backupRoot := filepath.Join(t.TempDir(), "backup")
	rel := "src/main/java/com/example/UserService.java"

	first := models.CodeChange{FilePath: rel, ChangeType: models.ChangeModified, ModifiedContent: "v2\n"}
	second := models.CodeChange{FilePath: rel, ChangeType: models.ChangeModified, ModifiedContent: "v3\n"}
	require.NoError(t, Apply(first, root, backupRoot))
	require.NoError(t, Apply(second, root, backupRoot))

	// The backup still holds the pre-change version, not v2.
	assert.Equal(t, "public class UserService {}\n", readFile(t, backupRoot, rel))
}

func TestApplyDeleted(t *testing.T) {
	root := newRepo(t)
	backupRoot := filepath.Join(t.TempDir(), "backup")
	rel := "src/main/java/com/example/UserService.java"

	change := models.CodeChange{FilePath: rel, ChangeType: models.ChangeDeleted}
	require.NoError(t, Apply(change, root, backupRoot))

	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "public class UserService {}\n", readFile(t, backupRoot, rel))
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	root := newRepo(t)

	backupRoot, err := CreateBackup(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CleanupBackup(backupRoot) })
	assert.Contains(t, filepath.Base(backupRoot), "repo_backup_")

	// Mutate the tree, then restore.
	require.NoError(t, Apply(models.CodeChange{
		FilePath:        "src/main/java/com/example/UserService.java",
		ChangeType:      models.ChangeModified,
		ModifiedContent: "broken\n",
	}, root, ""))
	require.NoError(t, Apply(models.CodeChange{
		FilePath:        "src/main/java/com/example/New.java",
		ChangeType:      models.ChangeCreated,
		ModifiedContent: "public class New {}\n",
	}, root, ""))

	require.NoError(t, Restore(backupRoot, root))
	assert.Equal(t, "public class UserService {}\n", readFile(t, root, "src/main/java/com/example/UserService.java"))
	assert.Equal(t, "<project/>\n", readFile(t, root, "pom.xml"))

	// Files created after the snapshot do not survive the restore.
	_, err = os.Stat(filepath.Join(root, "src", "main", "java", "com", "example", "New.java"))
	assert.True(t, os.IsNotExist(err))
}

func TestValidatePaths(t *testing.T) {
	root := newRepo(t)

	errs := ValidatePaths([]models.CodeChange{
		{FilePath: "src/main/java/com/example/UserService.java"},
		{FilePath: "../outside.java"},
		{FilePath: "/etc/passwd"},
		{FilePath: "src/../../escape.java"},
		{FilePath: ""},
	}, root)

	require.Len(t, errs, 4)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrUnsafePath)
	}
}

func TestCleanupBackup(t *testing.T) {
	root := newRepo(t)
	backupRoot, err := CreateBackup(root)
	require.NoError(t, err)

	require.NoError(t, CleanupBackup(backupRoot))
	_, err = os.Stat(backupRoot)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, CleanupBackup(backupRoot), "second cleanup is a no-op")
	assert.NoError(t, CleanupBackup(""))
}
