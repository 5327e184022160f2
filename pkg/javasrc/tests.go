package javasrc

import (
	"os"
	"path/filepath"
	"strings"
)

// IsTestFile reports whether a repository-relative path looks like a
// test source file by Maven/Gradle convention.
func IsTestFile(path string) bool {
	normalized := filepath.ToSlash(path)
	if strings.Contains(normalized, "/test/") {
		return true
	}
	base := strings.TrimSuffix(filepath.Base(normalized), ".java")
	return strings.HasSuffix(base, "Test") || strings.HasSuffix(base, "Tests") ||
		strings.HasSuffix(base, "IT") || strings.HasPrefix(base, "Test")
}

// LocateTests finds the test files corresponding to a main source file
// by naming convention, returning repository-relative paths of those
// that exist under root.
func LocateTests(root, mainPath string) []string {
	normalized := filepath.ToSlash(mainPath)
	base := strings.TrimSuffix(filepath.Base(normalized), ".java")
	dir := filepath.Dir(normalized)
	testDir := strings.Replace(dir, "src/main/java", "src/test/java", 1)

	candidates := []string{
		base + "Test.java",
		base + "Tests.java",
		"Test" + base + ".java",
		base + "IT.java",
	}

	var found []string
	for _, c := range candidates {
		rel := filepath.ToSlash(filepath.Join(testDir, c))
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err == nil {
			found = append(found, rel)
		}
	}
	return found
}

// ListSourceFiles walks root and returns repository-relative paths of
// Java sources, skipping build output and hidden directories.
func ListSourceFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if info.IsDir() {
			if shouldSkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".java") {
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func shouldSkipDir(rel string) bool {
	if rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
		switch part {
		case "target", "build", "bin", "out", "classes", "node_modules", "vendor":
			return true
		}
	}
	return false
}
