package javasrc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userService = `package com.example;

import java.util.List;
import java.util.Map;
import org.springframework.stereotype.Service;

@Service
public class UserService extends BaseService implements UserOperations, Auditable {

    private final Map<Integer, User> users;
    public static final int MAX_USERS = 100;

    public UserService(Map<Integer, User> users) {
        this.users = users;
    }

    public User getUserById(int id) {
        return users.get(id);
    }

    public List<User> listUsers() {
        return List.copyOf(users.values());
    }

    private void audit(String operation) {
        // no-op
    }
}
`

func TestAnalyzeClass(t *testing.T) {
	structure, err := NewAnalyzer().Analyze(context.Background(), []byte(userService))
	require.NoError(t, err)

	assert.Equal(t, "com.example", structure.Package)
	assert.Equal(t, "UserService", structure.Name)
	assert.Equal(t, "class", structure.Kind)
	assert.Equal(t, "BaseService", structure.Extends)
	assert.Equal(t, []string{"UserOperations", "Auditable"}, structure.Implements)
	assert.Equal(t, []string{"java.util.List", "java.util.Map", "org.springframework.stereotype.Service"}, structure.Imports)
	assert.Contains(t, structure.Annotations, "@Service")

	names := make(map[string]Method)
	for _, m := range structure.Methods {
		names[m.Name] = m
	}
	require.Contains(t, names, "getUserById")
	assert.Equal(t, "User", names["getUserById"].ReturnType)
	require.Len(t, names["getUserById"].Parameters, 1)
	assert.Equal(t, "int", names["getUserById"].Parameters[0].Type)
	assert.True(t, names["getUserById"].Public)

	assert.True(t, names["UserService"].Constructor)
	assert.False(t, names["audit"].Public)
	// Generic return type is stripped to its raw name.
	assert.Equal(t, "List", names["listUsers"].ReturnType)

	assert.Equal(t, 2, structure.PublicMethods(), "constructor and private method excluded")

	require.Len(t, structure.Fields, 2)
	assert.Equal(t, "users", structure.Fields[0].Name)
	assert.Equal(t, "Map", structure.Fields[0].Type)
	assert.True(t, structure.Fields[1].Public)
	assert.Contains(t, structure.Fields[1].Modifiers, "static")
}

func TestAnalyzeInterface(t *testing.T) {
	src := `package com.example;

public interface UserOperations {
    User getUserById(int id);
}
`
	structure, err := NewAnalyzer().Analyze(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.Equal(t, "interface", structure.Kind)
	assert.Equal(t, "UserOperations", structure.Name)
	require.Len(t, structure.Methods, 1)
}

func TestAnalyzeRejectsNonType(t *testing.T) {
	_, err := NewAnalyzer().Analyze(context.Background(), []byte("// just a comment\n"))
	assert.Error(t, err)
}

func TestTestMethodCount(t *testing.T) {
	src := `package com.example;

import org.junit.jupiter.api.Test;

public class UserServiceTest {
    @Test
    void returnsUser() {}

    @Test
    void missingUser() {}

    void helper() {}
}
`
	structure, err := NewAnalyzer().Analyze(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.Equal(t, 2, structure.TestMethods())
}

func TestTargetedContext(t *testing.T) {
	a := NewAnalyzer()

	t.Run("small file passes through", func(t *testing.T) {
		out, err := a.TargetedContext(context.Background(), []byte(userService), []string{"getUserById"}, 1<<20)
		require.NoError(t, err)
		assert.Equal(t, userService, out)
	})

	t.Run("large file keeps matching methods only", func(t *testing.T) {
		out, err := a.TargetedContext(context.Background(), []byte(userService), []string{"getUserById"}, 10)
		require.NoError(t, err)
		assert.Contains(t, out, "package com.example;")
		assert.Contains(t, out, "import org.springframework.stereotype.Service;")
		assert.Contains(t, out, "return users.get(id);", "matching method keeps its body")
		assert.Contains(t, out, "listUsers() { /* ... */ }", "non-matching method is elided")
		assert.Contains(t, out, "private final Map<Integer, User> users;")
	})
}

func TestGenerateSkeleton(t *testing.T) {
	out := GenerateSkeleton(SkeletonSpec{
		Kind:        "class",
		Package:     "com.example.cache",
		Name:        "RedisCache",
		Implements:  []string{"Cache"},
		Imports:     []string{"java.time.Duration"},
		Annotations: []string{"Component"},
	})

	assert.Contains(t, out, "package com.example.cache;")
	assert.Contains(t, out, "import java.time.Duration;")
	assert.Contains(t, out, "@Component")
	assert.Contains(t, out, "public class RedisCache implements Cache {")

	iface := GenerateSkeleton(SkeletonSpec{Kind: "interface", Name: "Cache"})
	assert.Contains(t, iface, "public interface Cache {")
}

func TestLocateTests(t *testing.T) {
	root := t.TempDir()
	mainPath := "src/main/java/com/example/UserService.java"
	testPath := filepath.Join(root, "src/test/java/com/example/UserServiceTest.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(testPath), 0o755))
	require.NoError(t, os.WriteFile(testPath, []byte("public class UserServiceTest {}"), 0o644))

	found := LocateTests(root, mainPath)
	require.Len(t, found, 1)
	assert.Equal(t, "src/test/java/com/example/UserServiceTest.java", found[0])

	assert.Empty(t, LocateTests(root, "src/main/java/com/example/Other.java"))
}

func TestIsTestFile(t *testing.T) {
	assert.True(t, IsTestFile("src/test/java/com/example/UserServiceTest.java"))
	assert.True(t, IsTestFile("src/main/java/com/example/UserServiceTest.java"))
	assert.False(t, IsTestFile("src/main/java/com/example/UserService.java"))
}

func TestListSourceFiles(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"src/main/java/com/example/A.java",
		"src/test/java/com/example/ATest.java",
		"target/classes/com/example/A.java",
		"README.md",
	} {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}

	files, err := ListSourceFiles(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"src/main/java/com/example/A.java",
		"src/test/java/com/example/ATest.java",
	}, files)
}
