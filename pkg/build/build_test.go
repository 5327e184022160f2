package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	touch := func(dir string, names ...string) {
		for _, name := range names {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o755))
		}
	}

	t.Run("maven", func(t *testing.T) {
		dir := t.TempDir()
		touch(dir, "pom.xml")
		info, err := Detect(dir)
		require.NoError(t, err)
		assert.Equal(t, ToolMaven, info.Tool)
		assert.Equal(t, "mvn", info.Command)
	})

	t.Run("maven wrapper preferred", func(t *testing.T) {
		dir := t.TempDir()
		touch(dir, "pom.xml", "mvnw")
		info, err := Detect(dir)
		require.NoError(t, err)
		assert.Equal(t, "./mvnw", info.Command)
		assert.True(t, info.Wrapper)
	})

	t.Run("gradle", func(t *testing.T) {
		dir := t.TempDir()
		touch(dir, "build.gradle.kts")
		info, err := Detect(dir)
		require.NoError(t, err)
		assert.Equal(t, ToolGradle, info.Tool)
	})

	t.Run("none", func(t *testing.T) {
		_, err := Detect(t.TempDir())
		assert.ErrorIs(t, err, ErrNoBuildTool)
	})
}

func TestParseCompileOutputMaven(t *testing.T) {
	output := `[INFO] Compiling 3 source files
[WARNING] Using deprecated API in Foo.java
[ERROR] /work/src/main/java/com/example/UserService.java:[12,8] cannot find symbol
[ERROR]   symbol:   class Service
[ERROR] /work/src/main/java/com/example/UserService.java:[12,8] cannot find symbol
[INFO] BUILD FAILURE
`
	errs, warnings := parseCompileOutput(ToolMaven, output)

	require.Len(t, errs, 1, "duplicate errors are collapsed")
	assert.Equal(t, "/work/src/main/java/com/example/UserService.java", errs[0].File)
	assert.Equal(t, 12, errs[0].Line)
	assert.Equal(t, 8, errs[0].Column)
	assert.Equal(t, "cannot find symbol", errs[0].Message)
	require.Len(t, warnings, 1)
}

func TestParseCompileOutputJavac(t *testing.T) {
	output := `src/main/java/com/example/A.java:3: error: ';' expected
    int x
         ^
src/main/java/com/example/A.java:9: warning: unchecked cast
`
	errs, warnings := parseCompileOutput(ToolGradle, output)

	require.Len(t, errs, 1)
	assert.Equal(t, 3, errs[0].Line)
	assert.Equal(t, "';' expected", errs[0].Message)
	require.Len(t, warnings, 1)
}

func TestParseTestOutput(t *testing.T) {
	output := `[INFO] Running com.example.UserServiceTest
returnsUser(com.example.UserServiceTest)  Time elapsed: 0.013 s  <<< FAILURE!
org.opentest4j.AssertionFailedError: expected: <200> but was: <404>
	at com.example.UserServiceTest.returnsUser(UserServiceTest.java:22)
Tests run: 3, Failures: 1, Errors: 0, Skipped: 1
[INFO] Results:
Tests run: 3, Failures: 1, Errors: 0, Skipped: 1
`
	totals, failures := parseTestOutput(output)

	assert.Equal(t, 3, totals.Run)
	assert.Equal(t, 1, totals.Failed)
	assert.Equal(t, 1, totals.Skipped)
	assert.Equal(t, 1, totals.Passed)

	require.Len(t, failures, 1)
	assert.Equal(t, "com.example.UserServiceTest", failures[0].Class)
	assert.Equal(t, "returnsUser", failures[0].Method)
	assert.Contains(t, failures[0].Message, "expected: <200>")
}

func TestCompileStreamsLinesToSink(t *testing.T) {
	// "echo" stands in for the build tool; the driver only cares about
	// workdir, line streaming, and exit status.
	d := NewDriver(0)
	var lines []string
	result, err := d.Compile(context.Background(), t.TempDir(), Info{Tool: ToolMaven, Command: "echo"}, CompileOptions{
		Sink: func(line string) { lines = append(lines, line) },
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "compile")
	assert.Contains(t, result.Output, "compile")
}

func TestCompileNonzeroExitWithoutParseableErrors(t *testing.T) {
	d := NewDriver(0)
	result, err := d.Compile(context.Background(), t.TempDir(), Info{Tool: ToolMaven, Command: "false"}, CompileOptions{})

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors, "generic error is synthesized")
}

func TestMissingToolResult(t *testing.T) {
	result := MissingToolResult("/work/repo")
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "/work/repo")
}
