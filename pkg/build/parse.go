package build

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/codeready-toolchain/repoai/pkg/models"
)

var (
	// [ERROR] /path/to/Foo.java:[12,8] cannot find symbol
	mavenErrorRe = regexp.MustCompile(`^\[ERROR\]\s+(\S+\.java):\[(\d+),(\d+)\]\s+(.*)$`)

	// /path/to/Foo.java:12: error: cannot find symbol
	javacErrorRe = regexp.MustCompile(`^(\S+\.java):(\d+):\s+error:\s+(.*)$`)

	// Tests run: 4, Failures: 1, Errors: 0, Skipped: 1
	testTotalsRe = regexp.MustCompile(`Tests run:\s*(\d+),\s*Failures:\s*(\d+),\s*Errors:\s*(\d+),\s*Skipped:\s*(\d+)`)

	// [ERROR]   UserServiceTest.returnsUser:42 expected: <200> but was: <404>
	surefireFailureRe = regexp.MustCompile(`^\[ERROR\]\s+(\w+)\.(\w+):?\d*\s+(.*)$`)

	// returnsUser(com.example.UserServiceTest)  Time elapsed: 0.01 s  <<< FAILURE!
	junitFailureRe = regexp.MustCompile(`^(\w+)\(([\w.]+)\)\s+Time elapsed.*<<<\s+(FAILURE|ERROR)!`)
)

// parseCompileOutput extracts structured errors and warnings from
// captured build output.
func parseCompileOutput(tool Tool, output string) ([]models.CompilationError, []string) {
	var errs []models.CompilationError
	var warnings []string
	seen := make(map[string]bool)

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")

		if tool == ToolMaven {
			if m := mavenErrorRe.FindStringSubmatch(line); m != nil {
				lineNo, _ := strconv.Atoi(m[2])
				col, _ := strconv.Atoi(m[3])
				key := m[1] + m[2] + m[4]
				if !seen[key] {
					seen[key] = true
					errs = append(errs, models.CompilationError{File: m[1], Line: lineNo, Column: col, Message: m[4]})
				}
				continue
			}
			if strings.HasPrefix(line, "[WARNING]") {
				if w := strings.TrimSpace(strings.TrimPrefix(line, "[WARNING]")); w != "" {
					warnings = append(warnings, w)
				}
				continue
			}
		}

		if m := javacErrorRe.FindStringSubmatch(line); m != nil {
			lineNo, _ := strconv.Atoi(m[2])
			key := m[1] + m[2] + m[3]
			if !seen[key] {
				seen[key] = true
				errs = append(errs, models.CompilationError{File: m[1], Line: lineNo, Message: m[3]})
			}
			continue
		}
		if strings.Contains(line, ": warning:") {
			warnings = append(warnings, strings.TrimSpace(line))
		}
	}
	return errs, warnings
}

// parseTestOutput extracts totals and per-failure triples. Maven prints
// one summary per module plus a final aggregate; the last match wins.
func parseTestOutput(output string) (models.TestTotals, []models.TestFailure) {
	var totals models.TestTotals
	var failures []models.TestFailure
	seen := make(map[string]bool)

	lines := strings.Split(output, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")

		if m := testTotalsRe.FindStringSubmatch(line); m != nil {
			run, _ := strconv.Atoi(m[1])
			failed, _ := strconv.Atoi(m[2])
			errored, _ := strconv.Atoi(m[3])
			skipped, _ := strconv.Atoi(m[4])
			totals = models.TestTotals{
				Run:     run,
				Failed:  failed + errored,
				Skipped: skipped,
				Passed:  run - failed - errored - skipped,
			}
			continue
		}

		if m := junitFailureRe.FindStringSubmatch(line); m != nil {
			failure := models.TestFailure{
				Class:     m[2],
				Method:    m[1],
				ErrorType: strings.ToLower(m[3]),
			}
			// The assertion message usually follows on the next lines.
			for j := i + 1; j < len(lines) && j <= i+3; j++ {
				if msg := strings.TrimSpace(lines[j]); msg != "" && !strings.HasPrefix(msg, "at ") {
					failure.Message = msg
					break
				}
			}
			if !seen[failure.Class+"."+failure.Method] {
				seen[failure.Class+"."+failure.Method] = true
				failures = append(failures, failure)
			}
			continue
		}

		if m := surefireFailureRe.FindStringSubmatch(line); m != nil && strings.HasSuffix(m[1], "Test") {
			failure := models.TestFailure{Class: m[1], Method: m[2], Message: m[3], ErrorType: "failure"}
			if !seen[failure.Class+"."+failure.Method] {
				seen[failure.Class+"."+failure.Method] = true
				failures = append(failures, failure)
			}
		}
	}
	return totals, failures
}
