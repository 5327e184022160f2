package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/repoai/pkg/javasrc"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

// ScanIssue is one finding from a static scanner.
type ScanIssue struct {
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Scanner inspects one file's content and reports issues.
type Scanner struct {
	Name string
	scan func(path, content string) []ScanIssue
}

// Scanners returns the full static analysis suite run by the Validator.
func Scanners() []Scanner {
	return []Scanner{
		{"method_length", scanMethodLength},
		{"magic_numbers", scanMagicNumbers},
		{"naming_conventions", scanNaming},
		{"spring_conventions", scanSpringConventions},
		{"weak_crypto", scanWeakCrypto},
		{"hardcoded_credentials", scanCredentials},
		{"sql_concatenation", scanSQLConcat},
		{"parameter_validation", scanParameterValidation},
	}
}

// RunScanners applies every scanner to the given files and groups the
// findings into per-scanner validation checks.
func RunScanners(files map[string]string) []models.ValidationCheck {
	scanners := Scanners()
	checks := make([]models.ValidationCheck, 0, len(scanners))
	for _, s := range scanners {
		check := models.ValidationCheck{Name: s.Name, Passed: true}
		for path, content := range files {
			if !strings.HasSuffix(path, ".java") {
				continue
			}
			for _, issue := range s.scan(path, content) {
				check.Passed = false
				check.Issues = append(check.Issues, fmt.Sprintf("%s:%d %s", issue.File, issue.Line, issue.Message))
			}
		}
		checks = append(checks, check)
	}
	return checks
}

const maxMethodLines = 50

var methodStartRe = regexp.MustCompile(`^\s*(public|protected|private)\s+[\w<>\[\],\s]+\s+\w+\s*\([^)]*\)\s*(throws\s+[\w,\s]+)?\s*\{`)

func scanMethodLength(path, content string) []ScanIssue {
	var issues []ScanIssue
	lines := strings.Split(content, "\n")
	for i := 0; i < len(lines); i++ {
		if !methodStartRe.MatchString(lines[i]) {
			continue
		}
		depth, length := 0, 0
		for j := i; j < len(lines); j++ {
			depth += strings.Count(lines[j], "{") - strings.Count(lines[j], "}")
			length++
			if depth == 0 && length > 1 {
				break
			}
		}
		if length > maxMethodLines {
			issues = append(issues, ScanIssue{
				File: path, Line: i + 1, Severity: "minor",
				Message: fmt.Sprintf("method is %d lines long (max %d)", length, maxMethodLines),
			})
		}
		i += length - 1
	}
	return issues
}

var magicNumberRe = regexp.MustCompile(`[^\w."]([2-9]\d{1,}|\d{3,})[^\w."]`)

func scanMagicNumbers(path, content string) []ScanIssue {
	var issues []ScanIssue
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") {
			continue
		}
		// Constant declarations are the fix, not the problem.
		if strings.Contains(line, "final") && strings.Contains(line, "static") {
			continue
		}
		if magicNumberRe.MatchString(line) {
			issues = append(issues, ScanIssue{
				File: path, Line: i + 1, Severity: "minor",
				Message: "magic number; extract to a named constant",
			})
		}
	}
	return issues
}

var (
	classDeclRe  = regexp.MustCompile(`\b(class|interface|enum|record)\s+([A-Za-z_]\w*)`)
	upperCamelRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	methodDeclRe = regexp.MustCompile(`\b(?:public|protected|private)\s+(?:static\s+)?[\w<>\[\]]+\s+([A-Za-z_]\w*)\s*\(`)
	lowerCamelRe = regexp.MustCompile(`^[a-z][A-Za-z0-9]*$`)
)

func scanNaming(path, content string) []ScanIssue {
	var issues []ScanIssue
	for i, line := range strings.Split(content, "\n") {
		if m := classDeclRe.FindStringSubmatch(line); m != nil && !upperCamelRe.MatchString(m[2]) {
			issues = append(issues, ScanIssue{
				File: path, Line: i + 1, Severity: "minor",
				Message: fmt.Sprintf("%s name %q is not UpperCamelCase", m[1], m[2]),
			})
		}
		if m := methodDeclRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			if name != "if" && name != "for" && name != "while" && name != "switch" &&
				!lowerCamelRe.MatchString(name) && !upperCamelRe.MatchString(name) {
				issues = append(issues, ScanIssue{
					File: path, Line: i + 1, Severity: "minor",
					Message: fmt.Sprintf("method name %q is not lowerCamelCase", name),
				})
			}
		}
	}
	return issues
}

func scanSpringConventions(path, content string) []ScanIssue {
	var issues []ScanIssue
	if strings.Contains(content, "@Autowired") {
		for i, line := range strings.Split(content, "\n") {
			if strings.Contains(line, "@Autowired") {
				next := ""
				if lines := strings.Split(content, "\n"); i+1 < len(lines) {
					next = lines[i+1]
				}
				if strings.Contains(next, "private") && !strings.Contains(next, "(") {
					issues = append(issues, ScanIssue{
						File: path, Line: i + 1, Severity: "minor",
						Message: "field injection; prefer constructor injection",
					})
				}
			}
		}
	}
	if strings.Contains(content, "@Controller") && strings.Contains(content, "@ResponseBody") {
		issues = append(issues, ScanIssue{
			File: path, Severity: "minor",
			Message: "@Controller with @ResponseBody; use @RestController",
		})
	}
	return issues
}

var weakCryptoRe = regexp.MustCompile(`(?i)(MessageDigest\.getInstance\(\s*"(MD5|SHA-?1)"|Cipher\.getInstance\(\s*"DES|"DES/|DESede)`)

func scanWeakCrypto(path, content string) []ScanIssue {
	var issues []ScanIssue
	for i, line := range strings.Split(content, "\n") {
		if weakCryptoRe.MatchString(line) {
			issues = append(issues, ScanIssue{
				File: path, Line: i + 1, Severity: "critical",
				Message: "weak cryptographic algorithm (MD5/SHA-1/DES)",
			})
		}
	}
	return issues
}

var credentialRe = regexp.MustCompile(`(?i)(password|passwd|secret|api[_-]?key|token)\s*=\s*"[^"]{4,}"`)

func scanCredentials(path, content string) []ScanIssue {
	var issues []ScanIssue
	for i, line := range strings.Split(content, "\n") {
		if credentialRe.MatchString(line) && !strings.Contains(line, "System.getenv") {
			issues = append(issues, ScanIssue{
				File: path, Line: i + 1, Severity: "critical",
				Message: "hard-coded credential; read from environment or vault",
			})
		}
	}
	return issues
}

var sqlConcatRe = regexp.MustCompile(`(?i)"(SELECT|INSERT|UPDATE|DELETE)\b[^"]*"\s*\+`)

func scanSQLConcat(path, content string) []ScanIssue {
	var issues []ScanIssue
	for i, line := range strings.Split(content, "\n") {
		if sqlConcatRe.MatchString(line) {
			issues = append(issues, ScanIssue{
				File: path, Line: i + 1, Severity: "critical",
				Message: "SQL built by string concatenation; use a parameterized query",
			})
		}
	}
	return issues
}

func scanParameterValidation(path, content string) []ScanIssue {
	var issues []ScanIssue
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if !methodStartRe.MatchString(line) || !strings.Contains(line, "public") {
			continue
		}
		if !strings.Contains(line, "String ") && !strings.Contains(line, "Object ") {
			continue
		}
		// Look a few lines into the body for any null/blank guard.
		guarded := false
		for j := i + 1; j < len(lines) && j <= i+5; j++ {
			if strings.Contains(lines[j], "== null") || strings.Contains(lines[j], "!= null") ||
				strings.Contains(lines[j], "Objects.requireNonNull") || strings.Contains(lines[j], "isBlank") ||
				strings.Contains(lines[j], "isEmpty") || strings.Contains(lines[j], "@NotNull") {
				guarded = true
				break
			}
		}
		if !guarded {
			issues = append(issues, ScanIssue{
				File: path, Line: i + 1, Severity: "minor",
				Message: "public method takes reference parameters without a null check",
			})
		}
	}
	return issues
}

// EstimateCoverage approximates test coverage as the ratio of test
// methods to public methods across the given files, capped at 1.
func EstimateCoverage(ctx context.Context, files map[string]string) float64 {
	analyzer := javasrc.NewAnalyzer()
	testMethods, publicMethods := 0, 0
	for path, content := range files {
		if !strings.HasSuffix(path, ".java") {
			continue
		}
		structure, err := analyzer.Analyze(ctx, []byte(content))
		if err != nil {
			continue
		}
		if javasrc.IsTestFile(path) {
			testMethods += structure.TestMethods()
		} else {
			publicMethods += structure.PublicMethods()
		}
	}
	if publicMethods == 0 {
		return 0
	}
	coverage := float64(testMethods) / float64(publicMethods)
	if coverage > 1 {
		return 1
	}
	return coverage
}
