package build

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/repoai/pkg/models"
)

// LineSink receives one line of subprocess output as it is produced.
type LineSink func(line string)

// Result is the structured summary of one compile run.
type Result struct {
	Success  bool                      `json:"success"`
	Errors   []models.CompilationError `json:"errors"`
	Warnings []string                  `json:"warnings"`
	Duration time.Duration             `json:"duration"`
	Output   string                    `json:"output"`
}

// TestRunResult extends Result with parsed test totals and failures.
type TestRunResult struct {
	Result
	Totals   models.TestTotals    `json:"totals"`
	Failures []models.TestFailure `json:"failures"`
}

// CompileOptions configure a compile run.
type CompileOptions struct {
	Clean     bool
	SkipTests bool
	Sink      LineSink
}

// TestOptions configure a test run.
type TestOptions struct {
	Pattern string
	Sink    LineSink
}

// Driver executes build subprocesses under a repository root.
type Driver struct {
	// MaxOutputBytes caps the captured raw output; the live sink is
	// never truncated.
	MaxOutputBytes int
	logger         *slog.Logger
}

// NewDriver creates a driver with the given output cap.
func NewDriver(maxOutputBytes int) *Driver {
	if maxOutputBytes <= 0 {
		maxOutputBytes = 64 * 1024
	}
	return &Driver{
		MaxOutputBytes: maxOutputBytes,
		logger:         slog.With("component", "build_driver"),
	}
}

// Compile runs the build tool's compile goal.
func (d *Driver) Compile(ctx context.Context, root string, info Info, opts CompileOptions) (*Result, error) {
	args := compileArgs(info, opts)
	output, exitErr, duration, err := d.run(ctx, root, info.Command, args, opts.Sink)
	if err != nil {
		return nil, err
	}

	result := &Result{Duration: duration, Output: output}
	result.Errors, result.Warnings = parseCompileOutput(info.Tool, output)
	result.Success = exitErr == nil

	if !result.Success && len(result.Errors) == 0 {
		// Nonzero exit without parseable errors still counts as failed.
		result.Errors = append(result.Errors, models.CompilationError{
			Message: "build failed: " + tail(output, 2048),
		})
	}
	d.logger.Info("Compile finished", "tool", info.Tool, "success", result.Success,
		"errors", len(result.Errors), "duration", duration)
	return result, nil
}

// RunTests runs the build tool's test goal.
func (d *Driver) RunTests(ctx context.Context, root string, info Info, opts TestOptions) (*TestRunResult, error) {
	args := testArgs(info, opts)
	output, exitErr, duration, err := d.run(ctx, root, info.Command, args, opts.Sink)
	if err != nil {
		return nil, err
	}

	result := &TestRunResult{Result: Result{Duration: duration, Output: output}}
	result.Errors, result.Warnings = parseCompileOutput(info.Tool, output)
	result.Totals, result.Failures = parseTestOutput(output)
	result.Success = exitErr == nil && result.Totals.Failed == 0

	d.logger.Info("Test run finished", "tool", info.Tool, "success", result.Success,
		"run", result.Totals.Run, "failed", result.Totals.Failed, "duration", duration)
	return result, nil
}

// run executes the command with workdir root, forwarding every output
// line to sink as it arrives and capturing up to MaxOutputBytes.
// The returned exitErr is the process's nonzero-exit error; other
// failures (spawn, context) are returned as err.
func (d *Driver) run(ctx context.Context, root, command string, args []string, sink LineSink) (string, error, time.Duration, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = root

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", nil, 0, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", nil, 0, fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return "", nil, 0, fmt.Errorf("start %s: %w", command, err)
	}

	var mu sync.Mutex
	var captured strings.Builder
	var wg sync.WaitGroup
	consume := func(r *bufio.Scanner) {
		defer wg.Done()
		// Build tools can emit very long lines.
		r.Buffer(make([]byte, 64*1024), 1024*1024)
		for r.Scan() {
			line := r.Text()
			if sink != nil {
				sink(line)
			}
			mu.Lock()
			if captured.Len() < d.MaxOutputBytes {
				captured.WriteString(line)
				captured.WriteString("\n")
			}
			mu.Unlock()
		}
	}
	wg.Add(2)
	go consume(bufio.NewScanner(stdout))
	go consume(bufio.NewScanner(stderr))
	wg.Wait()

	exitErr := cmd.Wait()
	duration := time.Since(start)

	if ctx.Err() != nil {
		return captured.String(), nil, duration, fmt.Errorf("%s timed out: %w", command, ctx.Err())
	}
	if exitErr != nil {
		if _, ok := exitErr.(*exec.ExitError); !ok {
			return captured.String(), nil, duration, fmt.Errorf("run %s: %w", command, exitErr)
		}
	}
	return captured.String(), exitErr, duration, nil
}

func compileArgs(info Info, opts CompileOptions) []string {
	switch info.Tool {
	case ToolMaven:
		args := []string{}
		if opts.Clean {
			args = append(args, "clean")
		}
		args = append(args, "compile", "-B")
		if opts.SkipTests {
			args = append(args, "-DskipTests")
		}
		return args
	case ToolGradle:
		args := []string{}
		if opts.Clean {
			args = append(args, "clean")
		}
		args = append(args, "compileJava", "--console=plain")
		return args
	}
	return nil
}

func testArgs(info Info, opts TestOptions) []string {
	switch info.Tool {
	case ToolMaven:
		args := []string{"test", "-B"}
		if opts.Pattern != "" {
			args = append(args, "-Dtest="+opts.Pattern)
		}
		return args
	case ToolGradle:
		args := []string{"test", "--console=plain"}
		if opts.Pattern != "" {
			args = append(args, "--tests", opts.Pattern)
		}
		return args
	}
	return nil
}

// MissingToolResult synthesizes a failed compile result for a root
// with no recognized build tool.
func MissingToolResult(root string) *Result {
	return &Result{
		Success: false,
		Errors: []models.CompilationError{
			{Message: fmt.Sprintf("no supported build tool (Maven or Gradle) found at %s", root)},
		},
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[len(s)-n:])
}
