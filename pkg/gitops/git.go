// Package gitops wraps the git CLI for the pipeline's terminal stage:
// cloning the target repository, branching, committing the applied
// changes, and pushing with an access token injected into the remote
// URL.
package gitops

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultCloneDir     = "cloned_repos"
	defaultCloneTimeout = 5 * time.Minute
	defaultPushTimeout  = 5 * time.Minute
)

// Options configure a Client; zero values select the defaults above.
type Options struct {
	// CloneDir is the process-local directory cloned repositories live
	// under.
	CloneDir string
	// TokenEnv names the environment variable holding the access token.
	TokenEnv     string
	AuthorName   string
	AuthorEmail  string
	CloneTimeout time.Duration
	PushTimeout  time.Duration
}

// Client shells out to git. All operations are bounded by timeouts on
// top of the caller's context.
type Client struct {
	opts   Options
	logger *slog.Logger
}

func NewClient(opts Options) *Client {
	if opts.CloneDir == "" {
		opts.CloneDir = defaultCloneDir
	}
	if opts.CloneTimeout <= 0 {
		opts.CloneTimeout = defaultCloneTimeout
	}
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = defaultPushTimeout
	}
	return &Client{opts: opts, logger: slog.With("component", "gitops")}
}

// HasCredentials reports whether an access token is available, which
// gates the push stage.
func (c *Client) HasCredentials() bool {
	return c.token() != ""
}

func (c *Client) token() string {
	if c.opts.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.opts.TokenEnv)
}

// Clone performs a shallow clone into CloneDir and returns the new
// repository root.
func (c *Client) Clone(ctx context.Context, repoURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.CloneTimeout)
	defer cancel()

	dest := filepath.Join(c.opts.CloneDir, CloneDirName(repoURL, time.Now()))
	if err := os.MkdirAll(c.opts.CloneDir, 0o755); err != nil {
		return "", fmt.Errorf("create clone dir: %w", err)
	}

	c.logger.Info("Cloning repository", "repo", repoURL, "dest", dest)
	if err := c.run(ctx, "", "clone", "--depth", "1", c.authURL(repoURL), dest); err != nil {
		return "", fmt.Errorf("clone %s: %w", repoURL, err)
	}
	return dest, nil
}

// CreateBranch creates and checks out the branch in repoRoot.
func (c *Client) CreateBranch(ctx context.Context, repoRoot, branch string) error {
	if err := c.run(ctx, repoRoot, "checkout", "-b", branch); err != nil {
		return fmt.Errorf("create branch %s: %w", branch, err)
	}
	return nil
}

// CommitAll stages everything and commits with the configured author.
// An empty worktree is not an error.
func (c *Client) CommitAll(ctx context.Context, repoRoot, message string) error {
	if err := c.run(ctx, repoRoot, "add", "-A"); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}
	args := []string{
		"-c", "user.name=" + c.authorName(),
		"-c", "user.email=" + c.authorEmail(),
		"commit", "-m", message,
	}
	if err := c.run(ctx, repoRoot, args...); err != nil {
		if strings.Contains(err.Error(), "nothing to commit") {
			c.logger.Info("Nothing to commit", "repo_root", repoRoot)
			return nil
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Push pushes the branch to origin with the token injected into the
// remote URL.
func (c *Client) Push(ctx context.Context, repoRoot, repoURL, branch string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.PushTimeout)
	defer cancel()

	c.logger.Info("Pushing branch", "repo", repoURL, "branch", branch)
	if err := c.run(ctx, repoRoot, "push", c.authURL(repoURL), "HEAD:refs/heads/"+branch); err != nil {
		return fmt.Errorf("push %s: %w", branch, err)
	}
	return nil
}

// Cleanup removes a cloned repository root. Best effort.
func (c *Client) Cleanup(repoRoot string) {
	if repoRoot == "" {
		return
	}
	if err := os.RemoveAll(repoRoot); err != nil {
		c.logger.Warn("Failed to remove clone", "repo_root", repoRoot, "error", err)
	}
}

func (c *Client) authorName() string {
	if c.opts.AuthorName != "" {
		return c.opts.AuthorName
	}
	return "repoai"
}

func (c *Client) authorEmail() string {
	if c.opts.AuthorEmail != "" {
		return c.opts.AuthorEmail
	}
	return "repoai@localhost"
}

// authURL injects the access token into an https remote URL. Other
// schemes and unparseable URLs pass through unchanged.
func (c *Client) authURL(repoURL string) string {
	token := c.token()
	if token == "" {
		return repoURL
	}
	u, err := url.Parse(repoURL)
	if err != nil || u.Scheme != "https" {
		return repoURL
	}
	u.User = url.UserPassword("x-access-token", token)
	return u.String()
}

func (c *Client) run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", args[0], err, c.redact(strings.TrimSpace(string(out))))
	}
	return nil
}

// redact keeps the access token out of errors and logs.
func (c *Client) redact(s string) string {
	if token := c.token(); token != "" {
		s = strings.ReplaceAll(s, token, "***")
	}
	return s
}

// DefaultBranchName is the branch used when the user supplies no
// override.
func DefaultBranchName(sessionID string) string {
	return "repoai/" + sessionID
}

// RepoName extracts the repository name from its URL.
func RepoName(repoURL string) string {
	name := strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git")
	if idx := strings.LastIndexAny(name, "/:"); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		return "repo"
	}
	return name
}

// CloneDirName is the per-clone directory name under CloneDir.
func CloneDirName(repoURL string, now time.Time) string {
	return fmt.Sprintf("%s_%d", RepoName(repoURL), now.Unix())
}

// BranchURL computes the browsable URL for a pushed branch.
func BranchURL(repoURL, branch string) string {
	return strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git") + "/tree/" + branch
}
