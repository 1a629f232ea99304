package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
	"github.com/custodia-labs/awesometrack/internal/logger"
)

// Ensure Git implements the interface.
var _ driven.VersionControl = (*Git)(nil)

// blameHeader matches "<sha> <source line> <result line> [<group size>]".
var blameHeader = regexp.MustCompile(`^([a-f0-9]{40}) (\d+) (\d+)(?: (\d+))?$`)

// ErrNoGit indicates the git binary is not available.
var ErrNoGit = errors.New("git: executable not found")

// Git runs git commands.
type Git struct {
	binary string
}

// New returns a Git adapter using the git found on PATH.
func New() (*Git, error) {
	binary, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoGit, err)
	}
	return &Git{binary: binary}, nil
}

// CloneOrPull clones remoteURL at branch into localPath. When a clone is
// already there it is pulled if pull is true and left alone otherwise.
func (g *Git) CloneOrPull(ctx context.Context, remoteURL, localPath, branch string, pull bool) error {
	if _, err := os.Stat(filepath.Join(localPath, ".git")); err == nil {
		if !pull {
			logger.Debug("repo %s exists, skipping pull", localPath)
			return nil
		}
		logger.Debug("pulling %s", localPath)
		_, err := g.run(ctx, localPath, "pull", "--ff-only")
		return err
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("creating repos dir: %w", err)
	}
	args := []string{"clone"}
	if branch != "" {
		args = append(args, "-b", branch)
	}
	args = append(args, remoteURL, localPath)

	logger.Info("cloning %s to %s", remoteURL, localPath)
	_, err := g.run(ctx, "", args...)
	return err
}

// Blame returns the commit that last touched every line of filePath.
func (g *Git) Blame(ctx context.Context, workTree, filePath string) (domain.Blame, error) {
	out, err := g.run(ctx, workTree, "--no-pager", "blame", "--line-porcelain", "--", filePath)
	if err != nil {
		return nil, err
	}
	return ParseBlame(bytes.NewReader(out))
}

// ReadFile reads filePath from the working tree.
func (g *Git) ReadFile(workTree, filePath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(workTree, filepath.FromSlash(filePath)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filePath, domain.ErrNotFound)
	}
	return data, err
}

func (g *Git) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// ParseBlame reads git blame --line-porcelain output.
func ParseBlame(r io.Reader) (domain.Blame, error) {
	blame := make(domain.Blame)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		current blameEntry
		open    bool
	)
	for scanner.Scan() {
		line := scanner.Text()

		// content lines are tab prefixed and end an entry
		if strings.HasPrefix(line, "\t") {
			if open {
				blame[current.Line] = domain.BlameLine{CommitHash: current.Hash, CommittedAt: current.Time}
			}
			open = false
			continue
		}

		if m := blameHeader.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[3])
			current = blameEntry{Hash: m[1], Line: n}
			open = true
			continue
		}

		if !open {
			continue
		}
		if value, ok := strings.CutPrefix(line, "committer-time "); ok {
			sec, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing committer-time %q: %w", value, err)
			}
			current.Time = time.Unix(sec, 0).UTC()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading blame: %w", err)
	}
	return blame, nil
}

// blameEntry is the commit state of the entry being read.
type blameEntry struct {
	Hash string
	Line int
	Time time.Time
}
