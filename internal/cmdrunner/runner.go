// Package cmdrunner provides execution of external CLI tools (charmcraft,
// snapcraft, the SQA lab CLI) behind a small interface so that domain
// packages can be tested with fakes.
package cmdrunner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	apperrors "github.com/canonical/charm-release/internal/errors"
)

// Runner executes an external command and returns its stdout.
type Runner interface {
	// Run executes name with args and returns trimmed stdout.
	// A non-zero exit wraps ErrCommandFailed and includes stderr;
	// exceeding the timeout wraps ErrCommandTimeout.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// Exec is the production Runner backed by os/exec.
type Exec struct {
	// Timeout bounds a single command invocation. Zero means no additional
	// bound beyond the caller's context.
	Timeout time.Duration
}

// Run executes the command and returns its trimmed stdout.
func (e Exec) Run(ctx context.Context, name string, args ...string) (string, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...) //#nosec G204 -- args are constructed internally, not user input
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%s %s: %w", name, firstArg(args), apperrors.ErrCommandTimeout)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if stderr.Len() > 0 {
			return "", fmt.Errorf("%s %s failed: %s: %w", name, firstArg(args), strings.TrimSpace(stderr.String()), apperrors.ErrCommandFailed)
		}
		return "", fmt.Errorf("%s %s failed: %w", name, firstArg(args), apperrors.ErrCommandFailed)
	}

	return strings.TrimSpace(stdout.String()), nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// Ensure Exec implements Runner.
var _ Runner = Exec{}
