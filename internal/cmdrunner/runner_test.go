package cmdrunner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/canonical/charm-release/internal/errors"
)

func TestExec_Run(t *testing.T) {
	out, err := Exec{}.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestExec_Run_TrimsOutput(t *testing.T) {
	out, err := Exec{}.Run(context.Background(), "printf", "  padded \n")
	require.NoError(t, err)
	assert.Equal(t, "padded", out)
}

func TestExec_Run_CommandFailed(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), "false")
	require.ErrorIs(t, err, apperrors.ErrCommandFailed)
}

func TestExec_Run_StderrInError(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 1")
	require.ErrorIs(t, err, apperrors.ErrCommandFailed)
	assert.Contains(t, err.Error(), "broken")
}

func TestExec_Run_Timeout(t *testing.T) {
	_, err := Exec{Timeout: 50 * time.Millisecond}.Run(context.Background(), "sleep", "5")
	require.ErrorIs(t, err, apperrors.ErrCommandTimeout)
}

func TestExec_Run_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Exec{}.Run(ctx, "sleep", "5")
	require.Error(t, err)
}
