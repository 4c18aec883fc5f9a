package snapstore

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/canonical/charm-release/internal/errors"
)

type fakeRunner struct {
	calls [][]string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return "", f.err
}

func TestReleaser_Release(t *testing.T) {
	runner := &fakeRunner{}
	r := NewReleaser(runner, "snapcraft", "k8s", zerolog.Nop())

	err := r.Release(context.Background(), 5891, "1.32/beta")
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"snapcraft", "release", "k8s", "5891", "1.32/beta"}, runner.calls[0])
}

func TestReleaser_Release_Failure(t *testing.T) {
	runner := &fakeRunner{err: stderrors.New("channel closed")}
	r := NewReleaser(runner, "snapcraft", "k8s", zerolog.Nop())

	err := r.Release(context.Background(), 5891, "1.32/beta")
	require.ErrorIs(t, err, apperrors.ErrReleaseFailed)
}
