package snapstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/canonical/charm-release/internal/cmdrunner"
	apperrors "github.com/canonical/charm-release/internal/errors"
)

// Releaser releases a single snap revision into a channel via snapcraft.
//
// This deliberately uses "snapcraft release" instead of "snapcraft promote":
// promote refuses to move edge to beta without manual confirmation, and it
// would re-promote every lower risk level in bulk. Releasing one revision
// keeps the ladder advancing a single risk step at a time.
type Releaser struct {
	runner    cmdrunner.Runner
	snapcraft string
	snap      string
	log       zerolog.Logger
}

// NewReleaser returns a Releaser for the named snap.
func NewReleaser(runner cmdrunner.Runner, snapcraftPath, snap string, log zerolog.Logger) *Releaser {
	return &Releaser{
		runner:    runner,
		snapcraft: snapcraftPath,
		snap:      snap,
		log:       log.With().Str("component", "snapcraft").Logger(),
	}
}

// Release publishes the revision into the channel. Failures wrap
// ErrReleaseFailed.
func (r *Releaser) Release(ctx context.Context, revision int, channel string) error {
	r.log.Info().
		Str("snap", r.snap).
		Int("revision", revision).
		Str("channel", channel).
		Msg("releasing snap revision")

	if _, err := r.runner.Run(ctx, r.snapcraft, "release", r.snap, fmt.Sprintf("%d", revision), channel); err != nil {
		return fmt.Errorf("%w: r%d to %s: %v", apperrors.ErrReleaseFailed, revision, channel, err)
	}
	return nil
}
