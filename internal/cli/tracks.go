package cli

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/canonical/charm-release/internal/config"
	"github.com/canonical/charm-release/internal/k8s"
)

// resolveTracks returns the tracks a command should operate on: the explicit
// --supported-tracks list when given, otherwise every track with a stable
// upstream Kubernetes release at or after --after.
func resolveTracks(ctx context.Context, cfg *config.Config, flags *TrackFlags, log zerolog.Logger) ([]string, error) {
	if len(flags.SupportedTracks) > 0 {
		return flags.SupportedTracks, nil
	}

	log.Info().Str("after", flags.After).Msg("getting all Kubernetes releases after threshold inclusive")
	return k8s.NewClient(cfg.K8s, log).AllReleasesAfter(ctx, flags.After)
}
