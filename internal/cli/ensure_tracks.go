package cli

import (
	"github.com/spf13/cobra"

	"github.com/canonical/charm-release/internal/config"
	"github.com/canonical/charm-release/internal/snapstore"
)

// AddEnsureTracksCommand adds the ensure-tracks command, which creates any
// missing snap store tracks for the supported Kubernetes releases.
func AddEnsureTracksCommand(root *cobra.Command, global *GlobalFlags) {
	trackFlags := &TrackFlags{}

	cmd := &cobra.Command{
		Use:   "ensure-tracks",
		Short: "Create missing snap store tracks for supported releases",
		Long: `Make sure every supported Kubernetes release has a matching snap
store track, creating the missing ones. A new minor release needs its
track before the risk-ladder promoter or any CI build can publish into
it. Requires exported charmcraft credentials (CHARMCRAFT_AUTH) with
track administration permissions.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := GetLogger()
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			tracks, err := resolveTracks(ctx, cfg, trackFlags, logger)
			if err != nil {
				return err
			}

			store := snapstore.NewClient(cfg.Snap, logger)
			for _, track := range tracks {
				if global.DryRun {
					logger.Info().Str("track", track).Msg("dry-run: would ensure track")
					continue
				}
				if err := store.EnsureTrack(ctx, cfg.Snap.Name, track); err != nil {
					return err
				}
			}
			return nil
		},
	}

	AddTrackFlags(cmd, trackFlags)
	root.AddCommand(cmd)
}
