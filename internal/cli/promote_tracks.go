package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonical/charm-release/internal/clock"
	"github.com/canonical/charm-release/internal/cmdrunner"
	"github.com/canonical/charm-release/internal/config"
	"github.com/canonical/charm-release/internal/ladder"
	"github.com/canonical/charm-release/internal/snapstore"
)

// AddPromoteTracksCommand adds the promote-tracks command, the risk-ladder
// snap promotion.
func AddPromoteTracksCommand(root *cobra.Command, global *GlobalFlags) {
	var proposeOnly bool

	cmd := &cobra.Command{
		Use:   "promote-tracks",
		Short: "Promote snap revisions through the risk levels of each track",
		Long: `Walk the snap store channel map and promote revisions through
edge -> beta -> candidate -> stable, one risk level at a time. A
revision is promoted after dwelling at its risk level for a minimum
number of days. The 'latest' track is ignored. The first stable release
of a track requires blessing from SolQA and is only flagged, never
promoted automatically.

Expects snapcraft to be logged in with sufficient permissions, if not
dry-running.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := GetLogger()
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store := snapstore.NewClient(cfg.Snap, logger)
			info, err := store.Info(ctx, cfg.Snap.Name)
			if err != nil {
				return err
			}

			l := ladder.New(cfg.Ladder, cfg.Snap.Name, clock.RealClock{}, logger)
			actions := l.Propose(info)
			if len(actions) == 0 {
				logger.Info().Msg("no promotions due")
				return nil
			}

			if proposeOnly {
				encoded, err := json.MarshalIndent(actions, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return nil
			}

			releaser := snapstore.NewReleaser(cmdrunner.Exec{Timeout: cfg.Snap.CommandTimeout}, cfg.Snap.SnapcraftPath, cfg.Snap.Name, logger)
			return l.Apply(ctx, releaser, actions, global.DryRun)
		},
	}

	cmd.Flags().BoolVar(&proposeOnly, "propose", false, "print the proposed promotions as JSON without executing them")
	root.AddCommand(cmd)
}
