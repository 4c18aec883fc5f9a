package cli

import (
	"github.com/spf13/cobra"

	"github.com/canonical/charm-release/internal/charmhub"
	"github.com/canonical/charm-release/internal/cmdrunner"
	"github.com/canonical/charm-release/internal/config"
	"github.com/canonical/charm-release/internal/release"
	"github.com/canonical/charm-release/internal/results"
	"github.com/canonical/charm-release/internal/sqa"
)

// AddReconcileCommand adds the reconcile command, the test-gated
// candidate-to-stable charm promotion.
func AddReconcileCommand(root *cobra.Command, global *GlobalFlags) {
	trackFlags := &TrackFlags{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Promote charm bundles from candidate to stable, gated on SQA tests",
		Long: `Reconcile every track of the charm bundle: query the candidate and
stable revision matrices, start SQA release tests for untested cells,
and promote the whole bundle to stable once every cell has passed.

Each track is processed independently; a failure in one track never
blocks the others. Non-trivial outcomes are written to the results file
and the process exits 0 regardless of per-track outcomes.`,
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
			if len(tracks) == 0 {
				logger.Info().Msg("no tracks found for charm release process, skipping")
				return nil
			}
			logger.Info().Strs("tracks", tracks).Msg("starting the charm release process")

			registry := charmhub.NewClient(cfg.Charmhub, logger)
			promoter := charmhub.NewPromoter(cmdrunner.Exec{Timeout: cfg.Charmhub.CommandTimeout}, cfg.Charmhub.CharmcraftPath, logger)
			tests := sqa.New(cfg.SQA, cmdrunner.Exec{Timeout: cfg.SQA.CommandTimeout}, logger)

			reconciler := release.NewReconciler(cfg, registry, promoter, tests, global.DryRun, logger)
			outcomes := reconciler.Run(ctx, tracks)

			entries := make(map[string]string, len(outcomes))
			for track, outcome := range outcomes {
				if outcome.Trivial() {
					continue
				}
				entries[track] = string(outcome)
			}
			return results.Write(cfg.Results.Path, entries)
		},
	}

	AddTrackFlags(cmd, trackFlags)
	root.AddCommand(cmd)
}
