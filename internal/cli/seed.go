package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonical/charm-release/internal/charmhub"
	"github.com/canonical/charm-release/internal/clock"
	"github.com/canonical/charm-release/internal/cmdrunner"
	"github.com/canonical/charm-release/internal/config"
	"github.com/canonical/charm-release/internal/constants"
	"github.com/canonical/charm-release/internal/results"
	"github.com/canonical/charm-release/internal/seed"
	"github.com/canonical/charm-release/internal/sqa"
)

// AddSeedCommand adds the seed command, the insight build path: it submits
// one standalone SQA build per run for revisions that have not been tested
// yet, to surface failures before they reach candidate.
func AddSeedCommand(root *cobra.Command, global *GlobalFlags) {
	trackFlags := &TrackFlags{}
	var (
		arch      string
		base      string
		riskLevel string
		stateFile string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Run single SQA builds for untested charm revisions",
		Long: `Submit one standalone SQA build per track for a charm revision that
has not been tested yet, and report the results of earlier builds.
These builds provide internal insight into possible charm failures
before revisions are released to candidate; they do not gate any
promotion.`,
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
				logger.Info().Msg("no tracks to create the SQA builds for, skipping")
				return nil
			}
			logger.Info().Strs("tracks", tracks).Msg("starting the test build process")

			registry := charmhub.NewClient(cfg.Charmhub, logger)
			builds := sqa.New(cfg.SQA, cmdrunner.Exec{Timeout: cfg.SQA.CommandTimeout}, logger)
			store := seed.NewStore(stateFile, logger)
			seeder := seed.NewSeeder(cfg, registry, builds, store, clock.RealClock{}, global.DryRun, logger)

			entries := make(map[string]string, len(tracks))
			for _, track := range tracks {
				channel := track + "/" + riskLevel
				if err := seeder.SeedOne(ctx, channel, arch, base); err != nil {
					logger.Error().Err(err).Str("channel", channel).Msg("seeding failed")
				}
				entries[track] = fmt.Sprintf("%v", seeder.Results(ctx))
			}
			return results.Write(cfg.Results.Path, entries)
		},
	}

	cmd.Flags().StringVar(&arch, "arch", "amd64", "architecture to run the builds on")
	cmd.Flags().StringVar(&base, "base", "", "base to run the builds on")
	cmd.Flags().StringVar(&riskLevel, "risk-level", "beta", "risk level to run the builds for")
	cmd.Flags().StringVar(&stateFile, "state-file", constants.DefaultSeedStateFile, "file to store the state of the builds")
	AddTrackFlags(cmd, trackFlags)
	root.AddCommand(cmd)
}
