package seed

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/canonical/charm-release/internal/charmhub"
	"github.com/canonical/charm-release/internal/clock"
	"github.com/canonical/charm-release/internal/config"
	"github.com/canonical/charm-release/internal/sqa"
)

// Registry queries the published revision matrix of one charm channel.
type Registry interface {
	RevisionMatrix(ctx context.Context, charm, channel string) (*charmhub.RevisionMatrix, error)
}

// BuildService submits standalone test builds and reports their status.
type BuildService interface {
	CreateBuild(ctx context.Context, vars sqa.Variables) (*sqa.Build, error)
	Build(ctx context.Context, buildUUID string) (*sqa.Build, error)
}

// Seeder submits at most one seed build per invocation and channel. One
// build at a time keeps the load on the test lab predictable; the cron
// cadence covers the remaining cells over subsequent runs.
type Seeder struct {
	registry     Registry
	builds       BuildService
	store        *Store
	clock        clock.Clock
	bundleName   string
	charms       []string
	primaryCharm string
	dryRun       bool
	log          zerolog.Logger
}

// NewSeeder returns a seeder. The first configured charm is the primary
// charm whose revision keys the state file.
func NewSeeder(cfg *config.Config, registry Registry, builds BuildService, store *Store, clk clock.Clock, dryRun bool, log zerolog.Logger) *Seeder {
	return &Seeder{
		registry:     registry,
		builds:       builds,
		store:        store,
		clock:        clk,
		bundleName:   cfg.Bundle.Name,
		charms:       cfg.Bundle.Charms,
		primaryCharm: cfg.Bundle.Charms[0],
		dryRun:       dryRun,
		log:          log.With().Str("component", "seed").Logger(),
	}
}

// SeedOne submits one seed build for the channel, picking the first
// untested (base, arch) cell in sorted order so repeated runs walk the
// matrix deterministically. Cells whose primary charm revision is already
// recorded in the state file are skipped. Optional arch and base constraints
// narrow the candidate cells. Returns without error when nothing is left to
// test.
func (s *Seeder) SeedOne(ctx context.Context, channel, arch, base string) error {
	state := s.store.Load()
	s.log.Info().Str("channel", channel).Int("tested", len(state)).Msg("seeding channel")

	bundle := charmhub.NewBundle(s.bundleName)
	for _, charm := range s.charms {
		matrix, err := s.registry.RevisionMatrix(ctx, charm, channel)
		if err != nil {
			return fmt.Errorf("failed to get revision matrix for charm %s channel %s: %w", charm, channel, err)
		}
		if matrix.Len() == 0 {
			s.log.Warn().Str("charm", charm).Str("channel", channel).Msg("charm has no revisions on channel")
			return nil
		}
		s.log.Info().Str("charm", charm).Str("channel", channel).Msgf("revisions:\n%s", matrix)
		bundle.Set(charm, matrix)
	}

	primary := bundle.Get(s.primaryCharm)
	type cell struct{ base, arch string }
	var testable []cell
	for _, matrixBase := range primary.Bases() {
		for _, matrixArch := range primary.Archs() {
			if arch != "" && arch != matrixArch {
				continue
			}
			if base != "" && base != matrixBase {
				continue
			}
			revision := primary.Get(matrixArch, matrixBase)
			if revision == "" {
				continue
			}
			if _, tested := state[revision]; tested {
				continue
			}
			testable = append(testable, cell{base: matrixBase, arch: matrixArch})
		}
	}

	if len(testable) == 0 {
		s.log.Info().Str("channel", channel).Msg("no untested revisions match the constraints, skipping")
		return nil
	}

	sort.Slice(testable, func(i, j int) bool {
		if testable[i].base != testable[j].base {
			return testable[i].base < testable[j].base
		}
		return testable[i].arch < testable[j].arch
	})
	picked := testable[0]
	s.log.Info().
		Str("base", picked.base).
		Str("arch", picked.arch).
		Int("candidates", len(testable)).
		Msg("selected cell for testing")

	revisions := bundle.Revisions(picked.arch, picked.base)
	track, _, _ := strings.Cut(channel, "/")
	vars := sqa.Variables{
		Base:      picked.base,
		Arch:      picked.arch,
		Channel:   channel,
		Branch:    sqa.BranchForChannel(channel),
		Revisions: revisions,
		Transform: sqa.TransformForTrack(track),
	}

	s.log.Info().Str("channel", channel).Interface("revisions", revisions).Msg("creating seed build")
	if s.dryRun {
		s.log.Info().Msg("dry-run: build not submitted")
		return nil
	}

	build, err := s.builds.CreateBuild(ctx, vars)
	if err != nil {
		return err
	}

	state[primary.Get(picked.arch, picked.base)] = Record{
		BuildUUID: build.UUID.String(),
		Channel:   channel,
		Base:      picked.base,
		Arch:      picked.arch,
		CreatedAt: s.clock.Now().UTC(),
	}
	return s.store.Save(state)
}

// Results reports the status of every recorded seed build, keyed by the
// primary charm revision. Lookup failures are logged and skipped so one
// stale record does not hide the rest.
func (s *Seeder) Results(ctx context.Context) map[string]string {
	results := make(map[string]string)
	state := s.store.Load()
	if len(state) == 0 {
		s.log.Info().Msg("no seed state found, returning empty results")
		return results
	}

	for revision, record := range state {
		build, err := s.builds.Build(ctx, record.BuildUUID)
		if err != nil {
			s.log.Error().Err(err).Str("uuid", record.BuildUUID).Msg("failed to get build")
			continue
		}
		results[revision] = fmt.Sprintf("status: %s result: %s uuid: %s", build.Status, build.Result, build.UUID)
	}
	return results
}
