package release

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/canonical/charm-release/internal/charmhub"
	"github.com/canonical/charm-release/internal/config"
	"github.com/canonical/charm-release/internal/sqa"
)

// Registry queries the published revision matrix of one charm channel.
type Registry interface {
	RevisionMatrix(ctx context.Context, charm, channel string) (*charmhub.RevisionMatrix, error)
}

// CharmPromoter moves every revision of a charm channel to another channel.
type CharmPromoter interface {
	Promote(ctx context.Context, charm, from, to string) error
}

// TestService is the release gate: it resolves the effective test status of
// a (channel, version) key and submits new release tests.
type TestService interface {
	ResolveStatus(ctx context.Context, channel, version string) (sqa.Status, bool, error)
	StartTest(ctx context.Context, p sqa.StartTestParams) error
}

// Reconciler drives one reconciliation pass over a set of tracks. Tracks are
// processed strictly one at a time; the test service and the store are rate
// sensitive, and job priorities must form a single ordered stream.
type Reconciler struct {
	registry      Registry
	promoter      CharmPromoter
	tests         TestService
	bundleName    string
	charms        []string
	supportedArch string
	priorities    *sqa.PriorityCounter
	dryRun        bool
	log           zerolog.Logger
}

// NewReconciler returns a reconciler for one pass. The priority counter is
// scoped to the pass so jobs submitted across tracks keep a stable,
// non-starving scheduling order.
func NewReconciler(cfg *config.Config, registry Registry, promoter CharmPromoter, tests TestService, dryRun bool, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		registry:      registry,
		promoter:      promoter,
		tests:         tests,
		bundleName:    cfg.Bundle.Name,
		charms:        cfg.Bundle.Charms,
		supportedArch: cfg.Charmhub.SupportedArch,
		priorities:    sqa.NewPriorityCounter(cfg.SQA.BasePriority),
		dryRun:        dryRun,
		log:           log.With().Str("component", "release").Logger(),
	}
}

// Run reconciles every track in order and returns the outcome per track. No
// track's failure escapes into the loop: every track is processed and its
// outcome recorded regardless of what happened to the tracks before it.
func (r *Reconciler) Run(ctx context.Context, tracks []string) map[string]Outcome {
	outcomes := make(map[string]Outcome, len(tracks))
	for _, track := range tracks {
		outcomes[track] = r.ReconcileTrack(ctx, track)
	}
	return outcomes
}

// ReconcileTrack runs the state machine for one track:
//
//	fetch matrices -> delta check -> testability check -> evaluate cells
//	-> aggregate -> act (promote, wait, or flag)
//
// Every error is absorbed into an outcome; the caller decides nothing.
func (r *Reconciler) ReconcileTrack(ctx context.Context, track string) Outcome {
	log := r.log.With().Str("track", track).Logger()
	candidateChannel := track + "/candidate"
	stableChannel := track + "/stable"

	candidate := charmhub.NewBundle(r.bundleName)
	var delta bool
	for _, charm := range r.charms {
		candidateMatrix, err := r.registry.RevisionMatrix(ctx, charm, candidateChannel)
		if err != nil {
			log.Error().Err(err).Str("charm", charm).Str("channel", candidateChannel).
				Msg("failed to get charm revisions")
			return OutcomeCIFailed
		}
		log.Info().Str("charm", charm).Str("channel", candidateChannel).
			Msgf("revisions:\n%s", candidateMatrix)

		stableMatrix, err := r.registry.RevisionMatrix(ctx, charm, stableChannel)
		if err != nil {
			log.Error().Err(err).Str("charm", charm).Str("channel", stableChannel).
				Msg("failed to get charm revisions")
			return OutcomeCIFailed
		}
		log.Info().Str("charm", charm).Str("channel", stableChannel).
			Msgf("revisions:\n%s", stableMatrix)

		// A charm with no candidate data, or whose candidate equals stable,
		// contributes its stable matrix and no delta.
		if candidateMatrix.Len() == 0 || candidateMatrix.Equal(stableMatrix) {
			candidate.Set(charm, stableMatrix)
			continue
		}
		candidate.Set(charm, candidateMatrix)
		delta = true
	}

	if !delta {
		log.Info().Msgf("channel %s is already published in %s, skipping", candidateChannel, stableChannel)
		return OutcomeUnchanged
	}

	if err := candidate.CheckTestable(); err != nil {
		log.Warn().Err(err).Msg("bundle is not testable as a unit, skipping")
		return OutcomeUnchanged
	}

	state, err := r.ensureTrackState(ctx, track, candidateChannel, candidate)
	if err != nil {
		log.Error().Err(err).Msg("failed to evaluate track state")
		return OutcomeCIFailed
	}
	log.Info().Msgf("track state: %s", state)

	switch {
	case state.Succeeded():
		log.Info().Msg("release run succeeded, promoting charm revisions")
		for _, charm := range r.charms {
			if r.dryRun {
				log.Info().Str("charm", charm).Msg("dry-run: would promote to stable")
				continue
			}
			if err := r.promoter.Promote(ctx, charm, candidateChannel, stableChannel); err != nil {
				// Tests passed but the store refused the promotion; this is
				// an infrastructure failure, not a test verdict.
				log.Error().Err(err).Str("charm", charm).Msg("promotion failed")
				return OutcomeCIFailed
			}
		}
		return OutcomeSuccess
	case state.InProgress():
		log.Info().Msg("release run is still in progress, no action needed")
		return OutcomeInProgress
	case state.Failed():
		log.Warn().Msg("release run failed, manual intervention required")
		return OutcomeFailed
	default:
		log.Error().Msg("track state is unknown")
		return OutcomeCIFailed
	}
}

// ensureTrackState resolves or starts a test for every populated cell of the
// candidate bundle, restricted to the single supported architecture. Cells
// whose test has just been submitted are recorded as in progress.
func (r *Reconciler) ensureTrackState(ctx context.Context, track, channel string, bundle *charmhub.Bundle) (*TrackState, error) {
	state := NewTrackState()
	transform := sqa.TransformForTrack(track)

	archs, err := bundle.Archs()
	if err != nil {
		return nil, err
	}
	bases, err := bundle.Bases()
	if err != nil {
		return nil, err
	}

	for _, arch := range archs {
		// The test service cannot yet bind environments per architecture;
		// testing more than one would create ambiguous job bindings.
		if arch != r.supportedArch {
			r.log.Debug().Str("arch", arch).Msg("skipping unsupported architecture")
			continue
		}

		for _, base := range bases {
			version := bundle.Version(arch, base)
			if version == "" {
				continue
			}

			status, found, err := r.tests.ResolveStatus(ctx, channel, version)
			if err != nil {
				return nil, err
			}
			if found {
				state.Set(version, status)
				continue
			}

			if r.dryRun {
				r.log.Info().Str("version", version).Msg("dry-run: would start release test")
			} else {
				err := r.tests.StartTest(ctx, sqa.StartTestParams{
					Channel:   channel,
					Base:      base,
					Arch:      arch,
					Version:   version,
					Revisions: bundle.Revisions(arch, base),
					Priority:  r.priorities.Next(),
					Transform: transform,
				})
				if err != nil {
					return nil, err
				}
			}
			// The job was just submitted; count it as running.
			state.Set(version, sqa.StatusInProgress)
		}
	}

	return state, nil
}
