package ladder

import (
	"context"
	"errors"
)

// SnapReleaser releases one snap revision into a channel.
type SnapReleaser interface {
	Release(ctx context.Context, revision int, channel string) error
}

// Apply executes the proposed promotions. Approval requests are never
// released; they were already surfaced when proposed. A failed release does
// not stop the remaining actions, every failure is collected and returned.
func (l *Ladder) Apply(ctx context.Context, releaser SnapReleaser, actions []Action, dryRun bool) error {
	var errs []error
	for _, action := range actions {
		if action.Kind != KindPromote {
			continue
		}
		if dryRun {
			l.log.Info().
				Int("revision", action.Revision).
				Str("channel", action.FinalChannel).
				Msg("dry-run: would release revision")
			continue
		}
		if err := releaser.Release(ctx, action.Revision, action.FinalChannel); err != nil {
			l.log.Error().Err(err).
				Int("revision", action.Revision).
				Str("channel", action.FinalChannel).
				Msg("release failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
