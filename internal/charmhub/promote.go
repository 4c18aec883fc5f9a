package charmhub

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/canonical/charm-release/internal/cmdrunner"
	apperrors "github.com/canonical/charm-release/internal/errors"
)

// Promoter moves the revisions already released in one channel to another
// channel via charmcraft. This is a whole-channel operation, not per-cell.
type Promoter struct {
	runner     cmdrunner.Runner
	charmcraft string
	log        zerolog.Logger
}

// NewPromoter returns a Promoter running the given charmcraft binary.
func NewPromoter(runner cmdrunner.Runner, charmcraftPath string, log zerolog.Logger) *Promoter {
	return &Promoter{
		runner:     runner,
		charmcraft: charmcraftPath,
		log:        log.With().Str("component", "charmcraft").Logger(),
	}
}

// Promote releases everything in fromChannel into toChannel for the charm.
// A failed promotion wraps ErrPromoteFailed so callers can distinguish it
// from a failed test verdict.
func (p *Promoter) Promote(ctx context.Context, charm, fromChannel, toChannel string) error {
	p.log.Info().
		Str("charm", charm).
		Str("from", fromChannel).
		Str("to", toChannel).
		Msg("promoting charm")

	if _, err := p.runner.Run(ctx, p.charmcraft, "promote", charm, fromChannel, toChannel); err != nil {
		return fmt.Errorf("%w: %s %s -> %s: %v", apperrors.ErrPromoteFailed, charm, fromChannel, toChannel, err)
	}
	return nil
}
