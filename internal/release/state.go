// Package release implements the track reconciliation state machine: it
// inspects the candidate and stable revision matrices of every charm in the
// bundle, drives test submission and status resolution per (arch, base)
// cell, and promotes the bundle to stable once every cell has passed.
package release

import (
	"fmt"
	"sort"
	"strings"

	"github.com/canonical/charm-release/internal/sqa"
)

// Outcome is the per-track result of one reconciliation pass.
type Outcome string

const (
	// OutcomeSuccess means the track's charms were promoted to stable.
	OutcomeSuccess Outcome = "success"
	// OutcomeInProgress means tests are pending and no action was taken.
	OutcomeInProgress Outcome = "in_progress"
	// OutcomeFailed means tests failed and manual intervention is required.
	OutcomeFailed Outcome = "failed"
	// OutcomeCIFailed means an infrastructure or query error stopped the
	// track from being evaluated.
	OutcomeCIFailed Outcome = "ci_failed"
	// OutcomeUnchanged means there was nothing to do for the track.
	OutcomeUnchanged Outcome = "unchanged"
)

// Trivial reports whether the outcome carries no information worth reporting
// to follow-up automation.
func (o Outcome) Trivial() bool {
	return o == OutcomeInProgress || o == OutcomeUnchanged
}

// TrackState holds the effective test status of every evaluated cell of one
// track, keyed by the cell's composite version. It is recomputed from
// scratch each pass and discarded afterwards.
type TrackState struct {
	statuses map[string]sqa.Status
}

// NewTrackState returns an empty track state.
func NewTrackState() *TrackState {
	return &TrackState{statuses: make(map[string]sqa.Status)}
}

// Set records the effective status for one cell's version key.
func (s *TrackState) Set(version string, status sqa.Status) {
	s.statuses[version] = status
}

// Len returns the number of evaluated cells.
func (s *TrackState) Len() int {
	return len(s.statuses)
}

// Failed reports whether any cell failed. A failed cell dominates every
// other status.
func (s *TrackState) Failed() bool {
	for _, status := range s.statuses {
		if status.Failed() {
			return true
		}
	}
	return false
}

// Succeeded reports whether every cell passed. A state with zero cells never
// succeeds; an empty evaluation must not read as a vacuous all-pass.
func (s *TrackState) Succeeded() bool {
	if len(s.statuses) == 0 {
		return false
	}
	for _, status := range s.statuses {
		if !status.Succeeded() {
			return false
		}
	}
	return true
}

// InProgress reports whether any cell is still running and none has failed.
func (s *TrackState) InProgress() bool {
	if s.Failed() {
		return false
	}
	for _, status := range s.statuses {
		if status.InProgress() {
			return true
		}
	}
	return false
}

// String renders the state as sorted "version=status" pairs for logging.
func (s *TrackState) String() string {
	versions := make([]string, 0, len(s.statuses))
	for version := range s.statuses {
		versions = append(versions, version)
	}
	sort.Strings(versions)

	pairs := make([]string, 0, len(versions))
	for _, version := range versions {
		pairs = append(pairs, fmt.Sprintf("%s=%s", version, s.statuses[version]))
	}
	return strings.Join(pairs, " ")
}
