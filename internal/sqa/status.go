// Package sqa provides the client for the SQA lab (weebl) CLI: product
// versions, test plan instances, addon rendering and submission, and the
// status precedence reduction used by the release reconciler.
package sqa

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/canonical/charm-release/internal/errors"
)

// Status is a test-plan-instance status as reported by the SQA lab. The
// vocabulary (including its inconsistent casing) is owned by the external
// service; this package only consumes it.
type Status string

// The known status values.
const (
	StatusInProgress Status = "In Progress"
	StatusSkipped    Status = "skipped"
	StatusError      Status = "error"
	StatusAborted    Status = "aborted"
	StatusFailure    Status = "failure"
	StatusSuccess    Status = "success"
	StatusUnknown    Status = "unknown"
	StatusPassed     Status = "Passed"
	StatusFailed     Status = "Failed"
	StatusReleased   Status = "Released"
)

// allStatuses lists every known status for case-insensitive parsing.
var allStatuses = []Status{
	StatusInProgress,
	StatusSkipped,
	StatusError,
	StatusAborted,
	StatusFailure,
	StatusSuccess,
	StatusUnknown,
	StatusPassed,
	StatusFailed,
	StatusReleased,
}

// verdict captures the three derived booleans for one status. The mapping is
// kept as data rather than behavior on the enumeration so the track-level
// reduction stays testable in isolation.
type verdict struct {
	failed     bool
	succeeded  bool
	inProgress bool
}

// verdicts maps each status to its reduction verdict. Statuses absent from
// the map (skipped, aborted, unknown, released, success) carry no verdict:
// they hold no information about the state of a track.
var verdicts = map[Status]verdict{
	StatusPassed:     {succeeded: true},
	StatusInProgress: {inProgress: true},
	StatusFailed:     {failed: true},
	StatusFailure:    {failed: true},
	StatusError:      {failed: true},
}

// Failed reports whether the status counts as a test failure.
func (s Status) Failed() bool {
	return verdicts[s].failed
}

// Succeeded reports whether the status counts as a test pass.
func (s Status) Succeeded() bool {
	return verdicts[s].succeeded
}

// InProgress reports whether the status counts as a running test.
func (s Status) InProgress() bool {
	return verdicts[s].inProgress
}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(name string) (Status, error) {
	for _, s := range allStatuses {
		if strings.EqualFold(string(s), name) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown test plan instance status %q", apperrors.ErrInvariant, name)
}

// UnmarshalJSON parses a status case-insensitively, since the service is not
// consistent about casing across endpoints.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
