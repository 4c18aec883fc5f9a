package sqa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/charm-release/internal/config"
	apperrors "github.com/canonical/charm-release/internal/errors"
)

const (
	pvUUID    = "11111111-1111-1111-1111-111111111111"
	tpiUUID   = "22222222-2222-2222-2222-222222222222"
	addonUUID = "33333333-3333-3333-3333-333333333333"
	buildUUID = "44444444-4444-4444-4444-444444444444"
)

// fakeRunner dispatches SQA CLI invocations to a handler and records every
// call.
type fakeRunner struct {
	calls   [][]string
	handler func(args []string) (string, error)
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	return f.handler(args)
}

// count returns how many recorded calls start with the given subcommands.
func (f *fakeRunner) count(prefix ...string) int {
	n := 0
	for _, call := range f.calls {
		if len(call) < len(prefix) {
			continue
		}
		match := true
		for i, p := range prefix {
			if call[i] != p {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}

func testSQAClient(runner *fakeRunner) *Client {
	cfg := config.SQAConfig{
		ProductUUID:  "aaaa",
		TestPlanID:   "bbbb",
		TestPlanName: "CanonicalK8s",
		WeeblPath:    "/snap/bin/weebl-tools.sqalab",
	}
	return New(cfg, runner, zerolog.Nop())
}

// instanceHandler simulates a product version whose test plan instances
// carry the given statuses.
func instanceHandler(statuses map[Status][]string) func(args []string) (string, error) {
	return func(args []string) (string, error) {
		switch args[0] + " " + args[1] {
		case "productversion list":
			return fmt.Sprintf(`[{"uuid": %q, "version": "v", "channel": "c"}]`, pvUUID), nil
		case "testplaninstance list":
			var status string
			for i, arg := range args {
				if arg == "--status" {
					status = args[i+1]
				}
			}
			for s, uuids := range statuses {
				if strings.EqualFold(string(s), status) && len(uuids) > 0 {
					quoted := make([]string, len(uuids))
					for i, u := range uuids {
						quoted[i] = fmt.Sprintf("%q", u)
					}
					return fmt.Sprintf("some progress noise\n{\"CanonicalK8s\": [%s]}", strings.Join(quoted, ",")), nil
				}
			}
			return "some progress noise\n{}", nil
		}
		return "", fmt.Errorf("unexpected command %v", args)
	}
}

func TestResolveStatus_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[Status][]string
		want     Status
		found    bool
	}{
		{
			name:     "passed dominates failed",
			statuses: map[Status][]string{StatusPassed: {tpiUUID}, StatusFailed: {tpiUUID}},
			want:     StatusPassed,
			found:    true,
		},
		{
			name:     "in progress dominates failed",
			statuses: map[Status][]string{StatusFailed: {tpiUUID}, StatusInProgress: {tpiUUID}},
			want:     StatusInProgress,
			found:    true,
		},
		{
			name:     "only failed",
			statuses: map[Status][]string{StatusFailed: {tpiUUID}},
			want:     StatusFailed,
			found:    true,
		},
		{
			name:     "errored runs count as failed",
			statuses: map[Status][]string{StatusError: {tpiUUID}},
			want:     StatusFailed,
			found:    true,
		},
		{
			name:     "no instances at all",
			statuses: map[Status][]string{},
			found:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{handler: instanceHandler(tt.statuses)}
			client := testSQAClient(runner)

			status, found, err := client.ResolveStatus(context.Background(), "1.32/candidate", "version-key")
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.want, status)
			}
		})
	}
}

// TestResolveStatus_EmptyInstanceList verifies that a CLI printing no JSON
// document (or a bare empty array) for an instance list means "no instances",
// not a failed track.
func TestResolveStatus_EmptyInstanceList(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"empty output", ""},
		{"empty array", "[]"},
		{"noise only", "some progress noise\n"},
		{"noise then empty array", "some progress noise\n[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{handler: func(args []string) (string, error) {
				if args[0] == "productversion" {
					return fmt.Sprintf(`[{"uuid": %q, "version": "v", "channel": "c"}]`, pvUUID), nil
				}
				return tt.out, nil
			}}
			client := testSQAClient(runner)

			_, found, err := client.ResolveStatus(context.Background(), "1.32/candidate", "version-key")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestResolveStatus_NoProductVersion(t *testing.T) {
	runner := &fakeRunner{handler: func(args []string) (string, error) {
		return "[]", nil
	}}
	client := testSQAClient(runner)

	_, found, err := client.ResolveStatus(context.Background(), "1.32/candidate", "version-key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResolveStatus_CommandFailure(t *testing.T) {
	runner := &fakeRunner{handler: func(args []string) (string, error) {
		return "", errors.New("weebl exploded")
	}}
	client := testSQAClient(runner)

	_, _, err := client.ResolveStatus(context.Background(), "1.32/candidate", "version-key")
	require.ErrorIs(t, err, apperrors.ErrSQACommand)
}

func startTestParams() StartTestParams {
	return StartTestParams{
		Channel:   "1.32/candidate",
		Base:      "22.04",
		Arch:      "amd64",
		Version:   "k8s-operator-k8s-10-k8s-worker-11",
		Revisions: map[string]string{"k8s": "10", "k8s-worker": "11"},
		Priority:  3,
		Transform: TransformHyphenToUnderscore,
	}
}

func TestStartTest_CreatesEverything(t *testing.T) {
	runner := &fakeRunner{handler: func(args []string) (string, error) {
		switch args[0] + " " + args[1] {
		case "productversion list":
			return "[]", nil
		case "productversion add":
			return fmt.Sprintf(`[{"uuid": %q}]`, pvUUID), nil
		case "addon list":
			return "[]", nil
		case "addon add":
			return fmt.Sprintf(`[{"uuid": %q, "name": "n"}]`, addonUUID), nil
		case "testplaninstance add":
			return fmt.Sprintf("noise [{\"uuid\": %q, \"status\": \"In Progress\"}]", tpiUUID), nil
		}
		return "", fmt.Errorf("unexpected command %v", args)
	}}
	client := testSQAClient(runner)

	require.NoError(t, client.StartTest(context.Background(), startTestParams()))
	assert.Equal(t, 1, runner.count("productversion", "add"))
	assert.Equal(t, 1, runner.count("addon", "add"))
	assert.Equal(t, 1, runner.count("testplaninstance", "add"))
}

// TestStartTest_ReusesExistingRecords verifies idempotency: an existing
// product version and addon are reused, never recreated.
func TestStartTest_ReusesExistingRecords(t *testing.T) {
	runner := &fakeRunner{handler: func(args []string) (string, error) {
		switch args[0] + " " + args[1] {
		case "productversion list":
			return fmt.Sprintf(`[{"uuid": %q}]`, pvUUID), nil
		case "addon list":
			return fmt.Sprintf(`[{"uuid": %q, "name": "n"}]`, addonUUID), nil
		case "testplaninstance add":
			return fmt.Sprintf(`[{"uuid": %q}]`, tpiUUID), nil
		}
		return "", fmt.Errorf("unexpected command %v", args)
	}}
	client := testSQAClient(runner)

	require.NoError(t, client.StartTest(context.Background(), startTestParams()))
	assert.Zero(t, runner.count("productversion", "add"))
	assert.Zero(t, runner.count("addon", "add"))
	assert.Equal(t, 1, runner.count("testplaninstance", "add"))
}

func TestStartTest_AmbiguousProductVersions(t *testing.T) {
	runner := &fakeRunner{handler: func(args []string) (string, error) {
		return fmt.Sprintf(`[{"uuid": %q}, {"uuid": %q}]`, pvUUID, tpiUUID), nil
	}}
	client := testSQAClient(runner)

	err := client.StartTest(context.Background(), startTestParams())
	require.ErrorIs(t, err, apperrors.ErrInvariant)
}

func TestBuild(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		runner := &fakeRunner{handler: func(args []string) (string, error) {
			return fmt.Sprintf(`[{"uuid": %q, "status": "done", "result": "passed"}]`, buildUUID), nil
		}}
		build, err := testSQAClient(runner).Build(context.Background(), buildUUID)
		require.NoError(t, err)
		assert.Equal(t, "done", build.Status)
		assert.Equal(t, "passed", build.Result)
	})

	t.Run("not found", func(t *testing.T) {
		runner := &fakeRunner{handler: func(args []string) (string, error) {
			return "[]", nil
		}}
		_, err := testSQAClient(runner).Build(context.Background(), buildUUID)
		require.ErrorIs(t, err, apperrors.ErrBuildNotFound)
	})
}

func TestDecodeArray_TrimsCLINoise(t *testing.T) {
	out := "Doing things...\nMore progress\n[{\"uuid\": \"" + pvUUID + "\"}]\n"
	items, err := decodeArray[ProductVersion](out)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, pvUUID, items[0].UUID.String())

	t.Run("empty output", func(t *testing.T) {
		items, err := decodeArray[ProductVersion]("")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("no array present", func(t *testing.T) {
		_, err := decodeArray[ProductVersion]("no json here")
		require.ErrorIs(t, err, apperrors.ErrInvariant)
	})
}
