package sqa

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Verdicts(t *testing.T) {
	tests := []struct {
		status     Status
		failed     bool
		succeeded  bool
		inProgress bool
	}{
		{StatusPassed, false, true, false},
		{StatusInProgress, false, false, true},
		{StatusFailed, true, false, false},
		{StatusFailure, true, false, false},
		{StatusError, true, false, false},
		// Statuses carrying no verdict at all.
		{StatusAborted, false, false, false},
		{StatusSkipped, false, false, false},
		{StatusUnknown, false, false, false},
		{StatusReleased, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.failed, tt.status.Failed())
			assert.Equal(t, tt.succeeded, tt.status.Succeeded())
			assert.Equal(t, tt.inProgress, tt.status.InProgress())
		})
	}
}

func TestParseStatus(t *testing.T) {
	t.Run("case insensitive", func(t *testing.T) {
		s, err := ParseStatus("in progress")
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, s)

		s, err = ParseStatus("PASSED")
		require.NoError(t, err)
		assert.Equal(t, StatusPassed, s)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := ParseStatus("bogus")
		require.Error(t, err)
	})
}

func TestStatus_UnmarshalJSON(t *testing.T) {
	var payload struct {
		Status Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status": "failed"}`), &payload))
	assert.Equal(t, StatusFailed, payload.Status)
	assert.True(t, payload.Status.Failed())
}
