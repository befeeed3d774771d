package consent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsentLevelValid(t *testing.T) {
	assert.True(t, LevelFullProfile.Valid())
	assert.True(t, LevelLimitedAnonymized.Valid())
	assert.True(t, LevelMinimalPseudonymous.Valid())
	assert.False(t, ConsentLevel("everything").Valid())
}

func TestConsentLevelAllowsRetrieval(t *testing.T) {
	assert.True(t, LevelFullProfile.AllowsRetrieval())
	assert.True(t, LevelLimitedAnonymized.AllowsRetrieval())
	assert.False(t, LevelMinimalPseudonymous.AllowsRetrieval())
	assert.False(t, ConsentLevel("bogus").AllowsRetrieval())
}

func TestParseConsentLevel(t *testing.T) {
	level, err := ParseConsentLevel("limited_anonymized")
	require.NoError(t, err)
	assert.Equal(t, LevelLimitedAnonymized, level)

	_, err = ParseConsentLevel("partial")
	assert.Error(t, err)
}

func TestConfigGateResolve(t *testing.T) {
	gate, err := NewConfigGate("minimal_pseudonymous", map[string]string{
		"s_full":    "full_profile",
		"s_limited": "limited_anonymized",
	}, nil)
	require.NoError(t, err)

	tests := []struct {
		name      string
		studentID string
		want      ConsentLevel
	}{
		{name: "configured full", studentID: "s_full", want: LevelFullProfile},
		{name: "configured limited", studentID: "s_limited", want: LevelLimitedAnonymized},
		{name: "unknown gets default", studentID: "s_unknown", want: LevelMinimalPseudonymous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			student, err := gate.Resolve(context.Background(), tt.studentID)
			require.NoError(t, err)
			assert.Equal(t, tt.studentID, student.ID)
			assert.Equal(t, tt.want, student.ConsentLevel)
		})
	}
}

func TestConfigGateResolveNotCached(t *testing.T) {
	gate, err := NewConfigGate("", map[string]string{"s1": "full_profile"}, nil)
	require.NoError(t, err)

	first, err := gate.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	second, err := gate.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestConfigGateEmptyStudentID(t *testing.T) {
	gate, err := NewConfigGate("", nil, nil)
	require.NoError(t, err)

	_, err = gate.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrConsentResolution)
}

func TestNewConfigGateRejectsInvalidLevels(t *testing.T) {
	_, err := NewConfigGate("open_bar", nil, nil)
	assert.Error(t, err)

	_, err = NewConfigGate("", map[string]string{"s1": "sometimes"}, nil)
	assert.Error(t, err)
}

func TestNewConfigGateDefaultsToMostRestrictive(t *testing.T) {
	gate, err := NewConfigGate("", nil, nil)
	require.NoError(t, err)

	student, err := gate.Resolve(context.Background(), "anyone")
	require.NoError(t, err)
	assert.Equal(t, LevelMinimalPseudonymous, student.ConsentLevel)
}
