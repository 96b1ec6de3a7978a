package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModeDefaultsToSimulated(t *testing.T) {
	for _, raw := range []string{"", "sim", "simulated", "paper", "SIM", " Simulated "} {
		mode, err := ParseMode(raw, false)
		require.NoError(t, err, raw)
		assert.Equal(t, ModeSimulated, mode)
		assert.False(t, mode.Live())
	}
}

func TestParseModeLiveRequiresConfirmation(t *testing.T) {
	_, err := ParseMode("live", false)
	assert.Error(t, err)

	mode, err := ParseMode("live", true)
	require.NoError(t, err)
	assert.Equal(t, ModeLiveConfirmed, mode)
	assert.True(t, mode.Live())
}

func TestParseModeRejectsUnknown(t *testing.T) {
	_, err := ParseMode("yolo", true)
	assert.Error(t, err)
}

func TestNewCoinSpotClientRefusesSimulatedMode(t *testing.T) {
	_, err := NewCoinSpotClient(ModeSimulated, "k", "s")
	assert.Error(t, err)
}

func TestNewCoinSpotClientRequiresCredentials(t *testing.T) {
	_, err := NewCoinSpotClient(ModeLiveConfirmed, "", "s")
	assert.Error(t, err)
	_, err = NewCoinSpotClient(ModeLiveConfirmed, "k", "")
	assert.Error(t, err)
}
