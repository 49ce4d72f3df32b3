package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/indexerd"
)

func TestSession_HappyPath(t *testing.T) {
	s := NewSession()
	require.Equal(t, indexerd.StatusRegistered, s.Status())
	require.NoError(t, s.Start())
	require.Equal(t, indexerd.StatusRunning, s.Status())

	s.BatchOK()
	require.Equal(t, indexerd.StatusRunning, s.Status())

	require.NoError(t, s.Complete())
	require.Equal(t, indexerd.StatusCompleted, s.Status())
	require.True(t, s.Status().Terminal())
}

func TestSession_FatalBatchStops(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Start())
	status := s.BatchFailed(true)
	require.Equal(t, indexerd.StatusStopped, status)
}

func TestSession_TransientRetriesThenStops(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Start())

	for i := 0; i < maxTransientRetries; i++ {
		status := s.BatchFailed(false)
		require.Equal(t, indexerd.StatusRunning, status)
	}
	status := s.BatchFailed(false)
	require.Equal(t, indexerd.StatusStopped, status)
}

func TestSession_TransientErrorsResetOnSuccess(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Start())
	s.BatchFailed(false)
	s.BatchOK()
	for i := 0; i < maxTransientRetries; i++ {
		status := s.BatchFailed(false)
		require.Equal(t, indexerd.StatusRunning, status)
	}
}

func TestSession_CannotStartTwice(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Start())
	require.Error(t, s.Start())
}

func TestBudget_ChargeExhausts(t *testing.T) {
	b := NewBudget(2)
	require.True(t, b.Charge(1))
	require.True(t, b.Charge(1))
	require.False(t, b.Charge(1))
}

func TestKillSwitch_TripObserved(t *testing.T) {
	k := &KillSwitch{}
	require.False(t, k.Tripped())
	k.Trip()
	require.True(t, k.Tripped())
}
