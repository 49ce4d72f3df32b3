package indexerd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoreError_KindMatching(t *testing.T) {
	err := NewError(KindDatabaseFatal, "db.PutEntity", "unique violation on upsert path", errors.New("duplicate key"))
	require.True(t, IsDatabaseFatal(err))
	require.False(t, IsDatabaseTransient(err))
	require.True(t, errors.Is(err, &CoreError{Kind: KindDatabaseFatal}))
	require.False(t, errors.Is(err, &CoreError{Kind: KindSchema}))
}

func TestCoreError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewError(KindNodeTransient, "fetcher.Poll", "dial failed", cause)
	require.ErrorIs(t, err, cause)
}

func TestKind_Fatal(t *testing.T) {
	for k, want := range map[Kind]bool{
		KindConfiguration:     true,
		KindSchema:            true,
		KindModuleLoad:        true,
		KindModuleExecution:   false,
		KindDatabaseTransient: false,
		KindDatabaseFatal:     true,
		KindNodeTransient:     false,
		KindQuery:             false,
	} {
		require.Equal(t, want, k.Fatal(), "kind %s", k)
	}
}

func TestStatus_Terminal(t *testing.T) {
	require.False(t, StatusRunning.Terminal())
	require.True(t, StatusStopped.Terminal())
	require.True(t, StatusCompleted.Terminal())
	require.False(t, StatusRegistered.Terminal())
}
