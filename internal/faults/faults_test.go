package faults_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"focusmon/internal/faults"
)

func TestDependencyWrapping(t *testing.T) {
	require.NoError(t, faults.Dependency("face check", nil))

	cause := errors.New("connection refused")
	err := faults.Dependency("face check", cause)
	require.True(t, faults.IsDependency(err))
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "face check")

	// Classification survives further wrapping.
	wrapped := fmt.Errorf("process event: %w", err)
	require.True(t, faults.IsDependency(wrapped))
	require.False(t, faults.IsFormat(wrapped))
}

func TestFormatWrapping(t *testing.T) {
	err := faults.Format("empty message texts", nil)
	require.True(t, faults.IsFormat(err))
	require.False(t, faults.IsDependency(err))
	require.Equal(t, "empty message texts", err.Error())
}

func TestConfigError(t *testing.T) {
	err := faults.Config("CHAT_BOT_TOKEN")
	var ce *faults.ConfigError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "CHAT_BOT_TOKEN", ce.Key)
}
