package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	log, err := New("debug")
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zap.DebugLevel))

	log, err = New("")
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zap.DebugLevel))
	require.True(t, log.Core().Enabled(zap.InfoLevel))

	_, err = New("loud")
	require.Error(t, err)
}

func TestNewFile_WritesToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	log, err := NewFile(path, "info")
	require.NoError(t, err)

	log.Info("hello", zap.String("who", "alice"))
	_ = log.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"who":"alice"`)
}

func TestNewFile_EmptyPathDiscards(t *testing.T) {
	log, err := NewFile("", "debug")
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zap.ErrorLevel))
}
