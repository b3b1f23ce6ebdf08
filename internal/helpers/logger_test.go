package helpers

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	t.Run("uses provided handler", func(t *testing.T) {
		var buf bytes.Buffer
		in := slog.NewTextHandler(&buf, nil)

		handler, logger := SetupLogger(in, "script", "Script")
		require.Equal(t, in, handler)

		logger.Info("hello", "k", "v")
		require.Contains(t, buf.String(), "Script.k=v")
	})

	t.Run("no group name", func(t *testing.T) {
		var buf bytes.Buffer
		_, logger := SetupLogger(slog.NewTextHandler(&buf, nil), "cache", "")

		logger.Info("plain", "k", "v")
		require.Contains(t, buf.String(), " k=v")
	})

	t.Run("nil handler gets a default", func(t *testing.T) {
		handler, logger := SetupLogger(nil, "wasm", "Compiler")
		require.NotNil(t, handler)
		require.NotNil(t, logger)
	})
}
