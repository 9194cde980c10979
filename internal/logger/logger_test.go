package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	t.Run("success - configured level", func(t *testing.T) {
		l, err := New("webhook-analyzer", "WARN", true)

		require.NoError(t, err)
		assert.Equal(t, zerolog.WarnLevel, l.GetLevel())
		assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	})

	t.Run("success - default level", func(t *testing.T) {
		l, err := New("webhook-analyzer", "", false)

		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
	})

	t.Run("error - unknown level", func(t *testing.T) {
		_, err := New("webhook-analyzer", "loud", true)

		assert.Error(t, err)
	})
}
