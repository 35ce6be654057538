package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	old := Logger
	t.Cleanup(func() { Logger = old })

	for _, mode := range []string{"debug", "release"} {
		require.NoError(t, InitLogger(mode))
		assert.NotNil(t, Logger)
		Logger.Info("logger ready")
	}
}
