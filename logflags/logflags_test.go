package logflags

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithoutLog(t *testing.T) {
	defer Reset()

	require.NoError(t, Setup(false, "", ""))
	assert.False(t, Tracer())
	assert.Equal(t, logrus.PanicLevel, TracerLogger().Logger.Level)

	assert.Equal(t, errLogstrWithoutLog, Setup(false, "tracer", ""))
}

func TestSetupLayers(t *testing.T) {
	defer Reset()

	require.NoError(t, Setup(true, "symbols,terminal", ""))
	assert.False(t, Tracer())
	assert.True(t, Symbols())
	assert.True(t, Terminal())
	assert.Equal(t, logrus.DebugLevel, SymbolsLogger().Logger.Level)
}

func TestSetupDefaultLayer(t *testing.T) {
	defer Reset()

	require.NoError(t, Setup(true, "", ""))
	assert.True(t, Tracer())
}

func TestSetupLogDest(t *testing.T) {
	defer Reset()

	dest := filepath.Join(t.TempDir(), "razdbg.log")
	require.NoError(t, Setup(true, "tracer", dest))

	TracerLogger().Debug("hello")

	data, err := ioutil.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "layer=tracer")
}
