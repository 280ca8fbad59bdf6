package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressTranslation(t *testing.T) {
	at := NewAddressTranslator()
	assert.False(t, at.IsResolved())

	require.NoError(t, at.Resolve(0x555555554000))
	assert.True(t, at.IsResolved())
	assert.Equal(t, uintptr(0x555555554000), at.LoadAddress())

	for _, addr := range []uintptr{0, 0x1139, 0x2000} {
		runtime := at.ToRuntime(addr)
		assert.Equal(t, addr+0x555555554000, runtime)
		assert.Equal(t, addr, at.ToStatic(runtime))
	}
}

func TestAddressTranslationOfFixedExecutable(t *testing.T) {
	at := NewAddressTranslator()
	require.NoError(t, at.Resolve(0))

	assert.Equal(t, uintptr(0x401126), at.ToRuntime(0x401126))
	assert.Equal(t, uintptr(0x401126), at.ToStatic(0x401126))
}

func TestAddressTranslationBeforeResolve(t *testing.T) {
	at := NewAddressTranslator()

	assert.Panics(t, func() { at.ToRuntime(0x1000) })
	assert.Panics(t, func() { at.ToStatic(0x1000) })
	assert.Panics(t, func() { at.LoadAddress() })
}

func TestResolveTwice(t *testing.T) {
	at := NewAddressTranslator()
	require.NoError(t, at.Resolve(0x1000))

	assert.Error(t, at.Resolve(0x2000))
	assert.Equal(t, uintptr(0x1000), at.LoadAddress())
}
