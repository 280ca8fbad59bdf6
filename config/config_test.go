package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, `
aliases:
  continue: ["go"]
prompt: "> "
disable-aslr: true
theme: dark
symbol-cache-size: 64
history-file: /tmp/razdbg-history
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, c.Aliases["continue"])
	assert.Equal(t, "> ", c.Prompt)
	assert.True(t, c.DisableASLR)
	assert.Equal(t, "dark", c.Theme)
	assert.Equal(t, 64, c.SymbolCacheSize)
	assert.Equal(t, "/tmp/razdbg-history", c.HistoryFile)
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := writeFile(t, "theme: dark\n")

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "dark", c.Theme)
	assert.Equal(t, Default().Prompt, c.Prompt)
	assert.Equal(t, Default().SymbolCacheSize, c.SymbolCacheSize)
	assert.Equal(t, filepath.Join(filepath.Dir(path), ".history"), c.HistoryFile)
	assert.NotNil(t, c.Aliases)
}

func TestLoadInvalidConfig(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "aliases: [1, 2"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	c := Default()
	c.Aliases["break"] = []string{"b"}
	c.HistoryFile = "/tmp/h"
	require.NoError(t, SaveConfig(c, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestDefaultConfigFileIsCreated(t *testing.T) {
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", home)
	homedir.DisableCache = true
	defer func() {
		os.Setenv("HOME", oldHome)
		homedir.DisableCache = false
	}()

	c, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default().Theme, c.Theme)
	assert.FileExists(t, filepath.Join(home, configDir, configFile))
}
