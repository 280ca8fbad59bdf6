package cmds

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/razzie/razdbg/config"
)

func execCommand(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := New()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execCommand("version")
	require.NoError(t, err)
	assert.Equal(t, "razdbg version "+Version+"\n", out)
}

func TestMissingProgram(t *testing.T) {
	_, err := execCommand()
	assert.Error(t, err)
}

func TestAttachInvalidPid(t *testing.T) {
	_, err := execCommand("attach", "abc")
	require.Error(t, err)
	assert.Equal(t, "invalid pid: abc", err.Error())

	_, err = execCommand("attach")
	assert.Error(t, err)
}

func TestOverrideConfig(t *testing.T) {
	f := &flags{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	applyFlags(f, fs)

	conf := config.Default()
	conf.Theme = "dark"
	require.NoError(t, fs.Parse([]string{"--disable-aslr"}))
	overrideConfig(conf, f, fs)
	assert.True(t, conf.DisableASLR)
	assert.Equal(t, "dark", conf.Theme, "unset flag keeps the config value")

	require.NoError(t, fs.Parse([]string{"--theme=light", "--disable-aslr=false"}))
	overrideConfig(conf, f, fs)
	assert.False(t, conf.DisableASLR)
	assert.Equal(t, "light", conf.Theme)
}
