package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncolesummers/deep-research-agent/pkg/config"
)

func TestReadQuery(t *testing.T) {
	var prompt bytes.Buffer
	q, err := readQuery(strings.NewReader("  impact of tariffs on EV prices \n"), &prompt)
	require.NoError(t, err)
	assert.Equal(t, "impact of tariffs on EV prices", q)
	assert.Equal(t, "Enter your research query: ", prompt.String())

	q, err = readQuery(strings.NewReader("no trailing newline"), &prompt)
	require.NoError(t, err)
	assert.Equal(t, "no trailing newline", q)

	_, err = readQuery(strings.NewReader("\n"), &prompt)
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	closeFn, err := setupLogging(config.LoggingConfig{Level: "debug", Format: "console", Output: filepath.Join(t.TempDir(), "run.log")})
	require.NoError(t, err)
	closeFn()

	_, err = setupLogging(config.LoggingConfig{Level: "loud", Format: "json", Output: "stderr"})
	assert.Error(t, err)

	closeFn, err = setupLogging(config.LoggingConfig{Level: "info", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	closeFn()
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "deep-research dev (built unknown)\n", out.String())
}
