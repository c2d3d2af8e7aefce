package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	rootCmd, err := newRootCommand()
	require.NoError(t, err)

	for _, name := range []string{"log-level", "log-format", "log-file", "config", "endpoint", "transport", "env-file"} {
		require.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
	for _, name := range []string{"chat", "send", "serve", "render", "config"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, cmd.Name())
	}
}

func TestRootCommandRuns(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	rootCmd, err := newRootCommand()
	require.NoError(t, err)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"render", "--format", "plain", "--log-level", "error", "**calm** down"})
	require.NoError(t, rootCmd.Execute())
	require.Equal(t, "calm down\n", out.String())
}
