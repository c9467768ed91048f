package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"normalize", "rank", "summary", "correlate", "fetch", "predict", "settings", "loads", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "exoplanet-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestNormalizeCommand_Flags(t *testing.T) {
	for _, name := range []string{"dialect", "format", "out", "record", "save-raw", "name", "min-radius", "max-year", "earth-like", "sort", "desc"} {
		assert.NotNil(t, normalizeCmd.Flags().Lookup(name), "normalize should have --%s", name)
	}
	assert.Equal(t, "json", normalizeCmd.Flags().Lookup("format").DefValue)
}

func TestRankCommand_Flags(t *testing.T) {
	flag := rankCmd.Flags().Lookup("min-samples")
	require.NotNil(t, flag)
	assert.Equal(t, "10", flag.DefValue)

	for _, name := range []string{"mode", "target", "features", "json"} {
		assert.NotNil(t, rankCmd.Flags().Lookup(name), "rank should have --%s", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
	assert.NotNil(t, serveCmd.Flags().Lookup("load"))
}

func TestSettingsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range settingsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["show"])
	assert.True(t, names["set"])
}

func TestLoadsCommand_Flags(t *testing.T) {
	flag := loadsCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}
