// Copyright © 2024 The ELPS authors

package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("check.checks", "errorf")
	viper.Set("check.exclude", []string{"vendor", "*_gen.go"})
	viper.Set("check.json", false)

	cmd := CheckCommand()
	flags := cmd.Flags()
	require.NoError(t, flags.Set("json", "true"))
	require.NoError(t, applyConfig(flags, "check"))

	checks, err := flags.GetString("checks")
	require.NoError(t, err)
	assert.Equal(t, "errorf", checks)

	excludes, err := flags.GetStringArray("exclude")
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor", "*_gen.go"}, excludes)

	// Flags given on the command line win.
	json, err := flags.GetBool("json")
	require.NoError(t, err)
	assert.True(t, json)
}

func TestApplyConfigInvalid(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("rules.width", "wide")
	err := applyConfig(RulesCommand().Flags(), "rules")
	assert.ErrorContains(t, err, "config rules.width")
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["check"])
	assert.True(t, names["rules"])
	assert.True(t, names["lsp"])
}
