package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "loam", cmd.Use)
	assert.Contains(t, cmd.Long, "local-first")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"init", "note", "script", "log", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestNoteSubcommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	subcommands := []string{"create", "update", "move", "delete", "copy", "show", "tree", "action"}

	for _, name := range subcommands {
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{"note", name})
			require.NoError(t, err)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestScriptSubcommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	subcommands := []string{"add", "list", "update", "enable", "disable", "reorder", "rm"}

	for _, name := range subcommands {
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{"script", name})
			require.NoError(t, err)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	deviceFlag := cmd.PersistentFlags().Lookup("device")
	require.NotNil(t, deviceFlag)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
}

func TestNoteDeleteCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	deleteCmd, _, err := cmd.Find([]string{"note", "delete"})
	require.NoError(t, err)

	strategyFlag := deleteCmd.Flags().Lookup("strategy")
	require.NotNil(t, strategyFlag)
	assert.Equal(t, "all", strategyFlag.DefValue)
}

func TestLogPurgeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	purgeCmd, _, err := cmd.Find([]string{"log", "purge"})
	require.NoError(t, err)

	keepFlag := purgeCmd.Flags().Lookup("keep-last")
	require.NotNil(t, keepFlag)
	assert.Equal(t, "1000", keepFlag.DefValue)

	syncFlag := purgeCmd.Flags().Lookup("with-sync")
	require.NotNil(t, syncFlag)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "init"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestResolveConfig_FlagOverridesDefaults(t *testing.T) {
	cfg, err := resolveConfig(&RootOptions{Database: "custom.db", DeviceID: "laptop"})
	require.NoError(t, err)
	assert.Equal(t, "custom.db", cfg.DatabasePath)
	assert.Equal(t, "laptop", cfg.DeviceID)
	assert.Equal(t, "local_only", cfg.Purge.Strategy)
}

func TestResolveConfig_DeviceDefaultsToHostname(t *testing.T) {
	cfg, err := resolveConfig(&RootOptions{})
	require.NoError(t, err)
	assert.Equal(t, "loam.db", cfg.DatabasePath)
	assert.NotEmpty(t, cfg.DeviceID)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}
