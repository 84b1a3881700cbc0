package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "gridseis", cmd.Use)
	assert.Contains(t, cmd.Long, "mains-frequency")
	assert.Contains(t, cmd.Version, "dev")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"capture", "ports", "plot"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)
}

func TestCaptureCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	captureCmd, _, err := cmd.Find([]string{"capture"})
	require.NoError(t, err)

	nameFlag := captureCmd.Flags().Lookup("name")
	require.NotNil(t, nameFlag)
	assert.Equal(t, "n", nameFlag.Shorthand)

	outputFlag := captureCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
	assert.Equal(t, ".", outputFlag.DefValue)

	mqttFlag := captureCmd.Flags().Lookup("mqtt")
	require.NotNil(t, mqttFlag)
	assert.Equal(t, "", mqttFlag.DefValue)
}

func TestPlotCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	plotCmd, _, err := cmd.Find([]string{"plot"})
	require.NoError(t, err)

	for name, def := range map[string]string{
		"dir":          ".",
		"invert":       "true",
		"field":        "raw",
		"align":        "true",
		"apply-offset": "true",
		"html":         "false",
		"out":          "",
		"from":         "",
		"to":           "",
		"offset":       "0s",
	} {
		flag := plotCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "flag --%s should exist", name)
		assert.Equal(t, def, flag.DefValue, "flag --%s default", name)
	}

	require.NotNil(t, plotCmd.Flags().Lookup("reference"))
	require.NotNil(t, plotCmd.Flags().Lookup("logs"))
}

func TestMissingConfigFileFails(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "ports"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
