package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func testApp() *cli.App {
	return &cli.App{
		Name:     "zkrun",
		Commands: []*cli.Command{RunCommand, ExportVKCommand},
	}
}

func TestRunModeExclusivity(t *testing.T) {
	t.Run("BothModes", func(t *testing.T) {
		err := testApp().Run([]string{"zkrun", "run", "--execute", "--prove"})
		require.ErrorContains(t, err, "exactly one of --execute or --prove")
	})

	t.Run("NeitherMode", func(t *testing.T) {
		err := testApp().Run([]string{"zkrun", "run"})
		require.ErrorContains(t, err, "exactly one of --execute or --prove")
	})
}

func TestRunExecute(t *testing.T) {
	require.NoError(t, testApp().Run([]string{"zkrun", "run", "--execute", "--n", "5"}))
}

func TestRunExecuteDefaultN(t *testing.T) {
	// Default index is 20; the pipeline cross-checks (6765, 10946).
	require.NoError(t, testApp().Run([]string{"zkrun", "run", "--execute"}))
}

func TestRunMissingVKFile(t *testing.T) {
	err := testApp().Run([]string{"zkrun", "run", "--prove", "--vk", "does/not/exist.bin"})
	require.ErrorContains(t, err, "failed to read verification key")
}

func TestExportVKThenProve(t *testing.T) {
	// The key exported by one invocation must verify proofs generated
	// by a later one sharing the same data directory.
	data := t.TempDir()
	vkPath := filepath.Join(t.TempDir(), "vk.bin")

	require.NoError(t, testApp().Run(
		[]string{"zkrun", "export-vk", "--data", data, "--output", vkPath}))
	require.NoError(t, testApp().Run(
		[]string{"zkrun", "run", "--prove", "--n", "9", "--vk", vkPath, "--data", data}))
}
