package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/prooflab/zkrun/zkvm"
)

var (
	RunExecuteFlag = &cli.BoolFlag{
		Name:    "execute",
		Usage:   "Run the guest program and cross-check its committed outputs, without proving",
		EnvVars: []string{"ZKRUN_EXECUTE"},
	}
	RunProveFlag = &cli.BoolFlag{
		Name:    "prove",
		Usage:   "Generate a Groth16 proof of the guest run and verify it",
		EnvVars: []string{"ZKRUN_PROVE"},
	}
	RunNFlag = &cli.UintFlag{
		Name:    "n",
		Usage:   "Index the guest program computes the recurrence at",
		Value:   20,
		EnvVars: []string{"ZKRUN_N"},
	}
	RunVKFlag = &cli.PathFlag{
		Name:    "vk",
		Usage:   "Path to Groth16 verification key material. Defaults to the key derived during setup",
		EnvVars: []string{"ZKRUN_VK"},
	}
	DataDirFlag = &cli.PathFlag{
		Name:    "data",
		Usage:   "Directory holding the Groth16 circuit and key material, derived on first use",
		Value:   defaultDataDir(),
		EnvVars: []string{"ZKRUN_DATA"},
	}
	RunProofOutFlag = &cli.PathFlag{
		Name:  "proof-out",
		Usage: "Write the proof wire document (JSON) to this path",
	}
	RunPProfCPU = &cli.BoolFlag{
		Name:  "pprof.cpu",
		Usage: "Profile CPU usage of the run",
	}
)

var OutFilePerm = os.FileMode(0o644)

// defaultDataDir keeps key material stable across invocations, so a key
// exported by one run verifies proofs generated by later ones.
func defaultDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "zkrun")
}

func Run(ctx *cli.Context) error {
	if ctx.Bool(RunPProfCPU.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	execute := ctx.Bool(RunExecuteFlag.Name)
	prove := ctx.Bool(RunProveFlag.Name)
	if execute == prove {
		return errors.New("you must specify exactly one of --execute or --prove")
	}
	mode := zkvm.ModeExecute
	if prove {
		mode = zkvm.ModeProve
	}
	n := ctx.Uint(RunNFlag.Name)
	if n > math.MaxUint32 {
		return fmt.Errorf("n %d does not fit the guest's u32 input", n)
	}

	var vkBytes []byte
	if path := ctx.Path(RunVKFlag.Name); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read verification key %q: %w", path, err)
		}
		vkBytes = b
	}

	l := Logger(os.Stderr, log.LevelInfo)
	engine := zkvm.NewLocalEngine(ctx.Path(DataDirFlag.Name))
	orch := zkvm.NewOrchestrator(zkvm.FibonacciDescriptor(), engine, l)
	res, err := orch.Run(ctx.Context, zkvm.Config{
		Mode:         mode,
		N:            uint32(n),
		VerifyingKey: vkBytes,
	})
	if err != nil {
		return fmt.Errorf("pipeline %s: %w", res.State, err)
	}
	l.Info("pipeline done", "state", res.State,
		"n", res.Values.N, "a", res.Values.A, "b", res.Values.B, "cycles", res.Cycles)

	if out := ctx.Path(RunProofOutFlag.Name); out != "" && res.Proof != nil {
		if err := writeJSON(out, res.Proof); err != nil {
			return fmt.Errorf("failed to write proof output: %w", err)
		}
		l.Info("proof written", "path", out)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), OutFilePerm)
}

var RunCommand = &cli.Command{
	Name:        "run",
	Usage:       "Execute the guest program, or generate and verify a Groth16 proof of it.",
	Description: "Execute the guest program and cross-check its outputs, or generate a Groth16 proof of the run and verify it against the verification key.",
	Action:      Run,
	Flags: []cli.Flag{
		RunExecuteFlag,
		RunProveFlag,
		RunNFlag,
		RunVKFlag,
		DataDirFlag,
		RunProofOutFlag,
		RunPProfCPU,
	},
}
