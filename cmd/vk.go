package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/prooflab/zkrun/zkvm"
)

var VKOutputFlag = &cli.PathFlag{
	Name:     "output",
	Aliases:  []string{"o"},
	Usage:    "Path to write the serialized verification key to",
	Required: true,
	EnvVars:  []string{"ZKRUN_VK_OUTPUT"},
}

// ExportVK derives or loads the verification key for the embedded
// guest program and writes it out, so external verifiers can check
// proofs without running setup themselves. The program ID is written
// to stdout.
func ExportVK(ctx *cli.Context) error {
	l := Logger(os.Stderr, log.LevelInfo)
	desc := zkvm.FibonacciDescriptor()
	engine := zkvm.NewLocalEngine(ctx.Path(DataDirFlag.Name))
	art, err := engine.Setup(ctx.Context, desc)
	if err != nil {
		return fmt.Errorf("failed to derive key material: %w", err)
	}
	vkBytes, err := art.VerifyingKeyBytes()
	if err != nil {
		return err
	}
	output := ctx.Path(VKOutputFlag.Name)
	if err := os.WriteFile(output, vkBytes, OutFilePerm); err != nil {
		return fmt.Errorf("failed to write verification key %q: %w", output, err)
	}
	l.Info("verification key written", "path", output, "bytes", len(vkBytes))
	fmt.Println(desc.ProgramID().Hex())
	return nil
}

var ExportVKCommand = &cli.Command{
	Name:        "export-vk",
	Usage:       "Derive and export the guest program's Groth16 verification key",
	Description: "Derive and export the guest program's Groth16 verification key. The program ID is written to stdout",
	Action:      ExportVK,
	Flags: []cli.Flag{
		VKOutputFlag,
		DataDirFlag,
	},
}
