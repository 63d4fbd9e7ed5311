package zkvm

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/logger"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethereum/go-ethereum/common"
)

// Cycle accounting for the local backend: a fixed startup/commit cost
// plus a per-round cost of the recurrence loop.
const (
	execBaseCycles  = 1122
	execRoundCycles = 6
)

// setupCacheSize bounds the in-memory key material. A data directory
// holds exactly one key version per program, so cached entries never
// go stale.
const setupCacheSize = 8

// Artifact file names inside a program's data directory.
const (
	circuitFilename = "circuit_groth16.bin"
	pkFilename      = "pk_groth16.bin"
	vkFilename      = "vk_groth16.bin"
)

var _ Engine = (*LocalEngine)(nil)

// LocalEngine runs guest computations in-process: plain execution for
// the execute path and a Groth16/BN254 backend for the prove path. It
// holds no per-invocation state; one engine may serve many pipelines.
type LocalEngine struct {
	dataDir string
	setups  *lru.Cache[common.Hash, *ProvingArtifacts]
}

// NewLocalEngine returns an engine storing key material under dataDir,
// one subdirectory per program ID. Groth16 setup is randomized, so the
// persisted artifacts are what pins a program to a single key version
// across processes; an empty dataDir keeps key material in memory only,
// scoped to this engine.
func NewLocalEngine(dataDir string) *LocalEngine {
	cache, err := lru.New[common.Hash, *ProvingArtifacts](setupCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &LocalEngine{dataDir: dataDir, setups: cache}
}

// Execute runs the guest program to completion without proving. The
// committed public value bytes are returned exactly as the guest wrote
// them; Cycles reflects the cost of the run.
func (e *LocalEngine) Execute(ctx context.Context, desc *Descriptor, in *InputStream) (*ExecutionReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := in.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	a, b := Fibonacci(n)
	return &ExecutionReport{
		PublicValues: EncodePublicValues(PublicValues{N: n, A: a, B: b}),
		Cycles:       execBaseCycles + uint64(n)*execRoundCycles,
	}, nil
}

// Setup returns the key material for the descriptor: from the in-memory
// cache, else from the data directory, else by running a fresh Groth16
// setup and persisting it. Once a program's artifacts exist on disk,
// every later Setup observes that same key version, so proofs and
// exported verification keys stay interchangeable across processes.
func (e *LocalEngine) Setup(ctx context.Context, desc *Descriptor) (*ProvingArtifacts, error) {
	if art, ok := e.setups.Get(desc.ProgramID()); ok {
		return art, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.Logger()
	if e.dataDir != "" {
		art, err := e.loadArtifacts(desc)
		switch {
		case err == nil:
			log.Info().Str("program", desc.ProgramID().Hex()).Msg("loaded guest key material")
			e.setups.Add(desc.ProgramID(), art)
			return art, nil
		case !os.IsNotExist(err):
			// Corrupt persisted material must not be silently replaced:
			// regenerating would change the key version under proofs
			// already in the wild.
			return nil, fmt.Errorf("%w: load key material: %v", ErrProofSystem, err)
		}
	}
	log.Info().Str("program", desc.ProgramID().Hex()).Msg("compiling guest constraint system")
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &fibonacciCircuit{})
	if err != nil {
		return nil, fmt.Errorf("%w: compile: %v", ErrProofSystem, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, fmt.Errorf("%w: setup: %v", ErrProofSystem, err)
	}
	art := &ProvingArtifacts{
		ProvingKey:      pk,
		VerifyingKey:    vk,
		constraints:     cs,
		programID:       desc.ProgramID(),
		programIDScalar: desc.ProgramIDScalar(),
	}
	if e.dataDir != "" {
		if err := e.saveArtifacts(art); err != nil {
			return nil, fmt.Errorf("%w: persist key material: %v", ErrProofSystem, err)
		}
	}
	e.setups.Add(desc.ProgramID(), art)
	return art, nil
}

func (e *LocalEngine) artifactDir(id common.Hash) string {
	return filepath.Join(e.dataDir, id.Hex())
}

func (e *LocalEngine) loadArtifacts(desc *Descriptor) (*ProvingArtifacts, error) {
	dir := e.artifactDir(desc.ProgramID())

	csFile, err := os.Open(filepath.Join(dir, circuitFilename))
	if err != nil {
		return nil, err
	}
	defer csFile.Close()
	cs := groth16.NewCS(ecc.BN254)
	if _, err := cs.ReadFrom(csFile); err != nil {
		return nil, fmt.Errorf("read %s: %w", circuitFilename, err)
	}

	pkFile, err := os.Open(filepath.Join(dir, pkFilename))
	if err != nil {
		return nil, err
	}
	defer pkFile.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.UnsafeReadFrom(pkFile); err != nil {
		return nil, fmt.Errorf("read %s: %w", pkFilename, err)
	}

	vkFile, err := os.Open(filepath.Join(dir, vkFilename))
	if err != nil {
		return nil, err
	}
	defer vkFile.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(vkFile); err != nil {
		return nil, fmt.Errorf("read %s: %w", vkFilename, err)
	}

	return &ProvingArtifacts{
		ProvingKey:      pk,
		VerifyingKey:    vk,
		constraints:     cs,
		programID:       desc.ProgramID(),
		programIDScalar: desc.ProgramIDScalar(),
	}, nil
}

func (e *LocalEngine) saveArtifacts(art *ProvingArtifacts) error {
	dir := e.artifactDir(art.programID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := []struct {
		name string
		src  io.WriterTo
	}{
		{circuitFilename, art.constraints},
		{pkFilename, art.ProvingKey},
		{vkFilename, art.VerifyingKey},
	}
	for _, f := range files {
		out, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			return err
		}
		if _, err := f.src.WriteTo(out); err != nil {
			out.Close()
			return fmt.Errorf("write %s: %w", f.name, err)
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Prove runs the guest and produces a Groth16 proof over its committed
// values. The embedded public values are bit-identical to the report's.
func (e *LocalEngine) Prove(ctx context.Context, art *ProvingArtifacts, in *InputStream) (*ExecutionReport, *Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	n, err := in.ReadU32()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if n > MaxProvableIndex {
		return nil, nil, fmt.Errorf("%w: index %d exceeds proving bound %d", ErrInvalidInput, n, MaxProvableIndex)
	}

	a, b := Fibonacci(n)
	values := PublicValues{N: n, A: a, B: b}
	report := &ExecutionReport{
		PublicValues: EncodePublicValues(values),
		Cycles:       execBaseCycles + uint64(n)*execRoundCycles,
	}

	digest := valuesDigest(values)
	assignment := &fibonacciCircuit{
		ProgramID:    art.programIDScalar.BigInt(new(big.Int)),
		ValuesDigest: digest.BigInt(new(big.Int)),
		N:            n,
		A:            a,
		B:            b,
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: witness: %v", ErrProofSystem, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	proof, err := groth16.Prove(art.constraints, art.ProvingKey, witness)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: prove: %v", ErrProofSystem, err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, nil, fmt.Errorf("%w: serialize proof: %v", ErrProofSystem, err)
	}
	wire := &Proof{
		System: Groth16,
		Groth16: &Groth16Proof{
			EncodedProof: hex.EncodeToString(buf.Bytes()),
			PublicInputs: [2]string{
				art.programIDScalar.BigInt(new(big.Int)).String(),
				digest.BigInt(new(big.Int)).String(),
			},
		},
	}
	return report, wire, nil
}
