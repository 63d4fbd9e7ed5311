package zkvm

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
)

// Engine failure kinds. Every engine error wraps exactly one of these
// so callers can tell bad input from guest faults from backend faults.
var (
	// ErrGuestTrap: the guest program faulted mid-execution.
	ErrGuestTrap = errors.New("guest program trapped")
	// ErrInvalidInput: the guest rejected the staged input.
	ErrInvalidInput = errors.New("guest rejected input")
	// ErrResourceExhausted: the host ran out of resources for the run.
	ErrResourceExhausted = errors.New("host resources exhausted")
	// ErrProofSystem: the proving backend failed internally.
	ErrProofSystem = errors.New("proof system failure")
)

// ExecutionReport carries the guest's committed public value bytes,
// exactly as the guest wrote them, and the cycle count consumed
// producing them.
type ExecutionReport struct {
	PublicValues []byte
	Cycles       uint64
}

// ProvingArtifacts bundles the key material bound to one program
// version. Setup derives it once and persists it, so artifacts may be
// cached and shared; the bundle itself is immutable after Setup
// returns.
type ProvingArtifacts struct {
	ProvingKey   groth16.ProvingKey
	VerifyingKey groth16.VerifyingKey

	constraints     constraint.ConstraintSystem
	programID       common.Hash
	programIDScalar fr.Element
}

// ProgramID names the program the keys were derived for.
func (a *ProvingArtifacts) ProgramID() common.Hash {
	return a.programID
}

// VerifyingKeyBytes serializes the verification key for distribution
// to external verifiers.
func (a *ProvingArtifacts) VerifyingKeyBytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := a.VerifyingKey.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize verification key: %w", err)
	}
	return buf.Bytes(), nil
}

// Engine is the capability boundary to a zkVM backend. Execute and
// Prove are synchronous and may run for a long time; implementations
// must honor ctx cancellation between phases. Prove must embed public
// values bit-identical to the ones an Execute of the same input would
// report.
type Engine interface {
	Execute(ctx context.Context, desc *Descriptor, in *InputStream) (*ExecutionReport, error)
	Setup(ctx context.Context, desc *Descriptor) (*ProvingArtifacts, error)
	Prove(ctx context.Context, art *ProvingArtifacts, in *InputStream) (*ExecutionReport, *Proof, error)
}
