package zkvm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
)

// Mode selects which pipeline the orchestrator runs. Exactly one mode
// is valid per invocation; the CLI rejects ambiguous configurations
// before the pipeline starts.
type Mode string

const (
	ModeExecute Mode = "execute"
	ModeProve   Mode = "prove"
)

// State names the pipeline position. Failed and Cancelled are
// absorbing; every other state advances strictly downward.
type State string

const (
	StateIdle      State = "idle"
	StateStaged    State = "staged"
	StateExecuted  State = "executed"
	StateProved    State = "proved"
	StateDecoded   State = "decoded"
	StateVerified  State = "verified"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// ErrOutputMismatch: the guest's decoded values disagree with the
// host-side reference. Always a hard failure of the execute pipeline.
var ErrOutputMismatch = errors.New("guest output does not match reference")

// Config carries everything one pipeline invocation needs. Nothing is
// read from ambient process state, so multiple computations with
// different keys can coexist in one process.
type Config struct {
	Mode Mode
	N    uint32
	// VerifyingKey is raw key material for the prove path. Left empty,
	// the key derived during setup is used.
	VerifyingKey []byte
}

// Result reports where the pipeline ended and what it produced.
type Result struct {
	State  State
	Values PublicValues
	Cycles uint64
	Proof  *Proof
}

// Orchestrator sequences one guest computation through staging,
// execution or proving, decoding and verification. It owns no shared
// mutable state; concurrent Run calls are independent.
type Orchestrator struct {
	desc   *Descriptor
	engine Engine
	log    log.Logger
}

func NewOrchestrator(desc *Descriptor, engine Engine, l log.Logger) *Orchestrator {
	return &Orchestrator{desc: desc, engine: engine, log: l}
}

// Run drives the pipeline for cfg to a terminal state. On error the
// returned Result records whether the pipeline failed or was cancelled;
// the error keeps the originating failure kind intact.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (*Result, error) {
	res := &Result{State: StateIdle}
	if cfg.Mode != ModeExecute && cfg.Mode != ModeProve {
		return res, fmt.Errorf("invalid mode %q: must be %q or %q", cfg.Mode, ModeExecute, ModeProve)
	}

	fail := func(err error) (*Result, error) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			res.State = StateCancelled
		} else {
			res.State = StateFailed
		}
		return res, err
	}

	in := StageInput(cfg.N)
	res.State = StateStaged
	o.log.Info("staged guest input", "mode", cfg.Mode, "n", cfg.N,
		"program", o.desc.ProgramID(), "program_bytes", len(o.desc.Program()))

	switch cfg.Mode {
	case ModeExecute:
		report, err := o.engine.Execute(ctx, o.desc, in)
		if err != nil {
			return fail(fmt.Errorf("execute: %w", err))
		}
		res.State = StateExecuted
		res.Cycles = report.Cycles
		o.log.Info("guest executed", "cycles", report.Cycles)

		values, err := DecodePublicValues(report.PublicValues)
		if err != nil {
			return fail(fmt.Errorf("decode public values: %w", err))
		}
		res.State = StateDecoded
		res.Values = values

		wantA, wantB := Fibonacci(cfg.N)
		if values.N != cfg.N || values.A != wantA || values.B != wantB {
			return fail(fmt.Errorf("%w: got (n=%d a=%d b=%d), want (n=%d a=%d b=%d)",
				ErrOutputMismatch, values.N, values.A, values.B, cfg.N, wantA, wantB))
		}
		o.log.Info("guest output matches reference", "n", values.N, "a", values.A, "b", values.B)

	case ModeProve:
		art, err := o.engine.Setup(ctx, o.desc)
		if err != nil {
			return fail(fmt.Errorf("setup: %w", err))
		}
		report, proof, err := o.engine.Prove(ctx, art, in)
		if err != nil {
			return fail(fmt.Errorf("prove: %w", err))
		}
		res.State = StateProved
		res.Cycles = report.Cycles
		res.Proof = proof
		o.log.Info("proof generated", "cycles", report.Cycles)

		values, err := DecodePublicValues(report.PublicValues)
		if err != nil {
			return fail(fmt.Errorf("decode public values: %w", err))
		}
		res.State = StateDecoded
		res.Values = values

		vkBytes := cfg.VerifyingKey
		if len(vkBytes) == 0 {
			vkBytes, err = art.VerifyingKeyBytes()
			if err != nil {
				return fail(fmt.Errorf("%w: %v", ErrMalformedKey, err))
			}
		}
		if err := VerifyProof(proof, vkBytes, ExpectedInputsFor(o.desc, values)); err != nil {
			return fail(fmt.Errorf("verify: %w", err))
		}
		res.State = StateVerified
		o.log.Info("proof verified", "n", values.N, "a", values.A, "b", values.B)
	}

	res.State = StateDone
	return res, nil
}
