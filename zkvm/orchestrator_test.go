package zkvm

import (
	"context"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

func discardLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

// stubEngine lets tests inject engine outcomes without running a
// backend.
type stubEngine struct {
	report  *ExecutionReport
	execErr error
}

func (s *stubEngine) Execute(ctx context.Context, desc *Descriptor, in *InputStream) (*ExecutionReport, error) {
	return s.report, s.execErr
}

func (s *stubEngine) Setup(ctx context.Context, desc *Descriptor) (*ProvingArtifacts, error) {
	return nil, fmt.Errorf("%w: stub cannot prove", ErrProofSystem)
}

func (s *stubEngine) Prove(ctx context.Context, art *ProvingArtifacts, in *InputStream) (*ExecutionReport, *Proof, error) {
	return nil, nil, fmt.Errorf("%w: stub cannot prove", ErrProofSystem)
}

func TestOrchestratorExecute(t *testing.T) {
	desc := FibonacciDescriptor()
	orch := NewOrchestrator(desc, NewLocalEngine(""), discardLogger())

	t.Run("N20", func(t *testing.T) {
		res, err := orch.Run(context.Background(), Config{Mode: ModeExecute, N: 20})
		require.NoError(t, err)
		require.Equal(t, StateDone, res.State)
		require.Equal(t, PublicValues{N: 20, A: 6765, B: 10946}, res.Values)
		require.NotZero(t, res.Cycles)
		require.Nil(t, res.Proof)
	})

	t.Run("BaseCase", func(t *testing.T) {
		res, err := orch.Run(context.Background(), Config{Mode: ModeExecute, N: 0})
		require.NoError(t, err)
		require.Equal(t, StateDone, res.State)
		require.Equal(t, PublicValues{N: 0, A: 0, B: 1}, res.Values)
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := orch.Run(ctx, Config{Mode: ModeExecute, N: 20})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, StateCancelled, res.State)
	})
}

func TestOrchestratorInvalidMode(t *testing.T) {
	orch := NewOrchestrator(FibonacciDescriptor(), &stubEngine{}, discardLogger())
	for _, mode := range []Mode{"", "both", "verify"} {
		res, err := orch.Run(context.Background(), Config{Mode: mode, N: 20})
		require.ErrorContains(t, err, "invalid mode")
		require.Equal(t, StateIdle, res.State, "mode %q must not enter the pipeline", mode)
	}
}

func TestOrchestratorFailurePropagation(t *testing.T) {
	desc := FibonacciDescriptor()

	t.Run("GuestTrap", func(t *testing.T) {
		engine := &stubEngine{execErr: fmt.Errorf("%w: illegal instruction", ErrGuestTrap)}
		res, err := NewOrchestrator(desc, engine, discardLogger()).
			Run(context.Background(), Config{Mode: ModeExecute, N: 20})
		require.ErrorIs(t, err, ErrGuestTrap)
		require.Equal(t, StateFailed, res.State)
	})

	t.Run("MalformedValues", func(t *testing.T) {
		engine := &stubEngine{report: &ExecutionReport{PublicValues: []byte{1, 2, 3}, Cycles: 1}}
		res, err := NewOrchestrator(desc, engine, discardLogger()).
			Run(context.Background(), Config{Mode: ModeExecute, N: 20})
		require.ErrorIs(t, err, ErrMalformedValues)
		require.Equal(t, StateFailed, res.State)
	})

	t.Run("OutputMismatch", func(t *testing.T) {
		// Well-formed values that disagree with the reference.
		engine := &stubEngine{report: &ExecutionReport{
			PublicValues: EncodePublicValues(PublicValues{N: 20, A: 1, B: 2}),
			Cycles:       1,
		}}
		res, err := NewOrchestrator(desc, engine, discardLogger()).
			Run(context.Background(), Config{Mode: ModeExecute, N: 20})
		require.ErrorIs(t, err, ErrOutputMismatch)
		require.Equal(t, StateFailed, res.State)
	})

	t.Run("ProvingFailure", func(t *testing.T) {
		res, err := NewOrchestrator(desc, &stubEngine{}, discardLogger()).
			Run(context.Background(), Config{Mode: ModeProve, N: 20})
		require.ErrorIs(t, err, ErrProofSystem)
		require.Equal(t, StateFailed, res.State)
	})
}

func TestOrchestratorProve(t *testing.T) {
	fx := proveFixture(t)
	orch := NewOrchestrator(fx.desc, fx.engine, discardLogger())

	t.Run("DerivedKey", func(t *testing.T) {
		res, err := orch.Run(context.Background(), Config{Mode: ModeProve, N: 20})
		require.NoError(t, err)
		require.Equal(t, StateDone, res.State)
		require.Equal(t, PublicValues{N: 20, A: 6765, B: 10946}, res.Values)
		require.NotNil(t, res.Proof)
		require.Equal(t, Groth16, res.Proof.System)
	})

	t.Run("ExternalKey", func(t *testing.T) {
		res, err := orch.Run(context.Background(), Config{Mode: ModeProve, N: 20, VerifyingKey: fx.vk})
		require.NoError(t, err)
		require.Equal(t, StateDone, res.State)
	})

	t.Run("CorruptExternalKey", func(t *testing.T) {
		res, err := orch.Run(context.Background(), Config{Mode: ModeProve, N: 20, VerifyingKey: []byte("junk")})
		require.ErrorIs(t, err, ErrMalformedKey)
		require.Equal(t, StateFailed, res.State)
	})

	t.Run("IndexBeyondBound", func(t *testing.T) {
		res, err := orch.Run(context.Background(), Config{Mode: ModeProve, N: MaxProvableIndex + 1})
		require.ErrorIs(t, err, ErrInvalidInput)
		require.Equal(t, StateFailed, res.State)
	})
}
