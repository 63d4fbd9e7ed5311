package zkvm

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
)

// Verification failure kinds. A proof that is cryptographically valid
// but attests to a different statement than expected fails with
// ErrPublicInputMismatch; it is never conflated with success.
var (
	ErrMalformedProof      = errors.New("malformed proof")
	ErrMalformedKey        = errors.New("malformed verification key")
	ErrPairingCheck        = errors.New("pairing check failed")
	ErrPublicInputMismatch = errors.New("public input mismatch")
	ErrUnsupportedSystem   = errors.New("unsupported proof system")
)

// ExpectedInputs is the statement derived independently of the proof:
// the program identity and the commitment of the decoded public values.
// Verification never trusts the proof's self-reported inputs.
type ExpectedInputs struct {
	ProgramID    fr.Element
	ValuesDigest fr.Element
}

// ExpectedInputsFor derives the statement a valid proof for desc and
// values must attest to.
func ExpectedInputsFor(desc *Descriptor, values PublicValues) ExpectedInputs {
	return ExpectedInputs{
		ProgramID:    desc.ProgramIDScalar(),
		ValuesDigest: valuesDigest(values),
	}
}

// VerifyProof checks proof against the verification key material and
// the independently derived expected statement. vkBytes is untrusted:
// a corrupt blob surfaces as ErrMalformedKey, a wrong-version key as
// ErrPairingCheck, never as a crash.
func VerifyProof(proof *Proof, vkBytes []byte, expected ExpectedInputs) error {
	if proof == nil {
		return fmt.Errorf("%w: no proof", ErrMalformedProof)
	}
	switch proof.System {
	case Groth16:
		if proof.Groth16 == nil {
			return fmt.Errorf("%w: missing groth16 payload", ErrMalformedProof)
		}
		return verifyGroth16(proof.Groth16, vkBytes, expected)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedSystem, proof.System)
	}
}

func verifyGroth16(g *Groth16Proof, vkBytes []byte, expected ExpectedInputs) error {
	// Check the attested statement against the expected one before any
	// cryptographic work, so a mismatch is reported as such even when
	// the proof body would pass a pairing check on its own inputs.
	var attested [2]fr.Element
	for i, s := range g.PublicInputs {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return fmt.Errorf("%w: public input %d is not a decimal scalar", ErrMalformedProof, i)
		}
		if v.Sign() < 0 || v.Cmp(fr.Modulus()) >= 0 {
			return fmt.Errorf("%w: public input %d outside the scalar field", ErrMalformedProof, i)
		}
		attested[i].SetBigInt(v)
	}
	if !attested[0].Equal(&expected.ProgramID) {
		return fmt.Errorf("%w: program ID", ErrPublicInputMismatch)
	}
	if !attested[1].Equal(&expected.ValuesDigest) {
		return fmt.Errorf("%w: committed values digest", ErrPublicInputMismatch)
	}

	raw, err := hex.DecodeString(g.EncodedProof)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}
	gproof := groth16.NewProof(ecc.BN254)
	if _, err := gproof.ReadFrom(bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	// Build the public witness from the expected statement, not from
	// anything the proof carries.
	assignment := &fibonacciCircuit{
		ProgramID:    expected.ProgramID.BigInt(new(big.Int)),
		ValuesDigest: expected.ValuesDigest.BigInt(new(big.Int)),
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("%w: public witness: %v", ErrMalformedProof, err)
	}
	if err := groth16.Verify(gproof, vk, witness); err != nil {
		return fmt.Errorf("%w: %v", ErrPairingCheck, err)
	}
	return nil
}
