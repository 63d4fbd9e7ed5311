package zkvm

// ProofSystem enumerates the supported proof system variants. The set
// is closed: adding a system means adding a variant here and a matching
// arm in VerifyProof, not an open-ended dispatch.
type ProofSystem string

const (
	// Groth16 over BN254, the only system produced today.
	Groth16 ProofSystem = "groth16"
)

// Groth16Proof is the wire form exchanged with external verifiers: the
// gnark-serialized proof hex-encoded, plus the two BN254 scalar public
// inputs as decimal strings, in the order [programID, valuesDigest].
type Groth16Proof struct {
	EncodedProof string    `json:"encoded_proof"`
	PublicInputs [2]string `json:"public_inputs"`
}

// Proof is a tagged union over proof systems. Exactly the variant named
// by System is populated.
type Proof struct {
	System  ProofSystem   `json:"system"`
	Groth16 *Groth16Proof `json:"groth16,omitempty"`
}
