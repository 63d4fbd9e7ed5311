package zkvm

import (
	"crypto/sha256"
	_ "embed"
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
)

// The compiled guest program for the RISC-V zkVM. The driver never
// inspects its contents; it only derives a content address from it.
//
//go:embed guest/fibonacci-guest.bin
var fibonacciGuest []byte

// Descriptor is an immutable handle to a compiled guest program.
// The program ID pairs proving and verification key material: a proof
// generated for one program version must never verify under key
// material derived from another.
type Descriptor struct {
	program   []byte
	programID common.Hash
}

// NewDescriptor content-addresses the given guest binary.
func NewDescriptor(program []byte) (*Descriptor, error) {
	if len(program) == 0 {
		return nil, errors.New("empty guest program")
	}
	cp := make([]byte, len(program))
	copy(cp, program)
	return &Descriptor{program: cp, programID: common.Hash(sha256.Sum256(cp))}, nil
}

// FibonacciDescriptor returns the descriptor of the embedded guest program.
func FibonacciDescriptor() *Descriptor {
	desc, err := NewDescriptor(fibonacciGuest)
	if err != nil {
		panic("embedded guest program is empty: " + err.Error())
	}
	return desc
}

func (d *Descriptor) Program() []byte {
	return d.program
}

func (d *Descriptor) ProgramID() common.Hash {
	return d.programID
}

// ProgramIDScalar reduces the program ID into the BN254 scalar field,
// the form the proof system commits to as its first public input.
func (d *Descriptor) ProgramIDScalar() fr.Element {
	var e fr.Element
	e.SetBigInt(new(big.Int).SetBytes(d.programID[:]))
	return e
}
