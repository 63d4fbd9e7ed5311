package zkvm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrMalformedValues indicates public value bytes that do not match the
// fixed (uint32,uint64,uint64) tuple ABI. It always signals version
// skew between the guest program and the host, never a soft condition.
var ErrMalformedValues = errors.New("malformed public values")

// PublicValues is the record the guest program commits to: the
// requested index and the two terms of the recurrence at that index.
type PublicValues struct {
	N uint32
	A uint64
	B uint64
}

// publicValuesLen is the ABI-encoded size: three 32-byte words.
const publicValuesLen = 96

var publicValuesArgs = abi.Arguments{
	{Name: "n", Type: mustNewType("uint32")},
	{Name: "a", Type: mustNewType("uint64")},
	{Name: "b", Type: mustNewType("uint64")},
}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// EncodePublicValues produces the canonical tuple encoding of v: each
// value right-aligned big-endian in a 32-byte word. This layout is the
// public contract between the guest program and any external verifier
// and must stay stable across engine versions.
func EncodePublicValues(v PublicValues) []byte {
	out, err := publicValuesArgs.Pack(v.N, v.A, v.B)
	if err != nil {
		// fixed-width value types cannot fail to pack
		panic(err)
	}
	return out
}

// DecodePublicValues is the exact inverse of EncodePublicValues. It
// rejects any byte string whose length or word contents fall outside
// the fixed schema.
func DecodePublicValues(data []byte) (PublicValues, error) {
	if len(data) != publicValuesLen {
		return PublicValues{}, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedValues, len(data), publicValuesLen)
	}
	vals, err := publicValuesArgs.Unpack(data)
	if err != nil {
		return PublicValues{}, fmt.Errorf("%w: %v", ErrMalformedValues, err)
	}
	n, ok := vals[0].(uint32)
	if !ok {
		return PublicValues{}, fmt.Errorf("%w: word 0 is not a uint32", ErrMalformedValues)
	}
	a, ok := vals[1].(uint64)
	if !ok {
		return PublicValues{}, fmt.Errorf("%w: word 1 is not a uint64", ErrMalformedValues)
	}
	b, ok := vals[2].(uint64)
	if !ok {
		return PublicValues{}, fmt.Errorf("%w: word 2 is not a uint64", ErrMalformedValues)
	}
	return PublicValues{N: n, A: a, B: b}, nil
}
