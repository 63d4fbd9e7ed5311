package zkvm

import (
	"github.com/consensys/gnark/frontend"
	stdmimc "github.com/consensys/gnark/std/hash/mimc"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// MaxProvableIndex bounds the in-circuit recurrence. The proving
// backend rejects larger indices; plain execution has no bound.
const MaxProvableIndex = 64

// fibonacciCircuit proves that committed values (N, A, B) satisfy the
// recurrence: starting from the seed pair (0, 1), after N rounds the
// pair equals (A, B). The statement is [ProgramID, ValuesDigest]; the
// values themselves stay in the witness, bound to the statement through
// the MiMC commitment.
type fibonacciCircuit struct {
	ProgramID    frontend.Variable `gnark:",public"`
	ValuesDigest frontend.Variable `gnark:",public"`

	N frontend.Variable
	A frontend.Variable
	B frontend.Variable
}

func (c *fibonacciCircuit) Define(api frontend.API) error {
	// A content-addressed program never hashes to zero.
	api.AssertIsDifferent(c.ProgramID, 0)

	// Run the recurrence for the fixed bound, freezing the running pair
	// once the round counter passes N. Each round either hits N exactly
	// (hit=1) or not; requiring exactly one hit across rounds 0..bound
	// also forces N <= MaxProvableIndex.
	a := frontend.Variable(0)
	b := frontend.Variable(1)
	hit := api.IsZero(c.N)
	stopped := hit
	seen := hit
	for i := 1; i <= MaxProvableIndex; i++ {
		active := api.Sub(1, stopped)
		next := api.Add(a, b)
		a = api.Select(active, b, a)
		b = api.Select(active, next, b)
		hit = api.IsZero(api.Sub(c.N, i))
		stopped = api.Add(stopped, hit)
		seen = api.Add(seen, hit)
	}
	api.AssertIsEqual(seen, 1)
	api.AssertIsEqual(a, c.A)
	api.AssertIsEqual(b, c.B)

	h, err := stdmimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.N, c.A, c.B)
	api.AssertIsEqual(h.Sum(), c.ValuesDigest)
	return nil
}

// valuesDigest mirrors the in-circuit MiMC commitment: each value as a
// field element in its canonical 32-byte big-endian form.
func valuesDigest(v PublicValues) fr.Element {
	h := mimc.NewMiMC()
	var e fr.Element
	for _, x := range []uint64{uint64(v.N), v.A, v.B} {
		e.SetUint64(x)
		eb := e.Bytes()
		h.Write(eb[:])
	}
	var d fr.Element
	d.SetBytes(h.Sum(nil))
	return d
}
