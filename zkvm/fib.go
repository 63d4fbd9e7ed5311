package zkvm

// Fibonacci returns the pair (F(n), F(n+1)) of the two-term recurrence
// seeded F(0)=0, F(1)=1, with wrapping 64-bit arithmetic past F(93).
// It is the host-side reference the execute path cross-checks the
// guest's committed values against.
func Fibonacci(n uint32) (a, b uint64) {
	a, b = 0, 1
	for i := uint32(0); i < n; i++ {
		a, b = b, a+b
	}
	return a, b
}
