package testutil

import "sync"

// FixedRandom is a deterministic service.RandomSource.
// Intn cycles through Choices (modulo n); Read emits an incrementing byte sequence.
type FixedRandom struct {
	mu      sync.Mutex
	Choices []int
	calls   int
	next    byte
}

func (r *FixedRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Choices) == 0 {
		return 0
	}
	choice := r.Choices[r.calls%len(r.Choices)] % n
	r.calls++
	return choice
}

func (r *FixedRandom) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range p {
		p[i] = r.next
		r.next++
	}
	return len(p), nil
}
