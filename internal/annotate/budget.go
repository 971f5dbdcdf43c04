package annotate

import "sync"

// Budget caps the number of annotations inserted across a whole run. It is
// caller-owned and passed into every engine, never global; the zero-value
// nil budget means unlimited. Push/Pop give scoped overrides for callers
// that temporarily narrow the limit.
//
// The counter is mutex-guarded so a shared budget survives parallel file
// workers, but sharing one budget across workers makes which files receive
// the final annotations nondeterministic; partition per worker when that
// matters.
type Budget struct {
	mu        sync.Mutex
	remaining int
	stack     []int
}

// NewBudget returns a budget of n annotations. n < 0 panics; use a nil
// *Budget for "no limit".
func NewBudget(n int) *Budget {
	if n < 0 {
		panic("annotate: negative budget")
	}
	return &Budget{remaining: n}
}

// Exhausted reports whether no annotations remain.
func (b *Budget) Exhausted() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining <= 0
}

// Spend consumes one annotation. Call only after a successful insertion.
func (b *Budget) Spend() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining > 0 {
		b.remaining--
	}
}

// Push replaces the remaining count, saving the old value.
func (b *Budget) Push(n int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stack = append(b.stack, b.remaining)
	b.remaining = n
}

// Pop restores the count saved by the matching Push.
func (b *Budget) Pop() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.stack); n > 0 {
		b.remaining = b.stack[n-1]
		b.stack = b.stack[:n-1]
	}
}
