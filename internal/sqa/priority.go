package sqa

// PriorityCounter assigns monotonically increasing job priorities within one
// reconciliation pass, so concurrently submitted jobs are scheduled in a
// stable, non-starving order instead of all at equal priority.
//
// The counter is plain in-process state: the pass is single-threaded by
// design. If parallel submission is ever introduced, the increment must
// become atomic.
type PriorityCounter struct {
	next int
}

// NewPriorityCounter returns a counter starting at base.
func NewPriorityCounter(base int) *PriorityCounter {
	return &PriorityCounter{next: base}
}

// Next returns the current priority and advances the counter.
func (p *PriorityCounter) Next() int {
	n := p.next
	p.next++
	return n
}
