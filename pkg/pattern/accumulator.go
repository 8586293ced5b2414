package pattern

import "time"

// accumulator is the working state of one object pattern fold: the
// descriptions of nodes already applied, the run stack, the recursion
// depth and the start time fixed for the whole invocation. Accumulators
// are created fresh per fold and never shared.
type accumulator struct {
	applied []string
	runs    []any
	depth   int
	start   time.Time
}

func (a *accumulator) push(v any) {
	a.runs = append(a.runs, v)
}

func (a *accumulator) pop() (any, bool) {
	if len(a.runs) == 0 {
		return nil, false
	}
	v := a.runs[len(a.runs)-1]
	a.runs = a.runs[:len(a.runs)-1]
	return v, true
}

// trail copies the applied-node history for inclusion in error values.
func (a *accumulator) trail() []string {
	if len(a.applied) == 0 {
		return nil
	}
	out := make([]string, len(a.applied))
	copy(out, a.applied)
	return out
}
