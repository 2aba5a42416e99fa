package agent

import "fmt"

// Tool-use safety ceilings for a single generation call. Five distinct
// lookups is already a confused model; two identical calls means it is
// retrying something that failed.
const (
	MaxToolCalls     = 5
	MaxRepeatedCalls = 2
)

// LoopError reports that a generation call tripped a tool-use ceiling.
type LoopError struct {
	Key      string // tool signature for repeat trips, "" for the total ceiling
	Total    int
	Repeated int
}

func (e *LoopError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("repetitive tool call detected: %s (%d times)", e.Key, e.Repeated)
	}
	return fmt.Sprintf("too many tool calls in one generation (%d)", e.Total)
}

// LoopGuard counts tool invocations within one generation call. A fresh
// guard is created per call, so no state leaks between generations.
// It is used from the single goroutine driving the call loop.
type LoopGuard struct {
	maxTotal  int
	maxRepeat int

	total  int
	perSig map[string]int
}

// NewLoopGuard creates a guard with the given ceilings. Non-positive
// values fall back to the package defaults.
func NewLoopGuard(maxTotal, maxRepeat int) *LoopGuard {
	if maxTotal <= 0 {
		maxTotal = MaxToolCalls
	}
	if maxRepeat <= 0 {
		maxRepeat = MaxRepeatedCalls
	}
	return &LoopGuard{
		maxTotal:  maxTotal,
		maxRepeat: maxRepeat,
		perSig:    make(map[string]int),
	}
}

// Check records one tool invocation and returns a *LoopError if either
// ceiling is now exceeded. The signature key is the tool name plus the
// literal serialized arguments, so "same call, same args" is what
// counts as a repeat.
func (g *LoopGuard) Check(name, args string) error {
	g.total++
	if g.total > g.maxTotal {
		return &LoopError{Total: g.total}
	}

	key := name + ":" + args
	g.perSig[key]++
	if g.perSig[key] > g.maxRepeat {
		return &LoopError{Key: key, Repeated: g.perSig[key]}
	}
	return nil
}

// Total returns the number of tool invocations recorded so far.
func (g *LoopGuard) Total() int { return g.total }
