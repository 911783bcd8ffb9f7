package compiler

import "fmt"

// labelAllocator hands out filter labels for one compilation run. Labels
// are never reused within a run; a fresh allocator is created per Compile
// call so nothing leaks across requests.
type labelAllocator struct {
	counts map[string]int
}

func newLabelAllocator() *labelAllocator {
	return &labelAllocator{counts: make(map[string]int)}
}

// next returns a unique bare label with the given prefix: b0, b1, ...
func (a *labelAllocator) next(prefix string) string {
	n := a.counts[prefix]
	a.counts[prefix] = n + 1
	return fmt.Sprintf("%s%d", prefix, n)
}
