package orchestrator

import "iter"

// DefaultChunkSize is the streaming chunk size in runes.
const DefaultChunkSize = 100

// Chunks splits s into pieces of at most size runes. Concatenating the
// pieces reproduces s exactly; an empty s yields nothing.
func Chunks(s string, size int) iter.Seq[string] {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return func(yield func(string) bool) {
		n, start := 0, 0
		for i := range s {
			if n == size {
				if !yield(s[start:i]) {
					return
				}
				n, start = 0, i
			}
			n++
		}
		if start < len(s) {
			yield(s[start:])
		}
	}
}
