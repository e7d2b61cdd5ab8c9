package bptree

import (
	"fmt"
	"io"
)

// Print writes a structural dump (counts plus level-order key vectors) to
// the injected sink, mirroring sirgallo-mari's PrintChildren debug helper
// but parameterized on an io.Writer instead of calling fmt.Println
// directly, so tests can capture it.
func (t *Tree) Print(w io.Writer) error {
	stats := t.Stats()
	if _, err := fmt.Fprintf(w, "nodes=%d splits=%d merges=%d\n", stats.TotalNodes, stats.TotalSplits, stats.TotalMerges); err != nil {
		return err
	}

	for _, lvl := range t.LevelOrder() {
		if _, err := fmt.Fprintf(w, "level %d: %v\n", lvl.Level, lvl.Keys); err != nil {
			return err
		}
	}

	return nil
}
