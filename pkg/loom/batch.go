package loom

// Batch runs fn with propagation deferred: writes inside fn apply to signal
// values in program order, but dependents are only marked dirty once fn
// returns, each distinct computation exactly once no matter how many of its
// sources changed. Batches nest; propagation happens when the outermost
// batch closes.
func (g *Graph) Batch(fn func()) {
	g.mu.Lock()
	g.batchDepth++
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.batchDepth--
		var pending []Computation
		if g.batchDepth == 0 {
			pending = g.pending
			g.pending = nil
		}
		g.mu.Unlock()
		if pending == nil {
			return
		}

		seen := make(map[uint64]struct{}, len(pending))
		for _, c := range pending {
			if _, dup := seen[c.ID()]; dup {
				continue
			}
			seen[c.ID()] = struct{}{}
			c.MarkDirty()
		}
		g.autoFlush()
	}()
	fn()
}
