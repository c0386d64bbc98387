// Package loom implements the reactive dependency graph at the heart of the
// runtime: signals, memos, effects, ownership scopes, and batched propagation.
//
// All state lives in an explicit Graph arena. There are no package-level
// tables; independent Graph instances never interact, which keeps embedding
// hosts and tests isolated.
//
// Reads inside a tracked evaluation register dependency edges automatically:
//
//	g := loom.New()
//	count := loom.NewSignal(g, 0)
//	double := loom.NewMemo(g, func() int { return count.Get() * 2 })
//	loom.NewEffect(g, func() loom.Cleanup {
//		fmt.Println(double.Get())
//		return nil
//	})
//	count.Set(21) // effect re-runs with 42
//
// Writes are allowed from any goroutine. Tracked evaluation (memo recompute,
// effect runs, component renders) happens on a single worker goroutine; the
// scheduler package provides that worker.
package loom
