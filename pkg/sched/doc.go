// Package sched runs the render loop: it turns signal invalidations into
// prioritized render passes, reconciles the resulting trees, and commits
// patch batches to a Renderer.
//
// One Loop owns one fiber tree and is its only writer. Work arrives from
// any goroutine through Schedule, Invalidate and Dispatch; the loop applies
// it single-threaded, either driven by Run in a goroutine of its own or
// stepped synchronously with FlushSync.
//
// A render pass proceeds in bounded units of one fiber each and checks its
// frame budget between units. When the budget runs out the pass parks as a
// continuation and the loop returns to its inbox, so input handled at a
// higher priority can preempt the parked pass. Commits are never split: once
// a pass finishes rendering, its whole patch batch is applied before the
// loop does anything else.
package sched
