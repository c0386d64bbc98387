// Package vtree defines the virtual tree the runtime renders into, and the
// reconciler that turns two trees into an ordered patch list.
//
// A VNode is one of four kinds: Element, Text, Component, Fragment. Trees
// are produced fresh on every render pass and are never mutated after
// construction, except for node-id adoption during reconciliation. Diff
// compares a committed tree with a freshly rendered one and emits the
// minimal structural edits: Insert, Remove, Replace, UpdateProps, Move.
//
// Keyed children reconcile by identity: a surviving key keeps its node id
// (and, one level up, its component instance and reactive state) across
// arbitrary reordering. Unkeyed children fall back to positional matching,
// which is cheaper but unstable under insertion and removal; dynamic lists
// should carry keys.
package vtree
