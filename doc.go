// Package vortex is a minimal graph-based pipeline executor. Stateful
// processing steps (nodes) are composed into directed, action-labeled flows:
// each node runs a prelude/dispatch/postlude lifecycle against a shared
// mutable context, returns an action label, and the flow follows the edge
// registered for that label until none matches.
//
// Nodes carry a per-name singleton identity, a retry schedule around their
// dispatch hook, and a configuration overlay merged from the shared context.
// ParallelStep fans a set of stages out over goroutines and joins them into
// a single action.
package vortex
