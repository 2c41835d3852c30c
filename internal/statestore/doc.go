// Package statestore persists each channel's queued, saved, and blocked id
// sets as plain line-oriented text files.
//
// Save enforces the set-cleanup precedence (blocked beats saved beats
// queued) and rewrites every list atomically, so a process kill at any point
// leaves the previous valid version intact. The store also keeps the cached
// catalog response and an append-only call log per channel; neither is part
// of the core invariants.
package statestore
