// Package transform implements per-channel title rewriting and filtering
// as a registry of named rules. Channel configuration lists rule names
// (optionally parameterized as "name:arg"); the names are bound to
// implementations when the channel pipeline starts, so an unknown rule is
// reported as a configuration error before any remote call is made.
package transform
