// Package reconcile implements the core catalog-versus-filesystem pass.
//
// For each catalog item, in catalog order, the reconciler decides whether
// the corresponding file already exists at its expected path, exists under
// an older name or location (rename detection via the key store and a
// legacy-convention scan), stays blocked from a previous permanent failure,
// or must be queued for download. The pass is idempotent: with an unchanged
// catalog and filesystem, running it twice produces identical sets.
package reconcile
