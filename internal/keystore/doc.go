// Package keystore persists the global id to last-known-local-path index
// used to detect renamed or moved files without re-downloading them.
//
// Entries are upsert-only; stale entries are harmless because the reconciler
// ignores any entry whose path no longer exists and recreates it on the next
// confirmation.
package keystore
