// Package catalog defines the shared vocabulary of the sync pipeline: remote
// catalog items, per-run video records, the file naming scheme, and the
// collaborator interfaces (metadata provider, download executor) the core
// consumes.
package catalog
