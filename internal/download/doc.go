// Package download drains a channel's queue through the external download
// executor and applies the tri-state bookkeeping rule: success saves,
// permanent rejection blocks, transient failure defers to the next run. The
// state store is persisted after every single result as the crash-recovery
// checkpoint.
package download
