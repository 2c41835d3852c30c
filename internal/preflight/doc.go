// Package preflight provides readiness checks for the filesystem paths and
// external binaries a sync run depends on.
//
// These checks run in two contexts:
//   - The sync command calls RunAll before touching any channel. If a check
//     fails, the run aborts before any state is mutated.
//   - The CLI "chansync status" command renders the individual results to
//     show environment health.
package preflight
