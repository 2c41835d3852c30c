// Package workflow orchestrates the per-channel sync pipeline: catalog
// fetch, pre-rules, reconciliation, downloads, post-rules, playlist write,
// and cleanup sweep, in that order. Channels run sequentially under a
// single exclusive file lock; the state store is persisted after
// reconciliation and again after every download so an interrupted run can
// resume from the last completed item.
package workflow
