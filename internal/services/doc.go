// Package services holds the cross-cutting error taxonomy and context helpers
// shared by the sync pipeline and the external tool wrappers beneath it.
//
// Errors are classified with sentinel markers rather than concrete types so
// the workflow can decide between fatal, sticky, and retryable outcomes with
// errors.Is alone.
package services
