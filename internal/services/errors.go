package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify failures across the sync pipeline. The
// marker decides how the workflow reacts: ErrStateIO is fatal for the
// channel's run, ErrUnavailable blocks the item permanently, everything else
// is retried on the next run.
var (
	ErrStateIO       = errors.New("state io error")
	ErrExternalTool  = errors.New("external tool error")
	ErrUnavailable   = errors.New("content unavailable")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error must abort the remainder of a channel's
// pipeline (no playlist write, no cleanup) and set the run error flag.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStateIO) || errors.Is(err, ErrConfiguration)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
