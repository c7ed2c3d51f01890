// Package errs defines the error kinds the export pipeline distinguishes.
// Per-item fetch failures degrade the item; rate limits halt the current
// batch; write failures abort the export.
package errs

import "fmt"

// PreconditionError reports an operation that requires detailed activity
// data being applied to a summary activity.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition violated: %s", e.Op, e.Reason)
}

// FetchError is an upstream API failure scoped to a single activity or
// segment. It is recovered locally: the item degrades to "no data".
type FetchError struct {
	Kind string // "activity", "streams", "segment", "detail"
	ID   int64
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %d: %v", e.Kind, e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RateLimitError signals an upstream 429. Remaining fetches in the
// current batch are abandoned; results collected so far are kept.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by upstream API: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// WriteError is an output stream failure. It is fatal to the export and
// propagates to the caller after the stream is closed.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("write output: %v", e.Err)
	}
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ConfigError reports an invalid user configuration entry. The offending
// entry is logged and ignored, falling back to defaults.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}
