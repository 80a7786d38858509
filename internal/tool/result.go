// Package tool holds the tool catalog and the dispatch pipeline shared by
// both transports: a registry of named handlers with JSON Schema input
// contracts, and a dispatcher that normalizes every outcome into a tagged
// Result.
package tool

// Failure kinds carried on a failed Result.
const (
	KindUnknownTool      = "unknown_tool"
	KindInvalidArguments = "invalid_arguments"
	KindHandlerError     = "handler_error"
)

// Failure describes why a dispatch did not produce a payload. Err carries
// the originating error when one exists, so callers can unwrap down to the
// provider's typed errors.
type Failure struct {
	Kind    string
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// Result is the single outcome type for a dispatch: either a payload or a
// failure, never both.
type Result struct {
	Payload any
	Failure *Failure
}

// Failed reports whether the result carries a failure.
func (r Result) Failed() bool { return r.Failure != nil }

// Succeed wraps a handler payload in a successful Result.
func Succeed(payload any) Result {
	return Result{Payload: payload}
}

// Fail builds a failed Result. err may be nil when there is no underlying
// cause to preserve.
func Fail(kind, message string, err error) Result {
	return Result{Failure: &Failure{Kind: kind, Message: message, Err: err}}
}
