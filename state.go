package fancyregex

// State is the lifecycle state of a compiled pattern.
//
//	Uninitialized -> Compiling -> Live -> Disposed
//	                          \-> Failed
//
// Compile only returns patterns that reached Live; a pattern that Failed is
// reported as an error and never handed to the caller.
type State uint8

const (
	StateUninitialized State = iota
	StateCompiling
	StateLive
	StateFailed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCompiling:
		return "compiling"
	case StateLive:
		return "live"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}
