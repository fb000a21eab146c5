// Package errors provides structured error types for the fancy-regex module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the pattern source, the offending argument, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMatch, errors.KindMatchEngine).
//		Pattern(`(\w+)\s+\1`).
//		Detail("engine reported an error during matching").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidPattern(`(?P<unclosed`, diag)
//	err := errors.InvalidUTF8(errors.PhaseMarshal, "text", data)
//
// Sentinels such as ErrInvalidPattern match any error of the same kind:
//
//	if errors.Is(err, errors.ErrUseAfterFree) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
