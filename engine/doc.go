// Package engine implements the fancy-regex C ABI in process.
//
// An Engine behaves exactly like the native library behind the seven
// fancy_regex_* entry points: compiled patterns and returned strings are
// identified by opaque handles, failures are reported through null results
// and the -1 match code, and nothing panics across the boundary.
//
// # Matchers
//
// Patterns are classified before compilation:
//
//	plain  RE2 syntax only        -> github.com/coregx/coregex
//	fancy  backreferences,        -> github.com/auvred/regonaut
//	       lookahead, lookbehind,
//	       atomic groups
//
// Fancy patterns are rewritten into the ECMAScript dialect first:
// (?P<name>...) becomes (?<name>...), (?P=name) becomes \k<name>, \A and \z
// become lookarounds, and a leading (?ims) group becomes matcher flags.
//
// # Replacement
//
// ReplaceAll expands $N, ${N}, $name, ${name} and $$ in the replacement.
// Empty matches adjacent to the previous match are skipped.
//
// # Resources
//
// Handles come from generation-tagged tables (package resource), so a handle
// used after Free is rejected rather than resolving to a newer pattern.
// Stats reports what is still held, which tests use for leak checks.
package engine
