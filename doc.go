// Package fancyregex provides regular expressions with backreferences and
// lookaround on top of an engine reached through a handle-based boundary.
//
// The engine lives behind seven entry points (see package ffi). This package
// owns the Go side of that boundary: it marshals text, keeps each compiled
// pattern's handle alive until Close, and turns the engine's sentinel
// values into typed errors.
//
// # Architecture Overview
//
//	fancyregex/          Regex, Compile and lifecycle management
//	├── ffi/             Boundary contract, string ownership, diagnostics
//	│   └── ffitest/     Scripted and recording boundaries for tests
//	├── marshal/         NUL-terminated UTF-8 encoding
//	├── engine/          In-process engine (default boundary)
//	├── guest/           Engine compiled to WebAssembly, run with wazero
//	├── native/          Engine linked as a C library (cgo)
//	├── resource/        Generation-tagged handle tables
//	├── errors/          Structured error types
//	└── cmd/fancyre/     Command line front end
//
// # Quick Start
//
//	re, err := fancyregex.Compile(`(\w+)\s+\1`)
//	if err != nil {
//	    return err
//	}
//	defer re.Close()
//
//	ok, err := re.IsMatch("hello hello world")
//
// # Backends
//
// Compile uses the in-process engine unless WithBoundary selects another:
//
//	mod, err := guest.Load(ctx, wasmBytes, guest.Config{})
//	defer mod.Close(ctx)
//	re, err := fancyregex.Compile(`\d+`, fancyregex.WithBoundary(mod))
//
// Backends that cannot serve concurrent requests report so through
// ffi.Reentrant, and requests against their patterns are serialized.
//
// # Errors
//
// Every failure is an *errors.Error and matches one of the sentinels
// re-exported here:
//
//	if errors.Is(err, fancyregex.ErrInvalidPattern) {
//	    msg, _ := fancyregex.Diagnostic(err)
//	}
package fancyregex
