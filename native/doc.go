// Package native binds the regex engine built as a C library.
//
// Building with cgo and the fancyregex_native tag links libfancy_regex_ffi
// and makes Open return a Library. Handles are the engine's pattern
// pointers and strings are engine-allocated C strings released through
// fancy_regex_free_string. Other builds compile a stub whose Open returns
// ErrUnavailable.
//
//	go build -tags fancyregex_native ./...
package native
