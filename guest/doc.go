// Package guest runs the regex engine compiled to WebAssembly.
//
// A guest is a core module exporting linear memory, the seven boundary
// entry points and a pair of allocation functions:
//
//	memory
//	fancy_regex_new(pattern i32) -> i32
//	fancy_regex_free(handle i32)
//	fancy_regex_is_match(handle, text i32) -> i32
//	fancy_regex_find(handle, text i32) -> i32
//	fancy_regex_free_string(ptr i32)
//	fancy_regex_replace_all(handle, text, replacement i32) -> i32
//	fancy_regex_get_error(pattern i32) -> i32
//	fancy_regex_alloc(size i32) -> i32
//	fancy_regex_dealloc(ptr, size i32)
//
// Strings cross as pointers to NUL-terminated UTF-8 in guest memory.
// Arguments are copied in with fancy_regex_alloc and released after the
// call; results are copied out by Load and released with
// fancy_regex_free_string. An exported _initialize runs once after
// instantiation.
//
// Each Module owns a dedicated wazero runtime. Calls share one stack
// buffer, so a Module serializes its callers and reports itself as not
// reentrant.
//
//	mod, err := guest.Load(ctx, wasmBytes, guest.Config{MemoryLimitPages: 256})
//	if err != nil {
//	    return err
//	}
//	defer mod.Close(ctx)
//
//	re, err := fancyregex.Compile(`(\w+)\s+\1`, fancyregex.WithBoundary(mod))
package guest
