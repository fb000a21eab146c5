package native

import "github.com/wippyai/fancy-regex/errors"

// ErrUnavailable is returned by Open when the build does not link the
// native engine. Rebuild with cgo and the fancyregex_native tag.
var ErrUnavailable = errors.Unavailable("native engine", "built without cgo and the fancyregex_native tag")
