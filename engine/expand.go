package engine

import (
	"bytes"
	"strconv"
)

// groupLookup resolves a replacement reference to captured text. Unknown
// groups and groups that did not participate resolve to nil.
type groupLookup func(index int, name string) []byte

// expand appends template to dst with every reference substituted.
//
// References follow the fancy-regex replacement syntax: $N and $name take the
// longest run of letters, digits and underscores, ${...} delimits a reference
// explicitly, and $$ is a literal dollar. A '$' that starts no valid reference
// is copied as is.
func expand(dst, template []byte, lookup groupLookup) []byte {
	for len(template) > 0 {
		i := bytes.IndexByte(template, '$')
		if i < 0 {
			break
		}
		dst = append(dst, template[:i]...)
		template = template[i:]

		if len(template) > 1 && template[1] == '$' {
			dst = append(dst, '$')
			template = template[2:]
			continue
		}

		ref, rest, ok := reference(template)
		if !ok {
			dst = append(dst, '$')
			template = template[1:]
			continue
		}
		if n, err := strconv.Atoi(ref); err == nil && n >= 0 {
			dst = append(dst, lookup(n, "")...)
		} else {
			dst = append(dst, lookup(-1, ref)...)
		}
		template = rest
	}
	return append(dst, template...)
}

// reference parses the reference at the start of t, which begins with '$'.
func reference(t []byte) (string, []byte, bool) {
	if len(t) < 2 {
		return "", nil, false
	}
	if t[1] == '{' {
		end := bytes.IndexByte(t[2:], '}')
		if end <= 0 {
			return "", nil, false
		}
		return string(t[2 : 2+end]), t[3+end:], true
	}

	n := 1
	for n < len(t) && isRefByte(t[n]) {
		n++
	}
	if n == 1 {
		return "", nil, false
	}
	return string(t[1:n]), t[n:], true
}

func isRefByte(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
