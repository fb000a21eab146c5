package guesttest

import "bytes"

const (
	opUnreachable = 0x00
	opIf          = 0x04
	opElse        = 0x05
	opEnd         = 0x0b
	opLocalGet    = 0x20
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Load8U   = 0x2d
	opI32Const    = 0x41
	opI32Eq       = 0x46
	opI32Ne       = 0x47
	opI32Add      = 0x6a

	blockEmpty = 0x40
	blockI32   = I32
)

// Fixed addresses of the fixture's static strings.
const (
	AddrDiagnostic = 16
	AddrFound      = 32
	AddrReplaced   = 48
	AddrMalformed  = 64
	heapBase       = 1024
)

// Scripted results of the fixture guest.
const (
	Diagnostic = "bad pattern"
	Found      = "hit"
	Replaced   = "replaced"
)

// Exported counter globals of the fixture guest.
const (
	GlobalHandleFrees = "handle_frees"
	GlobalStringFrees = "string_frees"
	GlobalInitialized = "initialized"
)

func code(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func op(b ...byte) []byte { return b }

func localGet(i byte) []byte { return op(opLocalGet, i) }

func globalGet(i byte) []byte { return op(opGlobalGet, i) }

func globalSet(i byte) []byte { return op(opGlobalSet, i) }

func i32Const(v int32) []byte {
	var b bytes.Buffer
	b.WriteByte(opI32Const)
	writeS32(&b, v)
	return b.Bytes()
}

// firstByte loads the first byte of the string whose pointer is local i.
func firstByte(i byte) []byte {
	return code(localGet(i), op(opI32Load8U, 0, 0))
}

// firstByteIs compares the first byte of the string in local i with c.
func firstByteIs(i byte, c byte) []byte {
	return code(firstByte(i), i32Const(int32(c)), op(opI32Eq))
}

func increment(global byte) []byte {
	return code(globalGet(global), i32Const(1), op(opI32Add), globalSet(global), op(opEnd))
}

// NewFixture returns a guest that exports the full boundary with scripted
// behavior:
//
//   - fancy_regex_new rejects patterns starting with '(' and otherwise
//     returns a fresh handle.
//   - fancy_regex_is_match reports -1 for text starting with '!', traps for
//     text starting with '#', and otherwise matches any non-empty text.
//   - fancy_regex_find returns "hit" for non-empty text, a malformed string
//     for text starting with '~', and null for empty text.
//   - fancy_regex_replace_all returns "replaced", or null for text starting
//     with '!'.
//   - fancy_regex_get_error always returns "bad pattern".
//
// Releases are counted in the exported handle_frees and string_frees
// globals; _initialize sets initialized to 1.
func NewFixture() *Module {
	const (
		gHeap = iota
		gHandleFrees
		gStringFrees
		gInitialized
		gNextHandle
	)
	const (
		tUnary     = iota // (i32) -> i32
		tRelease          // (i32) -> ()
		tBinary           // (i32, i32) -> i32
		tTernary          // (i32, i32, i32) -> i32
		tDealloc          // (i32, i32) -> ()
		tNullary          // () -> ()
	)

	funcs := []struct {
		name string
		fn   Func
	}{
		// bump allocator
		{"fancy_regex_alloc", Func{tUnary, code(
			globalGet(gHeap),
			globalGet(gHeap), localGet(0), op(opI32Add), globalSet(gHeap),
			op(opEnd),
		)}},
		// pops the most recent allocation
		{"fancy_regex_dealloc", Func{tDealloc, code(
			localGet(0), localGet(1), op(opI32Add), globalGet(gHeap), op(opI32Eq),
			op(opIf, blockEmpty), localGet(0), globalSet(gHeap), op(opEnd),
			op(opEnd),
		)}},
		{"fancy_regex_new", Func{tUnary, code(
			firstByteIs(0, '('),
			op(opIf, blockI32), i32Const(0),
			op(opElse),
			globalGet(gNextHandle), i32Const(1), op(opI32Add), globalSet(gNextHandle),
			globalGet(gNextHandle),
			op(opEnd),
			op(opEnd),
		)}},
		{"fancy_regex_free", Func{tRelease, increment(gHandleFrees)}},
		{"fancy_regex_is_match", Func{tBinary, code(
			firstByteIs(1, '!'),
			op(opIf, blockI32), i32Const(-1),
			op(opElse),
			firstByteIs(1, '#'),
			op(opIf, blockEmpty), op(opUnreachable), op(opEnd),
			firstByte(1), i32Const(0), op(opI32Ne),
			op(opEnd),
			op(opEnd),
		)}},
		{"fancy_regex_find", Func{tBinary, code(
			firstByteIs(1, '~'),
			op(opIf, blockI32), i32Const(AddrMalformed),
			op(opElse),
			firstByte(1),
			op(opIf, blockI32), i32Const(AddrFound), op(opElse), i32Const(0), op(opEnd),
			op(opEnd),
			op(opEnd),
		)}},
		{"fancy_regex_free_string", Func{tRelease, increment(gStringFrees)}},
		{"fancy_regex_replace_all", Func{tTernary, code(
			firstByteIs(1, '!'),
			op(opIf, blockI32), i32Const(0), op(opElse), i32Const(AddrReplaced), op(opEnd),
			op(opEnd),
		)}},
		{"fancy_regex_get_error", Func{tUnary, code(i32Const(AddrDiagnostic), op(opEnd))}},
		{"_initialize", Func{tNullary, code(i32Const(1), globalSet(gInitialized), op(opEnd))}},
	}

	m := &Module{
		Types: []FuncType{
			tUnary:   {Params: []byte{I32}, Results: []byte{I32}},
			tRelease: {Params: []byte{I32}},
			tBinary:  {Params: []byte{I32, I32}, Results: []byte{I32}},
			tTernary: {Params: []byte{I32, I32, I32}, Results: []byte{I32}},
			tDealloc: {Params: []byte{I32, I32}},
			tNullary: {},
		},
		MemoryPages: 1,
		Globals: []Global{
			gHeap:        {Mutable: true, Init: heapBase},
			gHandleFrees: {Mutable: true},
			gStringFrees: {Mutable: true},
			gInitialized: {Mutable: true},
			gNextHandle:  {Mutable: true, Init: 7},
		},
		Exports: []Export{
			{Name: "memory", Kind: KindMemory, Idx: 0},
			{Name: GlobalHandleFrees, Kind: KindGlobal, Idx: gHandleFrees},
			{Name: GlobalStringFrees, Kind: KindGlobal, Idx: gStringFrees},
			{Name: GlobalInitialized, Kind: KindGlobal, Idx: gInitialized},
		},
		Data: []Data{
			{Offset: AddrDiagnostic, Init: []byte(Diagnostic + "\x00")},
			{Offset: AddrFound, Init: []byte(Found + "\x00")},
			{Offset: AddrReplaced, Init: []byte(Replaced + "\x00")},
			{Offset: AddrMalformed, Init: []byte("\xff\x00")},
		},
	}
	for i, f := range funcs {
		m.Funcs = append(m.Funcs, f.fn)
		m.Exports = append(m.Exports, Export{Name: f.name, Kind: KindFunc, Idx: uint32(i)})
	}
	return m
}

// Fixture returns the encoded NewFixture guest.
func Fixture() []byte {
	return NewFixture().Encode()
}

// Without removes the named exports.
func (m *Module) Without(names ...string) *Module {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := m.Exports[:0]
	for _, e := range m.Exports {
		if !drop[e.Name] {
			kept = append(kept, e)
		}
	}
	m.Exports = kept
	return m
}
