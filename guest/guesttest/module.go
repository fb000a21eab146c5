// Package guesttest builds small WebAssembly guests for exercising the
// guest backend without a compiled regex engine.
package guesttest

import "bytes"

// Binary format constants.
const (
	magic   = 0x6d736100 // "\0asm"
	version = 1

	sectionType     = 1
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11

	funcTypeByte = 0x60

	KindFunc   = 0x00
	KindMemory = 0x02
	KindGlobal = 0x03

	I32 = 0x7f
)

// FuncType is a function signature.
type FuncType struct {
	Params  []byte
	Results []byte
}

// Global is a mutable or immutable i32 global.
type Global struct {
	Mutable bool
	Init    int32
}

// Export names a function, memory or global.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// Func is a defined function: its type index and body, including the
// final end opcode. Functions declare no locals.
type Func struct {
	Type uint32
	Code []byte
}

// Data is an active segment placed at Offset in memory 0.
type Data struct {
	Offset int32
	Init   []byte
}

// Module is a core module with a single memory.
type Module struct {
	Types       []FuncType
	Funcs       []Func
	MemoryPages uint32
	Globals     []Global
	Exports     []Export
	Data        []Data
}

// Encode encodes the module to WebAssembly binary format.
func (m *Module) Encode() []byte {
	var w bytes.Buffer
	writeU32LE(&w, magic)
	writeU32LE(&w, version)

	if len(m.Types) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.WriteByte(funcTypeByte)
			writeVec(&sec, ft.Params)
			writeVec(&sec, ft.Results)
		}
		writeSection(&w, sectionType, sec.Bytes())
	}

	if len(m.Funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			writeU32(&sec, f.Type)
		}
		writeSection(&w, sectionFunction, sec.Bytes())
	}

	if m.MemoryPages > 0 {
		var sec bytes.Buffer
		writeU32(&sec, 1)
		sec.WriteByte(0x00) // limits: min only
		writeU32(&sec, m.MemoryPages)
		writeSection(&w, sectionMemory, sec.Bytes())
	}

	if len(m.Globals) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Globals)))
		for _, g := range m.Globals {
			sec.WriteByte(I32)
			if g.Mutable {
				sec.WriteByte(1)
			} else {
				sec.WriteByte(0)
			}
			sec.Write(constExpr(g.Init))
		}
		writeSection(&w, sectionGlobal, sec.Bytes())
	}

	if len(m.Exports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Exports)))
		for _, e := range m.Exports {
			writeName(&sec, e.Name)
			sec.WriteByte(e.Kind)
			writeU32(&sec, e.Idx)
		}
		writeSection(&w, sectionExport, sec.Bytes())
	}

	if len(m.Funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			var body bytes.Buffer
			writeU32(&body, 0) // local declarations
			body.Write(f.Code)
			writeU32(&sec, uint32(body.Len()))
			sec.Write(body.Bytes())
		}
		writeSection(&w, sectionCode, sec.Bytes())
	}

	if len(m.Data) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Data)))
		for _, d := range m.Data {
			writeU32(&sec, 0) // active, memory 0
			sec.Write(constExpr(d.Offset))
			writeVec(&sec, d.Init)
		}
		writeSection(&w, sectionData, sec.Bytes())
	}

	return w.Bytes()
}

func constExpr(v int32) []byte {
	var b bytes.Buffer
	b.WriteByte(opI32Const)
	writeS32(&b, v)
	b.WriteByte(opEnd)
	return b.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	writeU32(w, uint32(len(data)))
	w.Write(data)
}

func writeVec(w *bytes.Buffer, b []byte) {
	writeU32(w, uint32(len(b)))
	w.Write(b)
}

func writeName(w *bytes.Buffer, s string) {
	writeU32(w, uint32(len(s)))
	w.WriteString(s)
}

func writeU32LE(w *bytes.Buffer, v uint32) {
	w.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

// writeU32 writes an unsigned LEB128 value.
func writeU32(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// writeS32 writes a signed LEB128 value.
func writeS32(w *bytes.Buffer, v int32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		w.WriteByte(b)
		if done {
			return
		}
	}
}
