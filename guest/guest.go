package guest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/fancy-regex/errors"
	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/marshal"
)

// Guest exports beyond the seven boundary entry points.
const (
	ExportMemory     = "memory"
	ExportAlloc      = "fancy_regex_alloc"
	ExportDealloc    = "fancy_regex_dealloc"
	ExportInitialize = "_initialize"
)

// Config holds configuration for loading a guest module.
type Config struct {
	// MemoryLimitPages caps guest memory in pages (64KB each).
	// 0 means the wazero default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// WASI instantiates wasi_snapshot_preview1 before the guest, for modules
	// built against a WASI toolchain.
	WASI bool

	// Name is the guest's module name inside its runtime.
	Name string
}

type signature struct {
	name    string
	params  int
	results int
}

// exports lists every function the guest must export. All parameters and
// results are i32.
var exports = []signature{
	{ffi.EntryCompile, 1, 1},
	{ffi.EntryFree, 1, 0},
	{ffi.EntryIsMatch, 2, 1},
	{ffi.EntryFind, 2, 1},
	{ffi.EntryFreeString, 1, 0},
	{ffi.EntryReplaceAll, 3, 1},
	{ffi.EntryGetError, 1, 1},
	{ExportAlloc, 1, 1},
	{ExportDealloc, 2, 0},
}

const (
	fnCompile = iota
	fnFree
	fnIsMatch
	fnFind
	fnFreeString
	fnReplaceAll
	fnGetError
	fnCount
)

// Module is a loaded guest. It implements ffi.Boundary and is not
// reentrant: every entry point takes the module lock.
type Module struct {
	runtime wazero.Runtime
	mod     api.Module
	mem     memory
	alloc   *allocator
	fns     [fnCount]api.Function

	mu       sync.Mutex
	ctx      context.Context
	stackBuf [4]uint64
	closed   atomic.Bool
}

var _ ffi.Boundary = (*Module)(nil)

// Load compiles and instantiates wasmBytes in a dedicated wazero runtime.
// A guest lacking required exports fails with *errors.MissingExportsError
// before instantiation.
func Load(ctx context.Context, wasmBytes []byte, cfg Config) (*Module, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	m, err := instantiate(ctx, r, wasmBytes, cfg)
	if err != nil {
		return nil, multierr.Append(err, r.Close(ctx))
	}
	return m, nil
}

func instantiate(ctx context.Context, r wazero.Runtime, wasmBytes []byte, cfg Config) (*Module, error) {
	if cfg.WASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "instantiate WASI")
		}
	}

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "compile guest")
	}
	if err := checkExports(compiled); err != nil {
		return nil, err
	}

	modCfg := wazero.NewModuleConfig().
		WithName(cfg.Name).
		WithStartFunctions(ExportInitialize)
	mod, err := r.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	m := &Module{
		runtime: r,
		mod:     mod,
		mem:     memory{mem: mod.Memory()},
		ctx:     context.Background(),
	}
	for i := range m.fns {
		m.fns[i] = mod.ExportedFunction(exports[i].name)
	}
	m.alloc = &allocator{
		allocFn: mod.ExportedFunction(ExportAlloc),
		freeFn:  mod.ExportedFunction(ExportDealloc),
		stack:   m.stackBuf[:],
	}

	Logger().Debug("guest loaded",
		zap.String("name", cfg.Name),
		zap.Uint32("memory_bytes", mod.Memory().Size()))
	return m, nil
}

func checkExports(compiled wazero.CompiledModule) error {
	var missing []string
	if _, ok := compiled.ExportedMemories()[ExportMemory]; !ok {
		missing = append(missing, ExportMemory)
	}

	defs := compiled.ExportedFunctions()
	for _, sig := range exports {
		def, ok := defs[sig.name]
		if !ok {
			missing = append(missing, sig.name)
			continue
		}
		if !allI32(def.ParamTypes(), sig.params) || !allI32(def.ResultTypes(), sig.results) {
			return errors.New(errors.PhaseLoad, errors.KindInstantiation).
				Arg(sig.name).
				Detail("export has signature %v -> %v, want %d i32 param(s) and %d i32 result(s)",
					def.ParamTypes(), def.ResultTypes(), sig.params, sig.results).
				Build()
		}
	}

	if len(missing) > 0 {
		return errors.NewMissingExportsError(missing)
	}
	return nil
}

func allI32(types []api.ValueType, n int) bool {
	if len(types) != n {
		return false
	}
	for _, t := range types {
		if t != api.ValueTypeI32 {
			return false
		}
	}
	return true
}

// SetContext sets the context used for subsequent guest calls.
func (m *Module) SetContext(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = ctx
}

// Reentrant reports false; guest calls share one stack buffer and one
// linear memory.
func (m *Module) Reentrant() bool {
	return false
}

// Close releases the guest instance and its runtime. Handles compiled by
// the guest become invalid.
func (m *Module) Close(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return multierr.Combine(m.mod.Close(ctx), m.runtime.Close(ctx))
}

// invoke calls fn with args. Callers hold m.mu.
func (m *Module) invoke(entry int, args ...uint64) (uint64, bool) {
	if m.closed.Load() {
		return 0, false
	}
	n := copy(m.stackBuf[:], args)
	if err := m.fns[entry].CallWithStack(m.ctx, m.stackBuf[:max(n, 1)]); err != nil {
		Logger().Error("guest call failed",
			zap.String("entry", exports[entry].name),
			zap.Error(err))
		return 0, false
	}
	return m.stackBuf[0], true
}

// put copies c into guest memory. A null c yields pointer 0.
func (m *Module) put(c marshal.CString) (ptr, size uint32, err error) {
	if c.IsNull() {
		return 0, 0, nil
	}
	size = uint32(len(c))
	ptr, err = m.alloc.alloc(m.ctx, size)
	if err != nil {
		return 0, 0, err
	}
	if err := m.mem.write(ptr, c); err != nil {
		m.alloc.free(m.ctx, ptr, size)
		return 0, 0, err
	}
	return ptr, size, nil
}

func (m *Module) drop(ptr, size uint32) {
	m.alloc.free(m.ctx, ptr, size)
}

// args marshals each argument into guest memory. release frees them in
// reverse order.
func (m *Module) args(entry int, cs ...marshal.CString) (ptrs []uint64, release func(), ok bool) {
	type block struct{ ptr, size uint32 }
	blocks := make([]block, 0, len(cs))
	release = func() {
		for i := len(blocks) - 1; i >= 0; i-- {
			m.drop(blocks[i].ptr, blocks[i].size)
		}
	}

	if m.closed.Load() {
		return nil, release, false
	}
	for _, c := range cs {
		ptr, size, err := m.put(c)
		if err != nil {
			Logger().Error("guest argument copy failed",
				zap.String("entry", exports[entry].name),
				zap.Error(err))
			release()
			return nil, func() {}, false
		}
		blocks = append(blocks, block{ptr, size})
		ptrs = append(ptrs, uint64(ptr))
	}
	return ptrs, release, true
}

func (m *Module) Compile(pattern marshal.CString) ffi.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	ptrs, release, ok := m.args(fnCompile, pattern)
	defer release()
	if !ok || ptrs[0] == 0 {
		return ffi.NullHandle
	}
	res, ok := m.invoke(fnCompile, ptrs...)
	if !ok {
		return ffi.NullHandle
	}
	return ffi.Handle(uint32(res))
}

func (m *Module) Free(h ffi.Handle) {
	if h == ffi.NullHandle {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoke(fnFree, uint64(uint32(h)))
}

func (m *Module) IsMatch(h ffi.Handle, text marshal.CString) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	ptrs, release, ok := m.args(fnIsMatch, text)
	defer release()
	if !ok || h == ffi.NullHandle || ptrs[0] == 0 {
		return ffi.CodeError
	}
	res, ok := m.invoke(fnIsMatch, uint64(uint32(h)), ptrs[0])
	if !ok {
		return ffi.CodeError
	}
	return int32(uint32(res))
}

func (m *Module) Find(h ffi.Handle, text marshal.CString) ffi.Ptr {
	m.mu.Lock()
	defer m.mu.Unlock()

	ptrs, release, ok := m.args(fnFind, text)
	defer release()
	if !ok || h == ffi.NullHandle || ptrs[0] == 0 {
		return ffi.NullPtr
	}
	res, _ := m.invoke(fnFind, uint64(uint32(h)), ptrs[0])
	return ffi.Ptr(uint32(res))
}

func (m *Module) ReplaceAll(h ffi.Handle, text, replacement marshal.CString) ffi.Ptr {
	m.mu.Lock()
	defer m.mu.Unlock()

	ptrs, release, ok := m.args(fnReplaceAll, text, replacement)
	defer release()
	if !ok || h == ffi.NullHandle || ptrs[0] == 0 || ptrs[1] == 0 {
		return ffi.NullPtr
	}
	res, _ := m.invoke(fnReplaceAll, uint64(uint32(h)), ptrs[0], ptrs[1])
	return ffi.Ptr(uint32(res))
}

func (m *Module) GetError(pattern marshal.CString) ffi.Ptr {
	m.mu.Lock()
	defer m.mu.Unlock()

	ptrs, release, ok := m.args(fnGetError, pattern)
	defer release()
	if !ok || ptrs[0] == 0 {
		return ffi.NullPtr
	}
	res, _ := m.invoke(fnGetError, ptrs[0])
	return ffi.Ptr(uint32(res))
}

func (m *Module) FreeString(p ffi.Ptr) {
	if p == ffi.NullPtr {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoke(fnFreeString, uint64(uint32(p)))
}

// Load copies the string at p out of guest memory.
func (m *Module) Load(p ffi.Ptr) ([]byte, bool) {
	if p == ffi.NullPtr {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		return nil, false
	}

	b, err := m.mem.cstring(uint32(p))
	if err != nil {
		Logger().Warn("guest string unreadable", zap.Uint64("ptr", uint64(p)), zap.Error(err))
		return nil, false
	}
	return b, true
}

func (m *Module) String() string {
	return fmt.Sprintf("guest(%s)", m.mod.Name())
}
