package guest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// memory wraps the guest's linear memory with bounds-checked access.
type memory struct {
	mem api.Memory
}

func (m memory) read(offset, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m memory) write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

// cstring copies the NUL-terminated string at offset out of guest memory.
// The terminator is not included.
func (m memory) cstring(offset uint32) ([]byte, error) {
	size := m.mem.Size()
	if offset >= size {
		return nil, fmt.Errorf("string out of bounds: offset=%d, memory=%d", offset, size)
	}
	view, err := m.read(offset, size-offset)
	if err != nil {
		return nil, err
	}
	n := bytes.IndexByte(view, 0)
	if n < 0 {
		return nil, fmt.Errorf("unterminated string at offset %d", offset)
	}
	out := make([]byte, n)
	copy(out, view[:n])
	return out, nil
}

// allocator calls the guest's exported allocation functions. stack is
// shared with the owning Module and guarded by its lock.
type allocator struct {
	allocFn api.Function
	freeFn  api.Function
	stack   []uint64
}

func (a *allocator) alloc(ctx context.Context, size uint32) (uint32, error) {
	a.stack[0] = uint64(size)
	if err := a.allocFn.CallWithStack(ctx, a.stack[:1]); err != nil {
		return 0, err
	}
	ptr := uint32(a.stack[0])
	if ptr == 0 {
		return 0, fmt.Errorf("guest allocation of %d bytes failed", size)
	}
	return ptr, nil
}

func (a *allocator) free(ctx context.Context, ptr, size uint32) {
	if ptr == 0 {
		return
	}
	a.stack[0] = uint64(ptr)
	a.stack[1] = uint64(size)
	if err := a.freeFn.CallWithStack(ctx, a.stack[:2]); err != nil {
		Logger().Warn("guest dealloc failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}
