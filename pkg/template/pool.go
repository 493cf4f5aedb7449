package template

import "github.com/valyala/bytebufferpool"

const (
	defaultPoolSize = 64
	// Buffers that grew past this size are dropped instead of being retained.
	maxRetainedBuffer = 64 << 10
)

// buffers is the process-wide scratch pool shared by Parse and Render.
var buffers = newBufferPool(defaultPoolSize, maxRetainedBuffer)

// bufferPool is a bounded pool of byte buffers. At most size idle buffers are
// retained; a checked-out buffer belongs to exactly one caller until released.
type bufferPool struct {
	idle        chan *bytebufferpool.ByteBuffer
	maxRetained int
}

func newBufferPool(size, maxRetained int) *bufferPool {
	return &bufferPool{
		idle:        make(chan *bytebufferpool.ByteBuffer, size),
		maxRetained: maxRetained,
	}
}

func (p *bufferPool) get() *bytebufferpool.ByteBuffer {
	select {
	case b := <-p.idle:
		return b
	default:
		return &bytebufferpool.ByteBuffer{}
	}
}

func (p *bufferPool) put(b *bytebufferpool.ByteBuffer) {
	if cap(b.B) > p.maxRetained {
		return
	}
	b.Reset()
	select {
	case p.idle <- b:
	default:
	}
}

// render checks out a buffer, lets fn fill it and returns its contents as a
// string. The buffer goes back to the pool on every exit path, panics included.
func (p *bufferPool) render(fn func(b *bytebufferpool.ByteBuffer)) string {
	b := p.get()
	defer p.put(b)

	fn(b)
	return b.String()
}
