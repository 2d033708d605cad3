package remux

import (
	"context"
	"io"
	"sync"
)

const (
	// defaultBufferSize bounds how far the merge output can run ahead of
	// the HTTP client. 512 KB absorbs burstiness without letting a slow
	// client pin megabytes of muxed data in memory.
	defaultBufferSize = 512 * 1024
	bufReadChunk      = 64 * 1024
)

// ringBuffer wraps an io.ReadCloser with a fixed-size ring. A background
// goroutine fills the ring from the source and blocks when the ring is
// full, so backpressure from a slow consumer propagates to the producer
// instead of growing memory. Read blocks when the ring is empty.
type ringBuffer struct {
	source io.ReadCloser
	buf    []byte
	size   int
	rPos   int
	wPos   int
	count  int

	mu      sync.Mutex
	dataCh  chan struct{}
	spaceCh chan struct{}
	srcErr  error
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func newRingBuffer(source io.ReadCloser, size int) *ringBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &ringBuffer{
		source:  source,
		buf:     make([]byte, size),
		size:    size,
		dataCh:  make(chan struct{}, 1),
		spaceCh: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	go b.fillLoop()
	return b
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (b *ringBuffer) fillLoop() {
	tmp := make([]byte, bufReadChunk)
	for {
		select {
		case <-b.ctx.Done():
			return
		default:
		}

		n, err := b.source.Read(tmp)
		if n > 0 {
			if !b.write(tmp[:n]) {
				return
			}
		}
		if err != nil {
			b.mu.Lock()
			b.srcErr = err
			signal(b.dataCh)
			b.mu.Unlock()
			return
		}
	}
}

// write copies data into the ring, blocking while the ring is full.
// Returns false when the buffer was closed mid-write.
func (b *ringBuffer) write(data []byte) bool {
	for len(data) > 0 {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return false
		}
		n := b.writeToRing(data)
		if n > 0 {
			signal(b.dataCh)
		}
		b.mu.Unlock()
		data = data[n:]
		if len(data) == 0 {
			return true
		}
		select {
		case <-b.spaceCh:
		case <-b.ctx.Done():
			return false
		}
	}
	return true
}

// writeToRing copies what fits. Caller must hold b.mu.
func (b *ringBuffer) writeToRing(data []byte) int {
	written := 0
	for len(data) > 0 && b.count < b.size {
		space := b.size - b.wPos
		if space > b.size-b.count {
			space = b.size - b.count
		}
		if space > len(data) {
			space = len(data)
		}
		copy(b.buf[b.wPos:b.wPos+space], data[:space])
		b.wPos = (b.wPos + space) % b.size
		b.count += space
		written += space
		data = data[space:]
	}
	return written
}

// Read implements io.Reader. Blocks until data is available, the source
// ends, or the buffer is closed.
func (b *ringBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	for b.count == 0 && b.srcErr == nil && !b.closed {
		b.mu.Unlock()
		select {
		case <-b.dataCh:
		case <-b.ctx.Done():
			return 0, b.ctx.Err()
		}
		b.mu.Lock()
	}
	if b.closed {
		b.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if b.count == 0 {
		err := b.srcErr
		b.mu.Unlock()
		return 0, err
	}
	n := b.readFromRing(p)
	signal(b.spaceCh)
	b.mu.Unlock()
	return n, nil
}

// readFromRing copies data from the ring into p. Caller must hold b.mu.
func (b *ringBuffer) readFromRing(p []byte) int {
	n := 0
	for len(p) > 0 && b.count > 0 {
		avail := b.size - b.rPos
		if avail > b.count {
			avail = b.count
		}
		if avail > len(p) {
			avail = len(p)
		}
		copy(p[:avail], b.buf[b.rPos:b.rPos+avail])
		b.rPos = (b.rPos + avail) % b.size
		b.count -= avail
		n += avail
		p = p[avail:]
	}
	return n
}

// Close stops the fill loop and closes the underlying source.
func (b *ringBuffer) Close() error {
	b.mu.Lock()
	b.closed = true
	signal(b.dataCh)
	signal(b.spaceCh)
	b.mu.Unlock()
	b.cancel()
	return b.source.Close()
}
