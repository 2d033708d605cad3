package remux

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type slowReader struct {
	data []byte
	pos  int
}

func (r *slowReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func (r *slowReader) Close() error { return nil }

func TestRingBufferDeliversAllBytes(t *testing.T) {
	payload := bytes.Repeat([]byte("matroska"), 4096)
	b := newRingBuffer(&slowReader{data: payload}, 1024)
	defer b.Close()

	got, err := io.ReadAll(b)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %d bytes, want %d", len(got), len(payload))
	}
}

func TestRingBufferBlocksProducerWhenFull(t *testing.T) {
	// Source is much larger than the ring; the fill loop must stall
	// rather than drop data, so a paused consumer still sees every byte.
	payload := bytes.Repeat([]byte{0xAB}, 64*1024)
	b := newRingBuffer(&slowReader{data: payload}, 4096)
	defer b.Close()

	time.Sleep(20 * time.Millisecond) // let the fill loop hit the wall

	got, err := io.ReadAll(b)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("lost bytes under backpressure: got %d, want %d", len(got), len(payload))
	}
}

func TestRingBufferPropagatesSourceError(t *testing.T) {
	srcErr := errors.New("upstream reset")
	b := newRingBuffer(io.NopCloser(io.MultiReader(
		strings.NewReader("head"),
		&errReader{err: srcErr},
	)), 1024)
	defer b.Close()

	got, err := io.ReadAll(b)
	if string(got) != "head" {
		t.Fatalf("expected buffered head, got %q", got)
	}
	if !errors.Is(err, srcErr) {
		t.Fatalf("expected source error, got %v", err)
	}
}

type errReader struct{ err error }

func (r *errReader) Read(p []byte) (int, error) { return 0, r.err }

func TestRingBufferCloseUnblocksReader(t *testing.T) {
	b := newRingBuffer(io.NopCloser(&blockingReader{ch: make(chan struct{})}), 1024)

	readErr := make(chan error, 1)
	go func() {
		_, err := b.Read(make([]byte, 16))
		readErr <- err
	}()

	time.Sleep(10 * time.Millisecond)
	b.Close()

	select {
	case err := <-readErr:
		if err != io.ErrClosedPipe {
			t.Fatalf("expected ErrClosedPipe, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock after Close")
	}
}

type blockingReader struct{ ch chan struct{} }

func (r *blockingReader) Read(p []byte) (int, error) {
	<-r.ch
	return 0, io.EOF
}
