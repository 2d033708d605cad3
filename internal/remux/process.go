package remux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// mergeArgs is the fixed ffmpeg invocation: audio arrives on fd 3, video
// on fd 4, both tracks are copied untouched, and the muxed matroska
// stream leaves on fd 5. No transcoding happens anywhere.
var mergeArgs = []string{
	"-loglevel", "error",
	"-hide_banner",
	"-i", "pipe:3",
	"-i", "pipe:4",
	"-map", "0:a",
	"-map", "1:v",
	"-c:v", "copy",
	"-c:a", "copy",
	"-f", "matroska",
	"pipe:5",
}

// Engine spawns ffmpeg merge processes. It implements ports.Remuxer.
type Engine struct {
	FFmpegPath string
	BufferSize int
	Logger     *slog.Logger
}

func NewEngine(ffmpegPath string, bufferSize int, logger *slog.Logger) *Engine {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{FFmpegPath: ffmpegPath, BufferSize: bufferSize, Logger: logger}
}

// Remux starts an ffmpeg process fed by the audio and video readers and
// returns the muxed output stream. Closing the returned reader kills the
// process and reaps it; the process is also reaped when it exits on its
// own or when ctx is cancelled.
func (e *Engine) Remux(ctx context.Context, audio, video io.Reader) (io.ReadCloser, error) {
	audioR, audioW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	videoR, videoW, err := os.Pipe()
	if err != nil {
		audioR.Close()
		audioW.Close()
		return nil, err
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		audioR.Close()
		audioW.Close()
		videoR.Close()
		videoW.Close()
		return nil, err
	}

	ctx2, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx2, e.FFmpegPath, mergeArgs...)
	// Child fds 3, 4, 5 in ExtraFiles order.
	cmd.ExtraFiles = []*os.File{audioR, videoR, outW}

	p := &process{
		cmd:    cmd,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: e.Logger,
	}
	cmd.Stderr = &p.stderrBuf

	if err := cmd.Start(); err != nil {
		cancel()
		audioR.Close()
		audioW.Close()
		videoR.Close()
		videoW.Close()
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	// The child holds its own copies now.
	audioR.Close()
	videoR.Close()
	outW.Close()

	feeders, fctx := errgroup.WithContext(ctx2)
	p.feeders = feeders
	feeders.Go(func() error { return p.feed(fctx, "audio", audioW, audio) })
	feeders.Go(func() error { return p.feed(fctx, "video", videoW, video) })

	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
		// Unblock the output reader once the child is gone.
		outR.Close()
		if p.waitErr != nil && ctx2.Err() == nil {
			e.Logger.Error("ffmpeg merge exited",
				slog.Any("error", p.waitErr),
				slog.String("stderr", p.stderr()))
		}
		// The feeders end once the child's pipes break; collecting
		// them here keeps teardown off the client path. Feed errors
		// were already recorded by feed itself.
		_ = feeders.Wait()
	}()

	return &mergeStream{
		ring: newRingBuffer(outR, e.BufferSize),
		proc: p,
	}, nil
}

// process tracks one running ffmpeg merge.
type process struct {
	cmd       *exec.Cmd
	cancel    context.CancelFunc
	done      chan struct{}
	waitErr   error
	stderrBuf bytes.Buffer
	feeders   *errgroup.Group
	logger    *slog.Logger

	mu      sync.Mutex
	feedErr error
}

// feed copies one input track into its child pipe, then closes the pipe
// so ffmpeg sees EOF on that input. An upstream failure kills the whole
// merge: a truncated input must never end the session as a clean EOF.
// Broken-pipe writes are the child's failure, not the track's, and are
// reported through cmd.Wait instead.
func (p *process) feed(ctx context.Context, track string, w *os.File, r io.Reader) error {
	defer w.Close()
	_, err := io.Copy(w, r)
	if err != nil && ctx.Err() == nil &&
		!errors.Is(err, os.ErrClosed) && !errors.Is(err, syscall.EPIPE) {
		p.logger.Warn("merge input interrupted",
			slog.String("track", track),
			slog.Any("error", err))
		ferr := fmt.Errorf("%s feed: %w", track, err)
		p.mu.Lock()
		if p.feedErr == nil {
			p.feedErr = ferr
		}
		p.mu.Unlock()
		p.cancel()
		return ferr
	}
	return nil
}

// failure reports why the merge ended, if it ended badly. A dead input
// leg takes precedence over the exit status it caused.
func (p *process) failure() error {
	p.mu.Lock()
	ferr := p.feedErr
	p.mu.Unlock()
	if ferr != nil {
		return ferr
	}
	if p.waitErr == nil {
		return nil
	}
	if msg := p.stderr(); msg != "" {
		return fmt.Errorf("%w (%s)", p.waitErr, msg)
	}
	return p.waitErr
}

func (p *process) stderr() string {
	return strings.TrimSpace(p.stderrBuf.String())
}

// mergeStream is the consumer-facing side of one merge: the buffered
// output plus teardown of the process behind it.
type mergeStream struct {
	ring      *ringBuffer
	proc      *process
	closeOnce sync.Once
	closeErr  error
}

func (m *mergeStream) Read(p []byte) (int, error) {
	n, err := m.ring.Read(p)
	if err == nil {
		return n, nil
	}
	// The ring drained or its pipe broke; how the stream really ended
	// is decided by the process and its feeders, not the bare error.
	<-m.proc.done
	if ferr := m.proc.failure(); ferr != nil {
		return n, fmt.Errorf("ffmpeg merge: %w", ferr)
	}
	if err == io.EOF {
		return n, io.EOF
	}
	return n, err
}

// Close kills the process if still running, waits for it to be reaped,
// and releases the output buffer. Safe to call on every exit path.
func (m *mergeStream) Close() error {
	m.closeOnce.Do(func() {
		m.proc.cancel()
		m.closeErr = m.ring.Close()
		<-m.proc.done
	})
	return m.closeErr
}
