package apihttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
	"github.com/bayuairbender2950/youtube-to-url/internal/metrics"
	"github.com/bayuairbender2950/youtube-to-url/internal/usecase"
)

const videoPathSuffix = "-video.mp4"

// parseVideoPath splits /video/{contentId}/{quality}-video.mp4 into its
// parts. Returns ok=false for any other shape.
func parseVideoPath(path string) (contentID string, quality string, ok bool) {
	tail := strings.TrimPrefix(path, "/video/")
	if tail == path {
		return "", "", false
	}
	parts := strings.SplitN(tail, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", false
	}
	file := parts[1]
	if !strings.HasSuffix(file, videoPathSuffix) {
		return "", "", false
	}
	quality = strings.TrimSuffix(file, videoPathSuffix)
	if quality == "" || strings.Contains(quality, "/") {
		return "", "", false
	}
	return parts[0], quality, true
}

func validQualityList() string {
	qualities := domain.SupportedQualities()
	labels := make([]string, len(qualities))
	for i, q := range qualities {
		labels[i] = string(q)
	}
	return strings.Join(labels, ", ")
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	contentID, qualityRaw, ok := parseVideoPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	quality := domain.Quality(qualityRaw)
	if !quality.Valid() {
		writePlainError(w, http.StatusBadRequest,
			"Invalid quality. Valid options are: "+validQualityList())
		return
	}

	planStart := time.Now()
	plan, err := s.stream.Plan(r.Context(), contentID, quality)
	metrics.ResolveDuration.Observe(time.Since(planStart).Seconds())
	if err != nil {
		s.writePlanError(w, quality, err)
		return
	}

	w.Header().Set("Content-Disposition", `inline; filename="`+plan.Filename+`"`)
	w.Header().Set("Content-Type", "video/mp4")

	// Byte offsets are only stable in passthrough mode: remuxed output is
	// produced on the fly and has no predictable size, so those responses
	// do not advertise range support.
	seekable := plan.Mode == domain.ModePassthrough && plan.ContentLength > 0

	if r.Method == http.MethodHead {
		if seekable {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", strconv.FormatInt(plan.ContentLength, 10))
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" && seekable {
		s.serveVideoRange(w, r, plan, rangeHeader)
		return
	}
	s.serveVideoFull(w, r, plan, seekable)
}

func (s *Server) serveVideoRange(w http.ResponseWriter, r *http.Request, plan usecase.StreamPlan, rangeHeader string) {
	start, end, err := parseByteRange(rangeHeader, plan.ContentLength)
	if err != nil {
		if errors.Is(err, errRangeNotSatisfiable) {
			w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(plan.ContentLength, 10))
			writePlainError(w, http.StatusRequestedRangeNotSatisfiable, "Requested range not satisfiable")
			return
		}
		// Malformed Range header: ignore it and serve the full stream.
		s.serveVideoFull(w, r, plan, true)
		return
	}

	rc, err := s.stream.OpenRange(r.Context(), plan, start, end)
	if err != nil {
		s.writeOpenError(w, plan, err)
		return
	}

	length := end - start + 1
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, plan.ContentLength))
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)

	s.streamBody(w, r, plan, rc, length)
}

func (s *Server) serveVideoFull(w http.ResponseWriter, r *http.Request, plan usecase.StreamPlan, seekable bool) {
	rc, err := s.stream.Open(r.Context(), plan)
	if err != nil {
		s.writeOpenError(w, plan, err)
		return
	}

	if seekable {
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", strconv.FormatInt(plan.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	s.streamBody(w, r, plan, rc, 0)
}

// streamBody copies the opened stream to the client, tracking the session
// in the registry for the whole transfer. limit > 0 caps the copy for
// range responses; 0 streams to EOF. The reader is always closed here, so
// remux teardown runs on every exit path.
func (s *Server) streamBody(w http.ResponseWriter, r *http.Request, plan usecase.StreamPlan, rc io.ReadCloser, limit int64) {
	defer rc.Close()

	now := time.Now().UTC()
	state := domain.SessionState{
		ID:        uuid.NewString(),
		ContentID: plan.Catalog.ContentID,
		Title:     plan.Catalog.Title,
		Quality:   plan.Quality,
		Mode:      plan.Mode,
		HDR:       plan.HDR,
		ClientIP:  clientIP(r),
		StartedAt: now,
		UpdatedAt: now,
	}
	s.sessions.add(state)
	metrics.ActiveStreams.Set(float64(s.sessions.count()))
	metrics.StreamsStartedTotal.WithLabelValues(string(plan.Mode), string(plan.Quality)).Inc()
	if plan.Mode == domain.ModeRemux {
		metrics.RemuxProcessesActive.Inc()
	}
	s.broadcastSessions()

	var src io.Reader = rc
	if limit > 0 {
		src = io.LimitReader(rc, limit)
	}

	written, copyErr := s.copyFlush(w, src, state.ID)

	final, _ := s.sessions.remove(state.ID)
	final.BytesSent = written
	final.UpdatedAt = time.Now().UTC()
	metrics.ActiveStreams.Set(float64(s.sessions.count()))
	metrics.StreamBytesSentTotal.Add(float64(written))
	metrics.StreamDuration.Observe(time.Since(now).Seconds())
	if plan.Mode == domain.ModeRemux {
		metrics.RemuxProcessesActive.Dec()
	}
	s.broadcastSessions()

	switch {
	case copyErr == nil:
		s.logger.Debug("stream finished",
			slog.String("contentId", state.ContentID),
			slog.String("quality", string(state.Quality)),
			slog.String("mode", string(state.Mode)),
			slog.Int64("bytes", written))
	case r.Context().Err() != nil:
		// The client went away; normal for seeks and tab closes.
		s.logger.Debug("client disconnected",
			slog.String("contentId", state.ContentID),
			slog.Int64("bytes", written))
	default:
		metrics.StreamFailuresTotal.WithLabelValues("copy").Inc()
		s.logger.Warn("stream interrupted",
			slog.String("contentId", state.ContentID),
			slog.String("quality", string(state.Quality)),
			slog.String("mode", string(state.Mode)),
			slog.Int64("bytes", written),
			slog.Any("error", copyErr))
	}

	s.recordHistory(final, plan)
}

const streamCopyChunk = 64 * 1024

// copyFlush copies src to the client in chunks, flushing after each write
// so bytes reach the player as the pipeline produces them, and keeping the
// session registry's byte counter current.
func (s *Server) copyFlush(w http.ResponseWriter, src io.Reader, sessionID string) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, streamCopyChunk)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := w.Write(buf[:n])
			written += int64(wn)
			if wn > 0 {
				s.sessions.addBytes(sessionID, int64(wn))
			}
			if writeErr != nil {
				return written, writeErr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}

func (s *Server) writePlanError(w http.ResponseWriter, quality domain.Quality, err error) {
	switch {
	case errors.Is(err, usecase.ErrNoEncoding):
		writePlainError(w, http.StatusBadRequest,
			fmt.Sprintf("Requested quality %s is not available for this video", quality))
	case errors.Is(err, domain.ErrInvalidQuality):
		writePlainError(w, http.StatusBadRequest,
			"Invalid quality. Valid options are: "+validQualityList())
	case errors.Is(err, domain.ErrNotFound):
		writePlainError(w, http.StatusNotFound, "Video not found")
	default:
		s.logger.Error("resolve failed", slog.Any("error", err))
		metrics.StreamFailuresTotal.WithLabelValues("resolve").Inc()
		writePlainError(w, http.StatusInternalServerError,
			"An error occurred while processing the video")
	}
}

func (s *Server) writeOpenError(w http.ResponseWriter, plan usecase.StreamPlan, err error) {
	s.logger.Error("stream open failed",
		slog.String("contentId", plan.Catalog.ContentID),
		slog.String("mode", string(plan.Mode)),
		slog.Any("error", err))
	metrics.StreamFailuresTotal.WithLabelValues("open").Inc()
	// Upstream content failures are the client's problem: the video is
	// there but its tracks cannot be fetched. Only unexpected internal
	// causes stay a 500.
	if errors.Is(err, usecase.ErrSource) || errors.Is(err, usecase.ErrNoEncoding) {
		writePlainError(w, http.StatusBadRequest, err.Error())
		return
	}
	writePlainError(w, http.StatusInternalServerError,
		"An error occurred while processing the video")
}

// recordHistory persists the finished session. Runs against a detached
// context so a disconnecting client cannot cancel the write.
func (s *Server) recordHistory(state domain.SessionState, plan usecase.StreamPlan) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := domain.StreamRecord{
		ContentID: state.ContentID,
		Title:     state.Title,
		Author:    plan.Catalog.Author,
		Quality:   state.Quality,
		Mode:      state.Mode,
		HDR:       state.HDR,
		BytesSent: state.BytesSent,
		ClientIP:  state.ClientIP,
		StartedAt: state.StartedAt,
		UpdatedAt: state.UpdatedAt,
	}
	if err := s.history.Upsert(ctx, rec); err != nil {
		s.logger.Warn("history upsert failed",
			slog.String("contentId", state.ContentID),
			slog.Any("error", err))
	}
}

func (s *Server) broadcastSessions() {
	if s.wsHub != nil {
		s.wsHub.BroadcastSessions(s.sessions.list())
	}
}
