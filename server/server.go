// Package server serves the translator over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"

	"github.com/sarchlab/bfasm/compiler"
	"github.com/sarchlab/bfasm/store"
)

// Media types accepted as Brainfuck source.
const (
	MediaBrainfuck = "text/x-brainfuck"
	MediaPlain     = "text/plain"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-Id"

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
)

// Compiler translates a program read from r into assembly written to w.
type Compiler interface {
	Compile(r io.Reader, w io.Writer) error
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(r io.Reader, w io.Writer) error

// Compile calls f(r, w).
func (f CompilerFunc) Compile(r io.Reader, w io.Writer) error {
	return f(r, w)
}

// Recorder keeps the compile history.
type Recorder interface {
	Record(ctx context.Context, r store.Record) error
	Recent(ctx context.Context, limit int) ([]store.Record, error)
}

// Server is the compile service.
type Server struct {
	router   *mux.Router
	compiler Compiler
	recorder Recorder
	logger   *slog.Logger
	maxBody  int64
	timeout  time.Duration

	started  time.Time
	compiles atomic.Uint64
	proc     *process.Process
}

// ServeHTTP dispatches a request to the routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.timeout,
		ReadTimeout:       s.timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "addr", ln.Addr().String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) routes() {
	s.router.Use(s.withRequestID)
	s.router.HandleFunc("/compile", s.handleCompile).Methods(http.MethodPost)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := xid.New().String()
		w.Header().Set(RequestIDHeader, id)

		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))

		s.logger.Info("request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || (mediaType != MediaBrainfuck && mediaType != MediaPlain) {
		http.Error(w, "content type must be "+MediaBrainfuck+" or "+MediaPlain,
			http.StatusUnsupportedMediaType)
		return
	}

	src, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "program too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var asm bytes.Buffer
	compileErr := s.compiler.Compile(bytes.NewReader(src), &asm)
	s.compiles.Add(1)
	s.record(r.Context(), src, compileErr)

	switch {
	case errors.Is(compileErr, compiler.ErrMalformed):
		http.Error(w, compileErr.Error(), http.StatusUnprocessableEntity)
		return
	case compileErr != nil:
		s.logger.Error("compile failed", "id", RequestID(r.Context()), "err", compileErr)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := listingPage.Execute(w, asm.String()); err != nil {
			s.logger.Warn("failed to write page", "id", RequestID(r.Context()), "err", err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="program.asm"`)
	if _, err := asm.WriteTo(w); err != nil {
		s.logger.Warn("failed to write listing", "id", RequestID(r.Context()), "err", err)
	}
}

func (s *Server) record(ctx context.Context, src []byte, compileErr error) {
	rec := store.NewRecord()
	rec.SourceBytes = len(src)
	rec.Loops = compiler.Analyze(src).Loops
	rec.OK = compileErr == nil
	if compileErr != nil {
		rec.Error = compileErr.Error()
	}

	if err := s.recorder.Record(ctx, rec); err != nil {
		s.logger.Warn("failed to record compilation", "id", RequestID(ctx), "err", err)
	}
}

// UserAgent is the kind of client behind a request.
type UserAgent int

// Client kinds.
const (
	Terminal UserAgent = iota
	Browser
)

// terminalAgents are product tokens of command-line HTTP clients.
var terminalAgents = []string{"curl/", "wget/", "httpie/", "go-http-client/"}

// ClassifyUserAgent guesses the client kind from a User-Agent header.
// Unknown clients are treated as terminals.
func ClassifyUserAgent(ua string) UserAgent {
	ua = strings.ToLower(strings.TrimSpace(ua))
	for _, prefix := range terminalAgents {
		if strings.HasPrefix(ua, prefix) {
			return Terminal
		}
	}
	if strings.HasPrefix(ua, "mozilla/") {
		return Browser
	}
	return Terminal
}

// wantsHTML reports whether the client should get a page. An explicit
// text/html or text/plain in Accept decides; otherwise browsers get a
// page and terminals get the listing.
func wantsHTML(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case "text/html":
			return true
		case MediaPlain:
			return false
		}
	}
	return ClassifyUserAgent(r.Header.Get("User-Agent")) == Browser
}

var listingPage = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>program.asm</title></head>
<body><pre>{{.}}</pre></body>
</html>
`))

// Status is the body of GET /status.
type Status struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	Compiles      uint64  `json:"compiles"`
	RSSBytes      uint64  `json:"rss_bytes,omitempty"`
	CPUPercent    float64 `json:"cpu_percent,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := Status{
		UptimeSeconds: time.Since(s.started).Seconds(),
		Compiles:      s.compiles.Load(),
	}

	if s.proc != nil {
		if mem, err := s.proc.MemoryInfo(); err == nil {
			st.RSSBytes = mem.RSS
		}
		if cpu, err := s.proc.CPUPercent(); err == nil {
			st.CPUPercent = cpu
		}
	}

	s.writeJSON(w, r, st)
}

// HistoryEntry is one element of the GET /history body.
type HistoryEntry struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	SourceBytes int       `json:"source_bytes"`
	Loops       int       `json:"loops"`
	OK          bool      `json:"ok"`
	Error       string    `json:"error,omitempty"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > maxHistoryLimit {
			http.Error(w, "limit must be between 1 and "+strconv.Itoa(maxHistoryLimit),
				http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.recorder.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read history", "id", RequestID(r.Context()), "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, HistoryEntry{
			ID:          rec.ID.String(),
			CreatedAt:   rec.CreatedAt.UTC(),
			SourceBytes: rec.SourceBytes,
			Loops:       rec.Loops,
			OK:          rec.OK,
			Error:       rec.Error,
		})
	}

	s.writeJSON(w, r, entries)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "id", RequestID(r.Context()), "err", err)
	}
}

func currentProcess() *process.Process {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil
	}
	return p
}
