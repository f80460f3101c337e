package server

import (
	"log/slog"
	"time"

	"github.com/gorilla/mux"

	"github.com/sarchlab/bfasm/store"
)

// Builder creates a Server.
type Builder struct {
	compiler Compiler
	recorder Recorder
	logger   *slog.Logger
	maxBody  int64
	timeout  time.Duration
}

// WithCompiler sets the translator behind POST /compile.
func (b Builder) WithCompiler(c Compiler) Builder {
	b.compiler = c
	return b
}

// WithRecorder sets the history store.
func (b Builder) WithRecorder(r Recorder) Builder {
	b.recorder = r
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithMaxBody sets the largest accepted program in bytes.
func (b Builder) WithMaxBody(n int64) Builder {
	b.maxBody = n
	return b
}

// WithReadTimeout bounds the time spent reading a request.
func (b Builder) WithReadTimeout(d time.Duration) Builder {
	b.timeout = d
	return b
}

// Build creates the server. A compiler is required.
func (b Builder) Build() *Server {
	if b.compiler == nil {
		panic("server: compiler is required")
	}
	if b.recorder == nil {
		b.recorder = store.NewMemory(0)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.maxBody <= 0 {
		b.maxBody = 1 << 20
	}
	if b.timeout <= 0 {
		b.timeout = 10 * time.Second
	}

	s := &Server{
		router:   mux.NewRouter(),
		compiler: b.compiler,
		recorder: b.recorder,
		logger:   b.logger,
		maxBody:  b.maxBody,
		timeout:  b.timeout,
		started:  time.Now(),
		proc:     currentProcess(),
	}
	s.routes()

	return s
}
