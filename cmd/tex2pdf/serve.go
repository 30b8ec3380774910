package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	tex2pdf "github.com/alnah/go-tex2pdf"
	"github.com/alnah/go-tex2pdf/internal/config"
	"github.com/alnah/go-tex2pdf/internal/logfields"
	"github.com/alnah/go-tex2pdf/internal/metrics"
)

// Server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
	// defaultRequestTimeout bounds a request when no compile timeout is set.
	defaultRequestTimeout = 5 * time.Minute
	// requestTimeoutSlack leaves room to stream the PDF after compiling.
	requestTimeoutSlack = 30 * time.Second
)

// allowedEngines are the engines a request may select with ?cmd=.
// The configured default engine is always allowed too.
var allowedEngines = []string{"pdflatex", "xelatex", "lualatex"}

// compileHandler serves POST /compile.
type compileHandler struct {
	pool    Pool
	cfg     *config.Config
	logger  *slog.Logger
	maxBody int64
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error       string   `json:"error"`
	Message     string   `json:"message"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	RequestID   string   `json:"request_id,omitempty"`
}

// newRouter wires routes and middleware.
func newRouter(h *compileHandler, metricsHandler http.Handler, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))
		r.Post("/compile", h.ServeHTTP)
	})

	return r
}

// ServeHTTP compiles the request body and streams the PDF back.
// Query parameters: passes (int), cmd (one of allowedEngines).
func (h *compileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := chimiddleware.GetReqID(r.Context())

	opts, err := h.requestOptions(r)
	if err != nil {
		h.fail(w, reqID, http.StatusBadRequest, "bad_request", err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, reqID, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.fail(w, reqID, http.StatusBadRequest, "bad_request", err)
		return
	}
	if len(body) == 0 {
		h.fail(w, reqID, http.StatusBadRequest, "bad_request", tex2pdf.ErrNoDocument)
		return
	}

	compiler, err := h.pool.Acquire(r.Context())
	if err != nil {
		h.fail(w, reqID, statusFor(err), categoryFor(err), err)
		return
	}
	defer h.pool.Release(compiler)

	pw := &pdfResponseWriter{w: w}
	if _, err := compiler.CompileTo(r.Context(), tex2pdf.FromString(string(body)), opts, pw); err != nil {
		if pw.wrote {
			h.logger.Warn("streaming PDF", slog.String("request_id", reqID), logfields.Error(err))
			return
		}
		h.fail(w, reqID, statusFor(err), categoryFor(err), err)
	}
}

// requestOptions builds compile options from config and query parameters.
func (h *compileHandler) requestOptions(r *http.Request) (tex2pdf.Options, error) {
	opts := compileOptions(h.cfg, "")
	q := r.URL.Query()

	if v := q.Get("passes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > config.MaxPasses {
			return opts, fmt.Errorf("%w: passes must be between 1 and %d, got %q", tex2pdf.ErrConfiguration, config.MaxPasses, v)
		}
		opts.Passes = n
	}
	if v := q.Get("cmd"); v != "" {
		if v != h.cfg.Compiler.Cmd && !slices.Contains(allowedEngines, v) {
			return opts, fmt.Errorf("%w: engine %q is not allowed", tex2pdf.ErrConfiguration, v)
		}
		opts.Cmd = v
	}
	return opts, nil
}

func (h *compileHandler) fail(w http.ResponseWriter, reqID string, status int, category string, err error) {
	resp := errorResponse{Error: category, Message: err.Error(), RequestID: reqID}
	var compErr *tex2pdf.CompilationError
	if errors.As(err, &compErr) {
		resp.Message = fmt.Sprintf("%s exited with status %d on pass %d", compErr.Cmd, compErr.ExitCode, compErr.Pass)
		resp.Diagnostics = compErr.Diagnostics
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("compile request failed", slog.String("request_id", reqID), logfields.Error(err))
	}
	writeJSON(w, status, resp)
}

// statusFor maps compile errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, tex2pdf.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, tex2pdf.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, tex2pdf.ErrCompilation), errors.Is(err, tex2pdf.ErrLogMissing):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// categoryFor names the error category in responses.
func categoryFor(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, tex2pdf.ErrPoolClosed):
		return "unavailable"
	case errors.Is(err, tex2pdf.ErrConfiguration):
		return "configuration"
	case errors.Is(err, tex2pdf.ErrCompilation):
		return "compilation"
	case errors.Is(err, tex2pdf.ErrLogMissing):
		return "log_missing"
	case errors.Is(err, tex2pdf.ErrLaunch):
		return "launch"
	case errors.Is(err, tex2pdf.ErrIO):
		return "io"
	default:
		return "internal"
	}
}

// pdfResponseWriter sets PDF headers on the first write.
type pdfResponseWriter struct {
	w     http.ResponseWriter
	wrote bool
}

func (p *pdfResponseWriter) Write(b []byte) (int, error) {
	if !p.wrote {
		p.wrote = true
		p.w.Header().Set("Content-Type", "application/pdf")
		p.w.WriteHeader(http.StatusOK)
	}
	return p.w.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs one line per request with slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				logfields.Path(r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				logfields.Duration(time.Since(start)),
			)
		})
	}
}

// requestTimeoutFor derives the per-request budget from the compile timeout.
func requestTimeoutFor(cfg *config.Config) time.Duration {
	if cfg.Compiler.Timeout <= 0 {
		return defaultRequestTimeout
	}
	return cfg.Compiler.Timeout + requestTimeoutSlack
}

// runServe serves the HTTP API until ctx is canceled.
func runServe(ctx context.Context, f *serveFlags, env *Environment, logger *slog.Logger) error {
	cfg := env.Config
	if f.changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if f.changed("max-body") {
		cfg.Server.MaxBodyBytes = f.maxBodyBytes
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = config.DefaultMaxBodyBytes
	}

	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	pool := tex2pdf.NewCompilerPool(tex2pdf.ResolvePoolSize(cfg.Workers),
		compilerOptions(cfg, logger, tex2pdf.WithRecorder(recorder))...)
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing compiler pool", logfields.Error(err))
		}
	}()

	handler := &compileHandler{
		pool:    &poolAdapter{pool: pool},
		cfg:     cfg,
		logger:  logger,
		maxBody: cfg.Server.MaxBodyBytes,
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr, err)
	}

	srv := &http.Server{
		Handler:           newRouter(handler, metrics.HTTPHandler(reg), requestTimeoutFor(cfg)),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	fmt.Fprintf(env.Stderr, "Listening on %s (%d workers)\n", ln.Addr(), pool.Size())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
