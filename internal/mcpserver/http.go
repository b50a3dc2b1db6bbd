package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"

	"github.com/nadigross/userbase/internal/dto"
	"github.com/nadigross/userbase/internal/logging"
)

const sessionHeader = "Mcp-Session-Id"

// HandlerOptions configures the HTTP surface around the MCP server.
type HandlerOptions struct {
	AllowedOrigins []string
	Sentry         bool
	// Health reports store status for GET /health. Nil disables the route.
	Health func(ctx context.Context) dto.HealthResponse
}

// NewHandler serves srv over the streamable HTTP transport at /mcp.
func NewHandler(srv *mcp.Server, log *slog.Logger, opts HandlerOptions) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return srv
	}, &mcp.StreamableHTTPOptions{JSONResponse: true}))

	if opts.Health != nil {
		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			resp := opts.Health(r.Context())
			status := http.StatusOK
			if resp.Status != "ok" {
				status = http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(resp)
		})
	}

	var h http.Handler = mux
	h = loggingMiddleware(h, log)
	if opts.Sentry {
		h = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(h)
	}
	h = rescueMiddleware(h, log)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Accept", sessionHeader, "Mcp-Protocol-Version", "Last-Event-ID"},
		ExposedHeaders: []string{sessionHeader},
	}).Handler(h)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Flush keeps server-sent event streams working through the wrapper.
func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func loggingMiddleware(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sessionID := r.Header.Get(sessionHeader)

		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		log.InfoContext(r.Context(), r.Method+" "+r.URL.Path,
			"method", r.Method,
			"path", r.URL.Path,
			"body", logging.LoggableBody(body),
			"query", r.URL.Query(),
			"ip", r.RemoteAddr,
			"session_id", sessionID,
		)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if r.Method == http.MethodDelete && sessionID != "" && rec.status < http.StatusBadRequest {
			log.InfoContext(r.Context(), "mcp session closed", "session_id", sessionID)
		}

		level := slog.LevelInfo
		switch {
		case rec.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case rec.status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		if sessionID == "" {
			sessionID = rec.Header().Get(sessionHeader)
		}
		log.Log(r.Context(), level, "response",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes_sent", rec.bytes,
			"session_id", sessionID,
			"latency_ms", float64(time.Since(start).Microseconds())/1000,
		)
	})
}

func rescueMiddleware(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				log.ErrorContext(r.Context(), "request panic",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", p,
					"stack", string(debug.Stack()),
				)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
