// Per-request structured logging.
package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"pkt.systems/pslog"
)

type requestInfoKey struct{}

// requestInfo lets inner middleware report fields back to RequestLogger.
type requestInfo struct {
	session string
}

func annotateSession(ctx context.Context, id string) {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		info.session = id
	}
}

// statusRecorder captures the status code and byte count written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int64
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	if w.statusCode == 0 {
		w.statusCode = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RequestLogger attaches a request-scoped pslog logger to the context and logs
// one line per request after the handler returns.
// Expected order in router: RequestID -> RealIP -> RequestLogger -> Recoverer.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := pslog.Ctx(r.Context())
		if reqID := chimw.GetReqID(r.Context()); reqID != "" {
			logger = logger.With("request_id", reqID)
		}

		info := &requestInfo{}
		ctx := context.WithValue(r.Context(), requestInfoKey{}, info)
		ctx = pslog.ContextWithLogger(ctx, logger)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))

		status := rec.statusCode
		if status == 0 {
			status = http.StatusOK
		}
		if info.session != "" {
			logger = logger.With("session", info.session)
		}
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
		)
	})
}
