package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rohits-web03/filepod/internal/logging"
)

const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(p []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(p)
	rec.bytes += int64(n)
	return n, err
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// Logger tags every request with an id, puts a request-scoped zap logger in
// its context and writes one access log line when the handler returns.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		logger := logging.L().With(zap.String("request_id", requestID))
		r = r.WithContext(logging.NewContext(r.Context(), logger))

		rec := &statusRecorder{
			ResponseWriter: w,
			status:         http.StatusOK,
		}

		defer func() {
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", redactPath(r.URL.Path)),
				zap.Int("status", rec.status),
				zap.Int64("bytes", rec.bytes),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_ip", PeerIP(r)),
			)
		}()

		next.ServeHTTP(rec, r)
	})
}

// redactPath shortens share tokens in /shared/ paths.
func redactPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/shared/")
	if !ok {
		return path
	}
	token, tail, _ := strings.Cut(rest, "/")
	if len(token) > 8 {
		token = token[:8] + "..."
	}
	if tail != "" {
		return "/shared/" + token + "/" + tail
	}
	return "/shared/" + token
}
