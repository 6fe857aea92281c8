package streaming

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
)

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 32<<10)
		return &b
	},
}

// copyStream copies src to dst, checking ctx between chunks. Read failures
// wrap ErrUpstreamRead and write failures wrap ErrEncoder.
func copyStream(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	bp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bp)
	buf := *bp

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, fmt.Errorf("%w: %w", ErrEncoder, werr)
			}
			if nw != nr {
				return written, fmt.Errorf("%w: %w", ErrEncoder, io.ErrShortWrite)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("%w: %w", ErrUpstreamRead, rerr)
		}
	}
}

// committedWriter remembers whether the status line has gone out.
type committedWriter struct {
	http.ResponseWriter
	committed bool
}

func (w *committedWriter) WriteHeader(code int) {
	w.committed = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *committedWriter) Write(p []byte) (int, error) {
	w.committed = true
	return w.ResponseWriter.Write(p)
}

func (w *committedWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		w.committed = true
		f.Flush()
	}
}

func (w *committedWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// clearDownloadHeaders undoes header setup for a download that never started,
// so the caller can answer with an error body instead.
func clearDownloadHeaders(h http.Header) {
	h.Del("Content-Disposition")
	h.Del("Content-Type")
	h.Del("Content-Length")
	h.Del("Content-Range")
}
