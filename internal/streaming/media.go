package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/rohits-web03/filepod/internal/logging"
	"github.com/rohits-web03/filepod/internal/metrics"
	"github.com/rohits-web03/filepod/internal/objectstore"
	"github.com/rohits-web03/filepod/internal/utils"
)

// Media serves stored objects by key with byte-range support.
type Media struct {
	store objectstore.Reader
}

func NewMedia(store objectstore.Reader) *Media {
	return &Media{store: store}
}

// Serve answers a media request for key. Failures before the body starts are
// answered directly (404 or 416) and Serve returns nil; a non-nil error means
// the body was cut short after the status line went out.
func (m *Media) Serve(ctx context.Context, w http.ResponseWriter, key, rangeHeader string) error {
	logger := logging.WithContext(ctx).With(zap.String("key", key))

	info, err := m.store.Stat(ctx, key)
	if err != nil {
		if !errors.Is(err, objectstore.ErrNotFound) {
			logger.Error("stat media object", zap.Error(err))
		}
		utils.JSONError(w, http.StatusNotFound, "Media not found")
		return nil
	}

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("X-Content-Type-Options", "nosniff")
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	br, result := ParseRange(rangeHeader, info.Size)
	if result == RangeUnsatisfiable {
		h.Set("Content-Range", "bytes */"+strconv.FormatInt(info.Size, 10))
		utils.JSONError(w, http.StatusRequestedRangeNotSatisfiable, "Requested range not satisfiable")
		return nil
	}

	status := http.StatusOK
	var body io.ReadCloser
	if result == RangeOK {
		body, err = m.store.GetPartial(ctx, key, br.Start, br.Length())
	} else {
		body, err = m.store.Get(ctx, key)
	}
	if err != nil {
		logger.Error("open media object", zap.Error(err))
		utils.JSONError(w, http.StatusNotFound, "Media not found")
		return nil
	}
	defer body.Close()

	h.Set("Content-Type", contentType)
	if result == RangeOK {
		status = http.StatusPartialContent
		h.Set("Content-Range", br.ContentRange(info.Size))
		h.Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	} else {
		h.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(status)

	n, err := copyStream(ctx, w, body)
	metrics.RecordBytesStreamed("media", n)
	if err != nil {
		return &Error{Op: "stream media", Committed: true, Err: err}
	}
	return nil
}
