package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/rohits-web03/filepod/internal/logging"
	"github.com/rohits-web03/filepod/internal/streaming"
	"github.com/rohits-web03/filepod/internal/utils"
)

// ServeMedia godoc
// @Summary Stream a stored object
// @Description Serves any object key with HTTP Range support for audio and video players.
// @Tags Media
// @Produce octet-stream
// @Param path path string true "Object key"
// @Param Range header string false "Byte range, e.g. bytes=0-1023"
// @Success 200 {file} binary
// @Success 206 {file} binary
// @Failure 404 {object} utils.Payload
// @Failure 416 {object} utils.Payload
// @Router /media/{path} [get]
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.PathValue("path"), "/")
	if key == "" || strings.Contains(key, "..") {
		utils.JSONError(w, http.StatusNotFound, "Media not found")
		return
	}

	err := h.media.Serve(r.Context(), w, key, r.Header.Get("Range"))
	if err == nil {
		return
	}
	logging.WithContext(r.Context()).Warn("media stream interrupted", zap.String("key", key), zap.Error(err))
	if streaming.IsCommitted(err) {
		panic(http.ErrAbortHandler)
	}
}
