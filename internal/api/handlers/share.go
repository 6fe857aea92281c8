package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/rohits-web03/filepod/internal/logging"
	"github.com/rohits-web03/filepod/internal/models"
	"github.com/rohits-web03/filepod/internal/objectstore"
	"github.com/rohits-web03/filepod/internal/repositories"
	"github.com/rohits-web03/filepod/internal/sharing"
	"github.com/rohits-web03/filepod/internal/streaming"
	"github.com/rohits-web03/filepod/internal/utils"
)

// SharePasswordHeader is the header alternative to the ?password= query.
const SharePasswordHeader = "X-Share-Password"

type shareRequest struct {
	Password string `json:"password"`
}

type shareResponse struct {
	LinkToken string `json:"linkToken"`
	ShareURL  string `json:"shareUrl"`
}

type linkResponse struct {
	ID                uuid.UUID    `json:"id"`
	LinkToken         string       `json:"linkToken"`
	ShareURL          string       `json:"shareUrl"`
	Type              sharing.Kind `json:"type"`
	Name              string       `json:"name"`
	PasswordProtected bool         `json:"passwordProtected"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// GetSharedContent godoc
// @Summary Open a shared link
// @Description Streams the shared file or a ZIP of the shared folder. Password-protected links without a password render an HTML landing page when Accept names text/html and answer 401 JSON otherwise, including for Accept: */*. Errors follow the same negotiation.
// @Tags Share
// @Produce octet-stream
// @Param token path string true "Link token"
// @Param password query string false "Link password"
// @Param X-Share-Password header string false "Link password"
// @Success 200 {file} binary
// @Failure 401 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /shared/{token} [get]
func (h *Handler) GetSharedContent(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	password := r.URL.Query().Get("password")
	if password == "" {
		password = r.Header.Get(SharePasswordHeader)
	}

	payload, err := h.resolver.Resolve(r.Context(), token, password)
	if errors.Is(err, sharing.ErrUnauthorized) && password == "" {
		h.passwordRequired(w, r, token, "")
		return
	}
	if err != nil {
		resolveFailure(w, r, err)
		return
	}
	h.deliver(w, r, payload)
}

// DownloadShared godoc
// @Summary Download a password-protected shared link
// @Tags Share
// @Accept x-www-form-urlencoded
// @Produce octet-stream
// @Param token path string true "Link token"
// @Param password formData string true "Link password"
// @Success 200 {file} binary
// @Failure 401 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /shared/{token}/download [post]
func (h *Handler) DownloadShared(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := r.ParseForm(); err != nil {
		shareFailure(w, r, http.StatusBadRequest, "Bad request", "Invalid form")
		return
	}
	password := r.PostFormValue("password")

	payload, err := h.resolver.Resolve(r.Context(), token, password)
	if errors.Is(err, sharing.ErrUnauthorized) && wantsHTML(r) {
		h.passwordRequired(w, r, token, "Incorrect password")
		return
	}
	if err != nil {
		resolveFailure(w, r, err)
		return
	}
	h.deliver(w, r, payload)
}

// GetSharedInfo godoc
// @Summary Describe a shared link
// @Description Returns name, type, size and owner without requiring the password.
// @Tags Share
// @Produce json
// @Param token path string true "Link token"
// @Success 200 {object} utils.Payload{data=sharing.LinkMeta}
// @Failure 404 {object} utils.Payload
// @Router /shared/{token}/info [get]
func (h *Handler) GetSharedInfo(w http.ResponseWriter, r *http.Request) {
	meta, err := h.resolver.ResolveMetadata(r.Context(), r.PathValue("token"))
	if err != nil {
		resolveFailure(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Link found",
		Data:    meta,
	})
}

func (h *Handler) passwordRequired(w http.ResponseWriter, r *http.Request, token, message string) {
	if !wantsHTML(r) {
		utils.JSONError(w, http.StatusUnauthorized, "Password required")
		return
	}
	meta, err := h.resolver.ResolveMetadata(r.Context(), token)
	if err != nil {
		resolveFailure(w, r, err)
		return
	}
	status := http.StatusOK
	if message != "" {
		status = http.StatusUnauthorized
	}
	renderPage(w, r, status, landingPage, landingData{
		Title:  meta.Name,
		Meta:   meta,
		Action: "/shared/" + token + "/download",
		Error:  message,
	})
}

func resolveFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sharing.ErrNotFound):
		shareFailure(w, r, http.StatusNotFound, "Link not found", "This link does not exist or has been removed.")
	case errors.Is(err, sharing.ErrUnauthorized):
		shareFailure(w, r, http.StatusUnauthorized, "Wrong password", "Invalid password")
	case errors.Is(err, sharing.ErrTreeTooDeep):
		shareFailure(w, r, http.StatusUnprocessableEntity, "Folder too deep", "This folder is nested too deeply to download.")
	default:
		shareFailure(w, r, http.StatusInternalServerError, "Something went wrong", "Could not open this link.")
	}
}

// deliver streams a resolved payload. Once the response has started, a
// failure can only be signalled by aborting the connection.
func (h *Handler) deliver(w http.ResponseWriter, r *http.Request, payload *sharing.Payload) {
	ctx := r.Context()
	logger := logging.WithContext(ctx).With(logging.TokenPrefix(payload.Link.LinkToken))

	var err error
	switch payload.Kind {
	case sharing.KindFile:
		err = h.composer.StreamFile(ctx, w, payload.File)
	case sharing.KindFolder:
		var report streaming.ArchiveReport
		report, err = h.composer.StreamFolder(ctx, w, payload.Folder, payload.Files)
		if len(report.Skipped) > 0 {
			logger.Warn("folder archive incomplete",
				zap.Int("entries", report.Entries),
				zap.Int("skipped", len(report.Skipped)))
		}
	}
	streamFailure(w, r, logger, err)
}

// streamFailure reports a delivery error from the composer.
func streamFailure(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Info("client went away during download", zap.Error(err))
		if streaming.IsCommitted(err) {
			panic(http.ErrAbortHandler)
		}
		return
	}
	logger.Error("download failed", zap.Error(err), zap.Bool("committed", streaming.IsCommitted(err)))
	if streaming.IsCommitted(err) {
		panic(http.ErrAbortHandler)
	}
	if errors.Is(err, objectstore.ErrNotFound) {
		shareFailure(w, r, http.StatusNotFound, "File missing", "The file content is no longer available.")
		return
	}
	shareFailure(w, r, http.StatusInternalServerError, "Download failed", "Could not deliver this download.")
}

// ShareFile godoc
// @Summary Create a shared link for a file
// @Tags Share
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param body body shareRequest false "Optional password"
// @Success 201 {object} utils.Payload{data=shareResponse}
// @Failure 404 {object} utils.Payload
// @Router /api/v1/files/{id}/share [post]
func (h *Handler) ShareFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var input shareRequest
	if !decodeJSON(w, r, &input, true) {
		return
	}

	file, err := h.store.FindOwnedFile(r.Context(), userID, id)
	if err != nil {
		notFoundOr500(w, r, err, "File not found")
		return
	}
	h.createLink(w, r, userID, sharing.Target{FileID: &file.ID}, input.Password)
}

// ShareFolder godoc
// @Summary Create a shared link for a folder
// @Tags Share
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Param body body shareRequest false "Optional password"
// @Success 201 {object} utils.Payload{data=shareResponse}
// @Failure 404 {object} utils.Payload
// @Router /api/v1/folders/{id}/share [post]
func (h *Handler) ShareFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var input shareRequest
	if !decodeJSON(w, r, &input, true) {
		return
	}

	folder, err := h.store.FindOwnedFolder(r.Context(), userID, id)
	if err != nil {
		notFoundOr500(w, r, err, "Folder not found")
		return
	}
	h.createLink(w, r, userID, sharing.Target{FolderID: &folder.ID}, input.Password)
}

func (h *Handler) createLink(w http.ResponseWriter, r *http.Request, userID uuid.UUID, target sharing.Target, password string) {
	link, err := h.resolver.CreateLink(r.Context(), userID, target, password)
	if err != nil {
		logging.WithContext(r.Context()).Error("create shared link", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "Failed to create link")
		return
	}
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Link created",
		Data: shareResponse{
			LinkToken: link.LinkToken,
			ShareURL:  h.shareURL(link.LinkToken),
		},
	})
}

// ListLinks godoc
// @Summary List my shared links
// @Tags Share
// @Produce json
// @Success 200 {object} utils.Payload{data=[]linkResponse}
// @Router /api/v1/links [get]
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	links, err := h.store.ListLinksByUser(r.Context(), userID)
	if err != nil {
		logging.WithContext(r.Context()).Error("list links", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "Database query failed")
		return
	}

	data := lo.Map(links, func(l models.SharedLink, _ int) linkResponse {
		resp := linkResponse{
			ID:                l.ID,
			LinkToken:         l.LinkToken,
			ShareURL:          h.shareURL(l.LinkToken),
			PasswordProtected: l.HasPassword(),
			CreatedAt:         l.CreatedAt,
		}
		switch {
		case l.File != nil:
			resp.Type, resp.Name = sharing.KindFile, l.File.OriginalName
		case l.Folder != nil:
			resp.Type, resp.Name = sharing.KindFolder, l.Folder.Name
		}
		return resp
	})
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Links retrieved",
		Data:    data,
	})
}

// DeleteLink godoc
// @Summary Revoke a shared link
// @Tags Share
// @Produce json
// @Param id path string true "Link ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/links/{id} [delete]
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteLink(r.Context(), userID, id); err != nil {
		notFoundOr500(w, r, err, "Link not found")
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Link revoked",
	})
}

func notFoundOr500(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, repositories.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, message)
		return
	}
	logging.WithContext(r.Context()).Error("database error", zap.Error(err))
	utils.JSONError(w, http.StatusInternalServerError, "Database query failed")
}
