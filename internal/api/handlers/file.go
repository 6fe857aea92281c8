package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rohits-web03/filepod/internal/logging"
	"github.com/rohits-web03/filepod/internal/models"
	"github.com/rohits-web03/filepod/internal/repositories"
	"github.com/rohits-web03/filepod/internal/utils"
)

const presignTTL = 15 * time.Minute

// multipart parts above this size spill to temporary files
const multipartMemory = 32 << 20

// UploadFile godoc
// @Summary Upload a file
// @Description Stores the file in the object store and charges its size to the caller's quota.
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Param folderId formData string false "Target folder ID (root when omitted)"
// @Success 201 {object} utils.Payload{data=models.File}
// @Failure 400 {object} utils.Payload
// @Failure 413 {object} utils.Payload
// @Router /api/v1/files [post]
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	logger := logging.WithContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.JSONError(w, http.StatusRequestEntityTooLarge, "File exceeds upload size limit")
			return
		}
		utils.JSONError(w, http.StatusBadRequest, "Invalid file upload form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	part, header, err := r.FormFile("file")
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer part.Close()

	name, ok := cleanName(filepath.Base(header.Filename))
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid file name")
		return
	}
	if header.Size > h.cfg.MaxUploadBytes {
		utils.JSONError(w, http.StatusRequestEntityTooLarge, "File exceeds upload size limit")
		return
	}

	var folderID *uuid.UUID
	if raw := r.FormValue("folderId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "Invalid folder id")
			return
		}
		if _, err := h.store.FindOwnedFolder(ctx, userID, id); err != nil {
			notFoundOr500(w, r, err, "Folder not found")
			return
		}
		folderID = &id
	}

	user, err := h.store.FindUserByID(ctx, userID)
	if err != nil {
		notFoundOr500(w, r, err, "User not found")
		return
	}
	if user.StorageUsedBytes+header.Size > user.StorageQuotaBytes {
		utils.JSONError(w, http.StatusRequestEntityTooLarge, "Storage quota exceeded")
		return
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), name)
	key, err := objectKey(userID, name)
	if err != nil {
		logger.Error("generate object key", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}
	if err := h.objects.Put(ctx, key, part, header.Size, contentType); err != nil {
		logger.Error("upload object", zap.String("key", key), zap.Error(err))
		utils.JSONError(w, http.StatusBadGateway, "Failed to store file")
		return
	}

	file := &models.File{
		OriginalName: name,
		Filename:     key,
		MimeType:     contentType,
		SizeBytes:    header.Size,
		FolderID:     folderID,
		UserID:       userID,
	}
	if err := h.store.CreateFile(ctx, file); err != nil {
		h.discardObject(r, key)
		if errors.Is(err, repositories.ErrQuotaExceeded) {
			utils.JSONError(w, http.StatusRequestEntityTooLarge, "Storage quota exceeded")
			return
		}
		logger.Error("record upload", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "Database insert failed")
		return
	}

	logger.Info("file uploaded", zap.String("file_id", file.ID.String()), zap.Int64("size", file.SizeBytes))
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "File uploaded",
		Data:    file,
	})
}

// objectKey names a new upload. The random part keeps keys unique across
// uploads of the same name, so an object is only ever written by one request.
func objectKey(userID uuid.UUID, name string) (string, error) {
	nonce, err := utils.GenerateSecureToken(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%d-%s-%s", userID, time.Now().UnixMilli(), nonce, name), nil
}

func detectContentType(declared, name string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// discardObject removes an object whose metadata could not be kept. Callers
// pass only keys their own request created.
func (h *Handler) discardObject(r *http.Request, key string) {
	if err := h.objects.Delete(r.Context(), key); err != nil {
		logging.WithContext(r.Context()).Warn("orphaned object", zap.String("key", key), zap.Error(err))
	}
}

// UpdateFile godoc
// @Summary Rename or move a file
// @Tags Files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} utils.Payload{data=models.File}
// @Failure 400 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/files/{id} [patch]
func (h *Handler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var input struct {
		OriginalName *string        `json:"originalName"`
		FolderID     json.RawMessage `json:"folderId"`
	}
	if !decodeJSON(w, r, &input, false) {
		return
	}
	move, folderID, err := optionalParent(input.FolderID)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid folder id")
		return
	}

	ctx := r.Context()
	file, err := h.store.FindOwnedFile(ctx, userID, id)
	if err != nil {
		notFoundOr500(w, r, err, "File not found")
		return
	}

	if input.OriginalName != nil {
		name, ok := cleanName(*input.OriginalName)
		if !ok {
			utils.JSONError(w, http.StatusBadRequest, "Invalid file name")
			return
		}
		if err := h.store.RenameFile(ctx, file, name); err != nil {
			notFoundOr500(w, r, err, "File not found")
			return
		}
		file.OriginalName = name
	}
	if move {
		if folderID != nil {
			if _, err := h.store.FindOwnedFolder(ctx, userID, *folderID); err != nil {
				notFoundOr500(w, r, err, "Folder not found")
				return
			}
		}
		if err := h.store.MoveFile(ctx, file, folderID); err != nil {
			notFoundOr500(w, r, err, "File not found")
			return
		}
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "File updated",
		Data:    file,
	})
}

// DeleteFile godoc
// @Summary Delete a file
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/files/{id} [delete]
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	file, err := h.store.FindOwnedFile(r.Context(), userID, id)
	if err != nil {
		notFoundOr500(w, r, err, "File not found")
		return
	}
	if err := h.store.DeleteFile(r.Context(), file); err != nil {
		notFoundOr500(w, r, err, "File not found")
		return
	}
	h.discardObject(r, file.Filename)

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "File deleted",
	})
}

// DownloadFile godoc
// @Summary Download one of my files
// @Tags Files
// @Produce octet-stream
// @Param id path string true "File ID"
// @Success 200 {file} binary
// @Failure 404 {object} utils.Payload
// @Router /api/v1/files/{id}/download [get]
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	file, err := h.store.FindOwnedFile(r.Context(), userID, id)
	if err != nil {
		notFoundOr500(w, r, err, "File not found")
		return
	}
	logger := logging.WithContext(r.Context()).With(zap.String("file_id", file.ID.String()))
	streamFailure(w, r, logger, h.composer.StreamFile(r.Context(), w, file))
}

// PresignFile godoc
// @Summary Get a temporary direct download URL
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/files/{id}/presign [get]
func (h *Handler) PresignFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	file, err := h.store.FindOwnedFile(r.Context(), userID, id)
	if err != nil {
		notFoundOr500(w, r, err, "File not found")
		return
	}
	url, err := h.objects.PresignGet(r.Context(), file.Filename, file.OriginalName, presignTTL)
	if err != nil {
		logging.WithContext(r.Context()).Error("presign download", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Presigned URL generated",
		Data: map[string]any{
			"url":       url,
			"expiresIn": int(presignTTL.Seconds()),
		},
	})
}
