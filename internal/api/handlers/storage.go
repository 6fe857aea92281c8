package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rohits-web03/filepod/internal/logging"
	"github.com/rohits-web03/filepod/internal/models"
	"github.com/rohits-web03/filepod/internal/repositories"
	"github.com/rohits-web03/filepod/internal/sharing"
	"github.com/rohits-web03/filepod/internal/utils"
)

type folderListing struct {
	Folder  *models.Folder  `json:"folder,omitempty"`
	Folders []models.Folder `json:"folders"`
	Files   []models.File   `json:"files"`
}

type storageStats struct {
	UsedBytes  int64                       `json:"usedBytes"`
	QuotaBytes int64                       `json:"quotaBytes"`
	Categories []repositories.CategoryStat `json:"categories"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// GetMyStorage godoc
// @Summary List my top-level folders and files
// @Tags Storage
// @Produce json
// @Success 200 {object} utils.Payload{data=folderListing}
// @Router /api/v1/my-storage [get]
func (h *Handler) GetMyStorage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	folders, files, err := h.store.ListRoot(r.Context(), userID)
	if err != nil {
		notFoundOr500(w, r, err, "Storage not found")
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Storage retrieved",
		Data:    folderListing{Folders: nonNil(folders), Files: nonNil(files)},
	})
}

// GetFolderContents godoc
// @Summary List a folder's direct children
// @Tags Storage
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} utils.Payload{data=folderListing}
// @Failure 404 {object} utils.Payload
// @Router /api/v1/my-storage/{id} [get]
func (h *Handler) GetFolderContents(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	folder, err := h.store.FindOwnedFolder(r.Context(), userID, id)
	if err != nil {
		notFoundOr500(w, r, err, "Folder not found")
		return
	}
	folders, files, err := h.store.ListFolder(r.Context(), userID, id)
	if err != nil {
		notFoundOr500(w, r, err, "Folder not found")
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Folder retrieved",
		Data:    folderListing{Folder: folder, Folders: nonNil(folders), Files: nonNil(files)},
	})
}

// GetStorageStats godoc
// @Summary Storage usage by category
// @Tags Storage
// @Produce json
// @Success 200 {object} utils.Payload{data=storageStats}
// @Router /api/v1/my-storage/stats [get]
func (h *Handler) GetStorageStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.store.FindUserByID(r.Context(), userID)
	if err != nil {
		notFoundOr500(w, r, err, "User not found")
		return
	}
	categories, err := h.store.StorageStats(r.Context(), userID)
	if err != nil {
		notFoundOr500(w, r, err, "User not found")
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Storage stats retrieved",
		Data: storageStats{
			UsedBytes:  user.StorageUsedBytes,
			QuotaBytes: user.StorageQuotaBytes,
			Categories: categories,
		},
	})
}

// CreateFolder godoc
// @Summary Create a folder
// @Tags Folders
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload{data=models.Folder}
// @Failure 400 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/folders [post]
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var input struct {
		Name           string     `json:"name"`
		ParentFolderID *uuid.UUID `json:"parentFolderId"`
		Color          *string    `json:"color"`
	}
	if !decodeJSON(w, r, &input, false) {
		return
	}
	name, ok := cleanName(input.Name)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid folder name")
		return
	}

	if input.ParentFolderID != nil {
		if _, err := h.store.FindOwnedFolder(r.Context(), userID, *input.ParentFolderID); err != nil {
			notFoundOr500(w, r, err, "Parent folder not found")
			return
		}
	}

	folder := &models.Folder{
		Name:           name,
		ParentFolderID: input.ParentFolderID,
		UserID:         userID,
		Color:          input.Color,
	}
	if err := h.store.CreateFolder(r.Context(), folder); err != nil {
		logging.WithContext(r.Context()).Error("create folder", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "Database insert failed")
		return
	}
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Folder created",
		Data:    folder,
	})
}

// UpdateFolder godoc
// @Summary Rename or move a folder
// @Description parentFolderId null moves the folder to the root.
// @Tags Folders
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} utils.Payload{data=models.Folder}
// @Failure 400 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Failure 409 {object} utils.Payload
// @Router /api/v1/folders/{id} [patch]
func (h *Handler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var input struct {
		Name           *string         `json:"name"`
		ParentFolderID json.RawMessage `json:"parentFolderId"`
	}
	if !decodeJSON(w, r, &input, false) {
		return
	}
	move, parentID, err := optionalParent(input.ParentFolderID)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid parent folder id")
		return
	}

	ctx := r.Context()
	folder, err := h.store.FindOwnedFolder(ctx, userID, id)
	if err != nil {
		notFoundOr500(w, r, err, "Folder not found")
		return
	}

	if input.Name != nil {
		name, ok := cleanName(*input.Name)
		if !ok {
			utils.JSONError(w, http.StatusBadRequest, "Invalid folder name")
			return
		}
		if err := h.store.RenameFolder(ctx, folder, name); err != nil {
			notFoundOr500(w, r, err, "Folder not found")
			return
		}
		folder.Name = name
	}

	if move {
		if parentID != nil {
			if _, err := h.store.FindOwnedFolder(ctx, userID, *parentID); err != nil {
				notFoundOr500(w, r, err, "Parent folder not found")
				return
			}
		}
		err := h.store.MoveFolder(ctx, folder, parentID, h.cfg.MaxFolderDepth)
		if errors.Is(err, repositories.ErrInvalidMove) {
			utils.JSONError(w, http.StatusConflict, "A folder cannot be moved into itself")
			return
		}
		if err != nil {
			notFoundOr500(w, r, err, "Folder not found")
			return
		}
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Folder updated",
		Data:    folder,
	})
}

// DeleteFolder godoc
// @Summary Delete a folder and everything inside it
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/folders/{id} [delete]
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	folder, err := h.store.FindOwnedFolder(ctx, userID, id)
	if err != nil {
		notFoundOr500(w, r, err, "Folder not found")
		return
	}

	tree, err := h.collector.Walk(ctx, folder.ID)
	if err != nil {
		if errors.Is(err, sharing.ErrTreeTooDeep) {
			utils.JSONError(w, http.StatusUnprocessableEntity, "Folder is nested too deeply")
			return
		}
		notFoundOr500(w, r, err, "Folder not found")
		return
	}
	if err := h.store.DeleteFolderTree(ctx, userID, tree.FolderIDs, tree.Files); err != nil {
		notFoundOr500(w, r, err, "Folder not found")
		return
	}
	for _, f := range tree.Files {
		h.discardObject(r, f.Filename)
	}

	logging.WithContext(ctx).Info("folder deleted",
		zap.String("folder_id", folder.ID.String()),
		zap.Int("folders", len(tree.FolderIDs)),
		zap.Int("files", len(tree.Files)))
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Folder deleted",
		Data: map[string]int{
			"deletedFolders": len(tree.FolderIDs),
			"deletedFiles":   len(tree.Files),
		},
	})
}
