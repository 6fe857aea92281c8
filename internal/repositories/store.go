package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rohits-web03/filepod/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrQuotaExceeded is returned when an upload would exceed the owner's quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrInvalidMove is returned when a folder would become its own ancestor.
	ErrInvalidMove = errors.New("folder cannot be moved into itself or a descendant")
)

// Store is the relational metadata store for users, folders, files and shared links.
// It is safe for concurrent use; gorm pools connections internally.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ---------- shared links ----------

// FindLinkByToken returns the link with its file, folder and owner preloaded.
func (s *Store) FindLinkByToken(ctx context.Context, token string) (*models.SharedLink, error) {
	var link models.SharedLink
	err := s.db.WithContext(ctx).
		Preload("File").
		Preload("Folder").
		Preload("User").
		Where("link_token = ?", token).
		First(&link).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &link, nil
}

func (s *Store) CreateLink(ctx context.Context, link *models.SharedLink) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		return fmt.Errorf("create shared link: %w", err)
	}
	return nil
}

// ListLinksByUser returns the links a user created, newest first.
func (s *Store) ListLinksByUser(ctx context.Context, userID uuid.UUID) ([]models.SharedLink, error) {
	var links []models.SharedLink
	err := s.db.WithContext(ctx).
		Preload("File").
		Preload("Folder").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("list shared links: %w", err)
	}
	return links, nil
}

func (s *Store) DeleteLink(ctx context.Context, userID, linkID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", linkID, userID).
		Delete(&models.SharedLink{})
	if res.Error != nil {
		return fmt.Errorf("delete shared link: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------- folders ----------

func (s *Store) FindFolderByID(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	var folder models.Folder
	if err := s.db.WithContext(ctx).First(&folder, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &folder, nil
}

func (s *Store) FindOwnedFolder(ctx context.Context, userID, id uuid.UUID) (*models.Folder, error) {
	var folder models.Folder
	err := s.db.WithContext(ctx).First(&folder, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &folder, nil
}

// ListSubfolders returns the direct child folders of folderID.
func (s *Store) ListSubfolders(ctx context.Context, folderID uuid.UUID) ([]models.Folder, error) {
	var folders []models.Folder
	err := s.db.WithContext(ctx).
		Where("parent_folder_id = ?", folderID).
		Order("created_at ASC").
		Find(&folders).Error
	if err != nil {
		return nil, fmt.Errorf("list subfolders of %s: %w", folderID, err)
	}
	return folders, nil
}

// ListRoot returns the folders and files a user keeps at the top level.
func (s *Store) ListRoot(ctx context.Context, userID uuid.UUID) ([]models.Folder, []models.File, error) {
	db := s.db.WithContext(ctx)

	var folders []models.Folder
	if err := db.Where("user_id = ? AND parent_folder_id IS NULL", userID).
		Order("created_at ASC").Find(&folders).Error; err != nil {
		return nil, nil, fmt.Errorf("list root folders: %w", err)
	}

	var files []models.File
	if err := db.Where("user_id = ? AND folder_id IS NULL", userID).
		Order("created_at ASC").Find(&files).Error; err != nil {
		return nil, nil, fmt.Errorf("list root files: %w", err)
	}
	return folders, files, nil
}

// ListFolder returns the direct children of a folder the user owns.
func (s *Store) ListFolder(ctx context.Context, userID, folderID uuid.UUID) ([]models.Folder, []models.File, error) {
	if _, err := s.FindOwnedFolder(ctx, userID, folderID); err != nil {
		return nil, nil, err
	}
	folders, err := s.ListSubfolders(ctx, folderID)
	if err != nil {
		return nil, nil, err
	}
	files, err := s.ListFilesInFolder(ctx, folderID)
	if err != nil {
		return nil, nil, err
	}
	return folders, files, nil
}

func (s *Store) CreateFolder(ctx context.Context, folder *models.Folder) error {
	if err := s.db.WithContext(ctx).Create(folder).Error; err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

func (s *Store) RenameFolder(ctx context.Context, folder *models.Folder, name string) error {
	if err := s.db.WithContext(ctx).Model(folder).Update("name", name).Error; err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}
	return nil
}

// IsAncestor reports whether ancestorID appears on the parent chain of folderID,
// folderID itself included. The walk stops after maxDepth hops.
func (s *Store) IsAncestor(ctx context.Context, ancestorID, folderID uuid.UUID, maxDepth int) (bool, error) {
	current := &folderID
	for hops := 0; current != nil && hops <= maxDepth; hops++ {
		if *current == ancestorID {
			return true, nil
		}
		folder, err := s.FindFolderByID(ctx, *current)
		if err != nil {
			return false, err
		}
		current = folder.ParentFolderID
	}
	return false, nil
}

// MoveFolder re-parents folder under parentID (nil moves it to the root).
func (s *Store) MoveFolder(ctx context.Context, folder *models.Folder, parentID *uuid.UUID, maxDepth int) error {
	if parentID != nil {
		cyclic, err := s.IsAncestor(ctx, folder.ID, *parentID, maxDepth)
		if err != nil {
			return err
		}
		if cyclic {
			return ErrInvalidMove
		}
	}
	if err := s.db.WithContext(ctx).Model(folder).Update("parent_folder_id", parentID).Error; err != nil {
		return fmt.Errorf("move folder: %w", err)
	}
	folder.ParentFolderID = parentID
	return nil
}

// DeleteFolderTree removes the given folders, the files inside them and every
// link pointing at either, and gives the files' bytes back to the owner's quota.
func (s *Store) DeleteFolderTree(ctx context.Context, userID uuid.UUID, folderIDs []uuid.UUID, files []models.File) error {
	fileIDs := lo.Map(files, func(f models.File, _ int) uuid.UUID { return f.ID })
	freed := lo.SumBy(files, func(f models.File) int64 { return f.SizeBytes })

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fileIDs) > 0 {
			if err := tx.Where("file_id IN ?", fileIDs).Delete(&models.SharedLink{}).Error; err != nil {
				return fmt.Errorf("delete file links: %w", err)
			}
			if err := tx.Where("id IN ? AND user_id = ?", fileIDs, userID).Delete(&models.File{}).Error; err != nil {
				return fmt.Errorf("delete files: %w", err)
			}
		}
		if len(folderIDs) > 0 {
			if err := tx.Where("folder_id IN ?", folderIDs).Delete(&models.SharedLink{}).Error; err != nil {
				return fmt.Errorf("delete folder links: %w", err)
			}
			if err := tx.Where("id IN ? AND user_id = ?", folderIDs, userID).Delete(&models.Folder{}).Error; err != nil {
				return fmt.Errorf("delete folders: %w", err)
			}
		}
		return releaseQuota(tx, userID, freed)
	})
}

// ---------- files ----------

func (s *Store) FindFileByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	var file models.File
	if err := s.db.WithContext(ctx).First(&file, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &file, nil
}

func (s *Store) FindOwnedFile(ctx context.Context, userID, id uuid.UUID) (*models.File, error) {
	var file models.File
	if err := s.db.WithContext(ctx).First(&file, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &file, nil
}

// ListFilesInFolder returns the files stored directly in folderID.
func (s *Store) ListFilesInFolder(ctx context.Context, folderID uuid.UUID) ([]models.File, error) {
	var files []models.File
	err := s.db.WithContext(ctx).
		Where("folder_id = ?", folderID).
		Order("created_at ASC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list files in %s: %w", folderID, err)
	}
	return files, nil
}

// CreateFile records an uploaded object and charges its size to the owner.
func (s *Store) CreateFile(ctx context.Context, file *models.File) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND storage_used_bytes + ? <= storage_quota_bytes", file.UserID, file.SizeBytes).
			Update("storage_used_bytes", gorm.Expr("storage_used_bytes + ?", file.SizeBytes))
		if res.Error != nil {
			return fmt.Errorf("charge quota: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrQuotaExceeded
		}
		if err := tx.Create(file).Error; err != nil {
			return fmt.Errorf("create file: %w", err)
		}
		return nil
	})
}

func (s *Store) RenameFile(ctx context.Context, file *models.File, name string) error {
	if err := s.db.WithContext(ctx).Model(file).Update("original_name", name).Error; err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

// MoveFile places file in folderID (nil moves it to the root).
func (s *Store) MoveFile(ctx context.Context, file *models.File, folderID *uuid.UUID) error {
	if err := s.db.WithContext(ctx).Model(file).Update("folder_id", folderID).Error; err != nil {
		return fmt.Errorf("move file: %w", err)
	}
	file.FolderID = folderID
	return nil
}

// DeleteFile removes the file row and its links, and releases its bytes from the quota.
func (s *Store) DeleteFile(ctx context.Context, file *models.File) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", file.ID).Delete(&models.SharedLink{}).Error; err != nil {
			return fmt.Errorf("delete file links: %w", err)
		}
		if err := tx.Delete(&models.File{}, "id = ?", file.ID).Error; err != nil {
			return fmt.Errorf("delete file: %w", err)
		}
		return releaseQuota(tx, file.UserID, file.SizeBytes)
	})
}

func releaseQuota(tx *gorm.DB, userID uuid.UUID, size int64) error {
	if size <= 0 {
		return nil
	}
	err := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("storage_used_bytes",
			gorm.Expr("CASE WHEN storage_used_bytes >= ? THEN storage_used_bytes - ? ELSE 0 END", size, size)).
		Error
	if err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	return nil
}

// ---------- users ----------

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// ---------- statistics ----------

type CategoryStat struct {
	Category  string `json:"category"`
	SizeBytes int64  `json:"sizeBytes"`
	Count     int    `json:"count"`
}

// StorageStats groups a user's files into coarse mime categories.
func (s *Store) StorageStats(ctx context.Context, userID uuid.UUID) ([]CategoryStat, error) {
	var rows []struct {
		MimeType  string
		SizeBytes int64
	}
	err := s.db.WithContext(ctx).Model(&models.File{}).
		Select("mime_type, size_bytes").
		Where("user_id = ?", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("storage stats: %w", err)
	}

	order := []string{"images", "videos", "audio", "documents", "other"}
	byCategory := make(map[string]*CategoryStat, len(order))
	for _, c := range order {
		byCategory[c] = &CategoryStat{Category: c}
	}
	for _, r := range rows {
		stat := byCategory[mimeCategory(r.MimeType)]
		stat.SizeBytes += r.SizeBytes
		stat.Count++
	}
	return lo.Map(order, func(c string, _ int) CategoryStat { return *byCategory[c] }), nil
}

func mimeCategory(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "images"
	case strings.HasPrefix(mime, "video/"):
		return "videos"
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	case strings.HasPrefix(mime, "text/"), mime == "application/pdf",
		strings.Contains(mime, "document"), strings.Contains(mime, "sheet"), strings.Contains(mime, "presentation"):
		return "documents"
	default:
		return "other"
	}
}
