// Package sharing resolves public link tokens into the file or folder tree they grant.
package sharing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rohits-web03/filepod/internal/logging"
	"github.com/rohits-web03/filepod/internal/metrics"
	"github.com/rohits-web03/filepod/internal/models"
	"github.com/rohits-web03/filepod/internal/repositories"
	"github.com/rohits-web03/filepod/internal/utils"
)

var (
	ErrNotFound      = errors.New("shared link not found")
	ErrUnauthorized  = errors.New("invalid share password")
	ErrTreeTooDeep   = errors.New("folder tree exceeds maximum depth")
	ErrInvalidTarget = errors.New("a shared link needs exactly one file or folder target")
)

// Repository is the metadata store as seen by the resolver.
type Repository interface {
	TreeSource
	FindLinkByToken(ctx context.Context, token string) (*models.SharedLink, error)
	FindFolderByID(ctx context.Context, id uuid.UUID) (*models.Folder, error)
	CreateLink(ctx context.Context, link *models.SharedLink) error
}

type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Payload is a resolved link. File is set for KindFile; Folder and Files for KindFolder.
type Payload struct {
	Kind   Kind
	Link   *models.SharedLink
	File   *models.File
	Folder *models.Folder
	Files  []models.File
}

// LinkMeta summarizes a link for its landing page. It never carries object keys.
type LinkMeta struct {
	Name              string    `json:"name"`
	Type              Kind      `json:"type"`
	PasswordProtected bool      `json:"passwordProtected"`
	OwnerName         string    `json:"ownerName"`
	SizeBytes         int64     `json:"sizeBytes"`
	FileCount         int       `json:"fileCount"`
	MimeType          string    `json:"mimeType,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

type Resolver struct {
	repo      Repository
	collector *Collector
}

func NewResolver(repo Repository, collector *Collector) *Resolver {
	return &Resolver{repo: repo, collector: collector}
}

// Resolve authenticates token and password and loads the shared target.
func (r *Resolver) Resolve(ctx context.Context, token, password string) (*Payload, error) {
	payload, err := r.resolve(ctx, token, password)
	switch {
	case err == nil:
		metrics.RecordShareResolution("ok")
	case errors.Is(err, ErrNotFound):
		metrics.RecordShareResolution("not_found")
	case errors.Is(err, ErrUnauthorized):
		metrics.RecordShareResolution("unauthorized")
	default:
		metrics.RecordShareResolution("error")
		logging.WithContext(ctx).Error("resolve shared link", logging.TokenPrefix(token), zap.Error(err))
	}
	return payload, err
}

func (r *Resolver) resolve(ctx context.Context, token, password string) (*Payload, error) {
	link, err := r.findLink(ctx, token)
	if err != nil {
		return nil, err
	}

	if link.HasPassword() {
		if password == "" {
			return nil, ErrUnauthorized
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*link.Password), []byte(password)); err != nil {
			return nil, ErrUnauthorized
		}
	}

	if link.FileID != nil && link.File != nil {
		return &Payload{Kind: KindFile, Link: link, File: link.File}, nil
	}

	if link.FolderID != nil {
		folder, err := r.folderOf(ctx, link)
		if err != nil {
			return nil, err
		}
		files, err := r.collector.Collect(ctx, folder.ID)
		if err != nil {
			return nil, fmt.Errorf("collect folder %s: %w", folder.ID, err)
		}
		return &Payload{Kind: KindFolder, Link: link, Folder: folder, Files: files}, nil
	}

	return nil, ErrNotFound
}

// ResolveMetadata describes the link without requiring its password.
func (r *Resolver) ResolveMetadata(ctx context.Context, token string) (*LinkMeta, error) {
	link, err := r.findLink(ctx, token)
	if err != nil {
		return nil, err
	}

	meta := &LinkMeta{
		PasswordProtected: link.HasPassword(),
		CreatedAt:         link.CreatedAt,
	}
	if link.User != nil {
		meta.OwnerName = link.User.DisplayName()
	}

	switch {
	case link.FileID != nil && link.File != nil:
		meta.Type = KindFile
		meta.Name = link.File.OriginalName
		meta.SizeBytes = link.File.SizeBytes
		meta.FileCount = 1
		meta.MimeType = link.File.ContentType()
	case link.FolderID != nil:
		folder, err := r.folderOf(ctx, link)
		if err != nil {
			return nil, err
		}
		tree, err := r.collector.Walk(ctx, folder.ID)
		if err != nil {
			return nil, fmt.Errorf("walk folder %s: %w", folder.ID, err)
		}
		meta.Type = KindFolder
		meta.Name = folder.Name
		meta.SizeBytes = tree.SizeBytes()
		meta.FileCount = len(tree.Files)
	default:
		return nil, ErrNotFound
	}
	return meta, nil
}

// Target names what a new link points at. Exactly one field must be set.
type Target struct {
	FileID   *uuid.UUID
	FolderID *uuid.UUID
}

// CreateLink mints a link for an owned file or folder. A non-empty password
// is stored as a bcrypt hash.
func (r *Resolver) CreateLink(ctx context.Context, userID uuid.UUID, target Target, password string) (*models.SharedLink, error) {
	if (target.FileID == nil) == (target.FolderID == nil) {
		return nil, ErrInvalidTarget
	}

	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	link := &models.SharedLink{
		LinkToken: token,
		FileID:    target.FileID,
		FolderID:  target.FolderID,
		UserID:    userID,
	}
	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash := string(hashed)
		link.Password = &hash
	}

	if err := r.repo.CreateLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (r *Resolver) findLink(ctx context.Context, token string) (*models.SharedLink, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	link, err := r.repo.FindLinkByToken(ctx, token)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find link: %w", err)
	}
	return link, nil
}

func (r *Resolver) folderOf(ctx context.Context, link *models.SharedLink) (*models.Folder, error) {
	if link.Folder != nil {
		return link.Folder, nil
	}
	folder, err := r.repo.FindFolderByID(ctx, *link.FolderID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find folder: %w", err)
	}
	return folder, nil
}
