package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type File struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	OriginalName string     `json:"originalName" gorm:"not null"`
	Filename     string     `json:"-" gorm:"uniqueIndex;not null"` // object store key
	MimeType     string     `json:"mimeType"`
	SizeBytes    int64      `json:"sizeBytes" gorm:"not null"`
	FolderID     *uuid.UUID `json:"folderId" gorm:"type:uuid;index"` // nil means root
	UserID       uuid.UUID  `json:"userId" gorm:"type:uuid;index;not null"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"autoCreateTime"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// ContentType falls back to application/octet-stream when no type was recorded.
func (f *File) ContentType() string {
	if f.MimeType == "" {
		return "application/octet-stream"
	}
	return f.MimeType
}
