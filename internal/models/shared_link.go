package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SharedLink grants token-addressable read access to exactly one file or folder.
type SharedLink struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	LinkToken string     `json:"linkToken" gorm:"uniqueIndex;not null"` // 64 hex chars
	Password  *string    `json:"-"`                                    // bcrypt hash
	FileID    *uuid.UUID `json:"fileId,omitempty" gorm:"type:uuid;index"`
	FolderID  *uuid.UUID `json:"folderId,omitempty" gorm:"type:uuid;index"`
	UserID    uuid.UUID  `json:"userId" gorm:"type:uuid;index;not null"`
	CreatedAt time.Time  `json:"createdAt" gorm:"autoCreateTime"`

	File   *File   `json:"-" gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE"`
	Folder *Folder `json:"-" gorm:"foreignKey:FolderID;constraint:OnDelete:CASCADE"`
	User   *User   `json:"-" gorm:"foreignKey:UserID"`
}

func (l *SharedLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// HasPassword reports whether a password must be supplied to use the link.
func (l *SharedLink) HasPassword() bool {
	return l.Password != nil && *l.Password != ""
}
