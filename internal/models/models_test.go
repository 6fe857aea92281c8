package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBeforeCreateAssignsIDOnce(t *testing.T) {
	f := &File{}
	assert.NoError(t, f.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, f.ID)

	fixed := uuid.New()
	folder := &Folder{ID: fixed}
	assert.NoError(t, folder.BeforeCreate(nil))
	assert.Equal(t, fixed, folder.ID)
}

func TestSharedLinkHasPassword(t *testing.T) {
	empty := ""
	hash := "$2a$10$abcdefghijklmnopqrstuv"

	assert.False(t, (&SharedLink{}).HasPassword())
	assert.False(t, (&SharedLink{Password: &empty}).HasPassword())
	assert.True(t, (&SharedLink{Password: &hash}).HasPassword())
}

func TestFileContentTypeFallback(t *testing.T) {
	assert.Equal(t, "application/octet-stream", (&File{}).ContentType())
	assert.Equal(t, "image/jpeg", (&File{MimeType: "image/jpeg"}).ContentType())
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "a@example.com", (&User{Email: "a@example.com"}).DisplayName())
	assert.Equal(t, "Ada", (&User{Name: "Ada", Email: "a@example.com"}).DisplayName())
}
