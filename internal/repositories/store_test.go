package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rohits-web03/filepod/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return NewStore(db)
}

func seedUser(t *testing.T, s *Store, quota int64) *models.User {
	t.Helper()
	u := &models.User{Email: uuid.NewString() + "@example.com", StorageQuotaBytes: quota}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedFolder(t *testing.T, s *Store, owner uuid.UUID, name string, parent *models.Folder) *models.Folder {
	t.Helper()
	f := &models.Folder{Name: name, UserID: owner}
	if parent != nil {
		f.ParentFolderID = &parent.ID
	}
	require.NoError(t, s.CreateFolder(context.Background(), f))
	return f
}

func seedFile(t *testing.T, s *Store, owner uuid.UUID, name string, size int64, folder *models.Folder) *models.File {
	t.Helper()
	f := &models.File{
		OriginalName: name,
		Filename:     owner.String() + "/" + uuid.NewString() + "-" + name,
		MimeType:     "image/jpeg",
		SizeBytes:    size,
		UserID:       owner,
	}
	if folder != nil {
		f.FolderID = &folder.ID
	}
	require.NoError(t, s.CreateFile(context.Background(), f))
	return f
}

func TestFindLinkByTokenPreloadsTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 1<<20)
	photos := seedFolder(t, s, user.ID, "Photos", nil)

	link := &models.SharedLink{LinkToken: "tok-folder", FolderID: &photos.ID, UserID: user.ID}
	require.NoError(t, s.CreateLink(ctx, link))

	got, err := s.FindLinkByToken(ctx, "tok-folder")
	require.NoError(t, err)
	require.NotNil(t, got.Folder)
	assert.Equal(t, "Photos", got.Folder.Name)
	assert.Nil(t, got.File)
	require.NotNil(t, got.User)
	assert.Equal(t, user.Email, got.User.Email)

	_, err = s.FindLinkByToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTreeQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 1<<20)
	photos := seedFolder(t, s, user.ID, "Photos", nil)
	y2024 := seedFolder(t, s, user.ID, "2024", photos)
	seedFile(t, s, user.ID, "a.jpg", 10, photos)
	seedFile(t, s, user.ID, "b.jpg", 20, y2024)
	seedFile(t, s, user.ID, "root.txt", 5, nil)

	subs, err := s.ListSubfolders(ctx, photos.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, y2024.ID, subs[0].ID)

	files, err := s.ListFilesInFolder(ctx, photos.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.jpg", files[0].OriginalName)

	folders, rootFiles, err := s.ListRoot(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, folders, 1)
	require.Len(t, rootFiles, 1)
	assert.Equal(t, "root.txt", rootFiles[0].OriginalName)
}

func TestCreateFileChargesQuota(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 100)

	seedFile(t, s, user.ID, "a.bin", 60, nil)

	over := &models.File{OriginalName: "b.bin", Filename: "k/b.bin", SizeBytes: 50, UserID: user.ID}
	assert.ErrorIs(t, s.CreateFile(ctx, over), ErrQuotaExceeded)

	got, err := s.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60), got.StorageUsedBytes)
}

func TestDeleteFileReleasesQuotaAndLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 1000)
	file := seedFile(t, s, user.ID, "a.bin", 300, nil)
	require.NoError(t, s.CreateLink(ctx, &models.SharedLink{LinkToken: "tok-file", FileID: &file.ID, UserID: user.ID}))

	require.NoError(t, s.DeleteFile(ctx, file))

	_, err := s.FindFileByID(ctx, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindLinkByToken(ctx, "tok-file")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.StorageUsedBytes)
}

func TestDeleteFolderTree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 1000)
	photos := seedFolder(t, s, user.ID, "Photos", nil)
	y2024 := seedFolder(t, s, user.ID, "2024", photos)
	a := seedFile(t, s, user.ID, "a.jpg", 100, photos)
	b := seedFile(t, s, user.ID, "b.jpg", 200, y2024)
	keep := seedFile(t, s, user.ID, "keep.txt", 50, nil)

	err := s.DeleteFolderTree(ctx, user.ID, []uuid.UUID{photos.ID, y2024.ID}, []models.File{*a, *b})
	require.NoError(t, err)

	_, err = s.FindFolderByID(ctx, y2024.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindFileByID(ctx, keep.ID)
	assert.NoError(t, err)

	got, err := s.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.StorageUsedBytes)
}

func TestMoveFolderRejectsCycles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 1000)
	a := seedFolder(t, s, user.ID, "a", nil)
	b := seedFolder(t, s, user.ID, "b", a)
	c := seedFolder(t, s, user.ID, "c", b)

	assert.ErrorIs(t, s.MoveFolder(ctx, a, &c.ID, 64), ErrInvalidMove)
	assert.ErrorIs(t, s.MoveFolder(ctx, a, &a.ID, 64), ErrInvalidMove)

	require.NoError(t, s.MoveFolder(ctx, c, nil, 64))
	moved, err := s.FindFolderByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, moved.ParentFolderID)
}

func TestDeleteLinkScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, 1000)
	other := seedUser(t, s, 1000)
	file := seedFile(t, s, owner.ID, "a.bin", 1, nil)
	link := &models.SharedLink{LinkToken: "tok", FileID: &file.ID, UserID: owner.ID}
	require.NoError(t, s.CreateLink(ctx, link))

	assert.ErrorIs(t, s.DeleteLink(ctx, other.ID, link.ID), ErrNotFound)

	links, err := s.ListLinksByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.NotNil(t, links[0].File)

	assert.NoError(t, s.DeleteLink(ctx, owner.ID, link.ID))
}

func TestStorageStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, 1000)
	seedFile(t, s, user.ID, "a.jpg", 10, nil)
	seedFile(t, s, user.ID, "b.jpg", 15, nil)

	stats, err := s.StorageStats(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, stats, 5)
	assert.Equal(t, CategoryStat{Category: "images", SizeBytes: 25, Count: 2}, stats[0])
	assert.Equal(t, 0, stats[4].Count)
}

func TestMimeCategory(t *testing.T) {
	assert.Equal(t, "videos", mimeCategory("video/mp4"))
	assert.Equal(t, "documents", mimeCategory("application/pdf"))
	assert.Equal(t, "documents", mimeCategory("application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
	assert.Equal(t, "other", mimeCategory("application/zip"))
}

func TestListFolderScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, 1<<20)
	other := seedUser(t, s, 1<<20)
	docs := seedFolder(t, s, owner.ID, "docs", nil)
	seedFolder(t, s, owner.ID, "drafts", docs)
	seedFile(t, s, owner.ID, "cv.pdf", 10, docs)

	folders, files, err := s.ListFolder(ctx, owner.ID, docs.ID)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "drafts", folders[0].Name)
	require.Len(t, files, 1)
	assert.Equal(t, "cv.pdf", files[0].OriginalName)

	_, _, err = s.ListFolder(ctx, other.ID, docs.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoveFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, 1<<20)
	docs := seedFolder(t, s, owner.ID, "docs", nil)
	file := seedFile(t, s, owner.ID, "cv.pdf", 10, nil)

	require.NoError(t, s.MoveFile(ctx, file, &docs.ID))
	files, err := s.ListFilesInFolder(ctx, docs.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, file.ID, files[0].ID)

	require.NoError(t, s.MoveFile(ctx, file, nil))
	_, rootFiles, err := s.ListRoot(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, rootFiles, 1)
}
