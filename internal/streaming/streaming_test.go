package streaming

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohits-web03/filepod/internal/models"
	"github.com/rohits-web03/filepod/internal/objectstore"
)

// brokenStore serves a few bytes of key and then fails the read.
type brokenStore struct {
	*objectstore.Memory
	key    string
	prefix string
	err    error
}

func (s *brokenStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == s.key {
		return io.NopCloser(io.MultiReader(strings.NewReader(s.prefix), iotest.ErrReader(s.err))), nil
	}
	return s.Memory.Get(ctx, key)
}

// closedClient is a response writer whose peer has gone away.
type closedClient struct {
	header http.Header
}

func (c *closedClient) Header() http.Header { return c.header }

func (c *closedClient) WriteHeader(int) {}

func (c *closedClient) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func storedFile(store *objectstore.Memory, name string, data []byte) models.File {
	f := models.File{
		ID:           uuid.New(),
		OriginalName: name,
		Filename:     "owner/1700000000-" + name,
		MimeType:     "image/jpeg",
		SizeBytes:    int64(len(data)),
		CreatedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	store.PutBytes(f.Filename, data, f.MimeType)
	return f
}

func readArchive(t *testing.T, body []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	out := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = string(data)
	}
	return out
}

func TestStreamFileIsByteIdentical(t *testing.T) {
	store := objectstore.NewMemory()
	data := bytes.Repeat([]byte{0, 1, 2, 250, 'x'}, 20000)
	file := storedFile(store, "holiday photo.jpg", data)

	rec := httptest.NewRecorder()
	err := NewComposer(store).StreamFile(context.Background(), rec, &file)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, data, rec.Body.Bytes())
	assert.Equal(t, `attachment; filename="holiday photo.jpg"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "100000", rec.Header().Get("Content-Length"))
}

func TestStreamFileLengthFollowsStoredObject(t *testing.T) {
	for _, recorded := range []int64{0, 3, 500} {
		store := objectstore.NewMemory()
		file := storedFile(store, "notes.txt", []byte("twelve bytes"))
		file.SizeBytes = recorded

		rec := httptest.NewRecorder()
		require.NoError(t, NewComposer(store).StreamFile(context.Background(), rec, &file))
		assert.Equal(t, "12", rec.Header().Get("Content-Length"), "recorded size %d", recorded)
		assert.Equal(t, "twelve bytes", rec.Body.String())
	}
}

func TestStreamFileMissingObject(t *testing.T) {
	store := objectstore.NewMemory()
	file := models.File{ID: uuid.New(), OriginalName: "gone.txt", Filename: "owner/gone.txt"}

	rec := httptest.NewRecorder()
	err := NewComposer(store).StreamFile(context.Background(), rec, &file)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamRead)
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
	assert.False(t, IsCommitted(err))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestStreamFileUpstreamFailure(t *testing.T) {
	boom := errors.New("connection reset by peer")

	t.Run("before first byte", func(t *testing.T) {
		store := &brokenStore{Memory: objectstore.NewMemory(), key: "k", err: boom}
		store.PutBytes("k", make([]byte, 10), "")
		file := models.File{OriginalName: "a.bin", Filename: "k", SizeBytes: 10}
		rec := httptest.NewRecorder()

		err := NewComposer(store).StreamFile(context.Background(), rec, &file)
		assert.ErrorIs(t, err, ErrUpstreamRead)
		assert.ErrorIs(t, err, boom)
		assert.False(t, IsCommitted(err))
		assert.Empty(t, rec.Header().Get("Content-Disposition"))
		assert.Empty(t, rec.Header().Get("Content-Length"))
	})

	t.Run("after first byte", func(t *testing.T) {
		store := &brokenStore{Memory: objectstore.NewMemory(), key: "k", prefix: "abc", err: boom}
		store.PutBytes("k", make([]byte, 10), "")
		file := models.File{OriginalName: "a.bin", Filename: "k", SizeBytes: 10}
		rec := httptest.NewRecorder()

		err := NewComposer(store).StreamFile(context.Background(), rec, &file)
		assert.ErrorIs(t, err, ErrUpstreamRead)
		assert.True(t, IsCommitted(err))
		assert.Equal(t, "abc", rec.Body.String())
	})
}

func TestStreamFolderScenario(t *testing.T) {
	store := objectstore.NewMemory()
	files := []models.File{
		storedFile(store, "a.jpg", []byte("first image")),
		storedFile(store, "b.jpg", bytes.Repeat([]byte("second "), 1000)),
	}
	folder := &models.Folder{ID: uuid.New(), Name: "Photos"}

	rec := httptest.NewRecorder()
	report, err := NewComposer(store).StreamFolder(context.Background(), rec, folder, files)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Entries)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Photos.zip"`, rec.Header().Get("Content-Disposition"))

	entries := readArchive(t, rec.Body.Bytes())
	assert.Equal(t, map[string]string{
		"a.jpg": "first image",
		"b.jpg": strings.Repeat("second ", 1000),
	}, entries)
}

func TestStreamFolderSkipsUnreadableMembers(t *testing.T) {
	store := objectstore.NewMemory()
	files := []models.File{
		storedFile(store, "one.txt", []byte("1")),
		storedFile(store, "two.txt", []byte("2")),
		storedFile(store, "three.txt", []byte("3")),
	}
	store.FailGet(files[1].Filename, errors.New("access denied"))

	rec := httptest.NewRecorder()
	report, err := NewComposer(store).StreamFolder(context.Background(), rec, &models.Folder{ID: uuid.New(), Name: "docs"}, files)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Entries)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "two.txt", report.Skipped[0].Name)

	entries := readArchive(t, rec.Body.Bytes())
	assert.Len(t, entries, 2)
	assert.Contains(t, entries, "one.txt")
	assert.Contains(t, entries, "three.txt")
}

func TestStreamFolderEntryNames(t *testing.T) {
	store := objectstore.NewMemory()
	files := []models.File{
		storedFile(store, "a.jpg", []byte("1")),
		storedFile(store, "a.jpg", []byte("2")),
		storedFile(store, "../../etc/passwd", []byte("3")),
		storedFile(store, `dir\evil.txt`, []byte("4")),
		storedFile(store, "a (1).jpg", []byte("5")),
	}
	// the two a.jpg uploads share a key; give each member its own object
	for i := range files {
		files[i].Filename = files[i].Filename + "-" + string(rune('0'+i))
		store.PutBytes(files[i].Filename, []byte{byte('1' + i)}, "")
	}

	rec := httptest.NewRecorder()
	report, err := NewComposer(store).StreamFolder(context.Background(), rec, &models.Folder{ID: uuid.New(), Name: "mixed"}, files)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Entries)

	entries := readArchive(t, rec.Body.Bytes())
	assert.Equal(t, map[string]string{
		"a.jpg":         "1",
		"a (1).jpg":     "2",
		"passwd":        "3",
		"evil.txt":      "4",
		"a (1) (1).jpg": "5",
	}, entries)
}

func TestStreamFolderEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	report, err := NewComposer(objectstore.NewMemory()).StreamFolder(context.Background(), rec, &models.Folder{ID: uuid.New(), Name: "empty"}, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Entries)
	assert.Empty(t, readArchive(t, rec.Body.Bytes()))
}

func TestStreamFolderMidEntryFailureAborts(t *testing.T) {
	boom := errors.New("read timeout")
	mem := objectstore.NewMemory()
	files := []models.File{
		storedFile(mem, "ok.txt", []byte("fine")),
		{ID: uuid.New(), OriginalName: "bad.txt", Filename: "bad"},
	}
	store := &brokenStore{Memory: mem, key: "bad", prefix: "partial", err: boom}

	rec := httptest.NewRecorder()
	report, err := NewComposer(store).StreamFolder(context.Background(), rec, &models.Folder{ID: uuid.New(), Name: "f"}, files)
	assert.ErrorIs(t, err, ErrUpstreamRead)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, report.Entries)
}

func TestStreamFolderClientGone(t *testing.T) {
	store := objectstore.NewMemory()
	files := []models.File{storedFile(store, "a.txt", []byte("hello"))}

	_, err := NewComposer(store).StreamFolder(context.Background(), &closedClient{header: http.Header{}}, &models.Folder{ID: uuid.New(), Name: "f"}, files)
	assert.ErrorIs(t, err, ErrEncoder)
}

func TestStreamFolderCanceled(t *testing.T) {
	store := objectstore.NewMemory()
	files := []models.File{storedFile(store, "a.txt", []byte("hello"))}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	report, err := NewComposer(store).StreamFolder(ctx, rec, &models.Folder{ID: uuid.New(), Name: "f"}, files)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Entries)
	assert.False(t, IsCommitted(err))
}

func TestAttachment(t *testing.T) {
	assert.Equal(t, `attachment; filename="report.pdf"`, attachment("report.pdf"))
	assert.Equal(t, `attachment; filename="say _hi_.txt"; filename*=UTF-8''say%20%22hi%22.txt`, attachment(`say "hi".txt`))
	assert.Equal(t, `attachment; filename="caf_.txt"; filename*=UTF-8''caf%C3%A9.txt`, attachment("café.txt"))
}

func TestMediaServe(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i % 251)
	}
	store := objectstore.NewMemory()
	store.PutBytes("u/1-video.mp4", data, "video/mp4")
	media := NewMedia(store)

	t.Run("partial", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, media.Serve(context.Background(), rec, "u/1-video.mp4", "bytes=0-99"))

		assert.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "bytes 0-99/1000", rec.Header().Get("Content-Range"))
		assert.Equal(t, "100", rec.Header().Get("Content-Length"))
		assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
		assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
		assert.Equal(t, data[:100], rec.Body.Bytes())
	})

	t.Run("full", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, media.Serve(context.Background(), rec, "u/1-video.mp4", ""))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1000", rec.Header().Get("Content-Length"))
		assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
		assert.Empty(t, rec.Header().Get("Content-Range"))
		assert.Equal(t, data, rec.Body.Bytes())
	})

	t.Run("suffix", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, media.Serve(context.Background(), rec, "u/1-video.mp4", "bytes=-10"))

		assert.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "bytes 990-999/1000", rec.Header().Get("Content-Range"))
		assert.Equal(t, data[990:], rec.Body.Bytes())
	})

	t.Run("malformed falls back to full", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, media.Serve(context.Background(), rec, "u/1-video.mp4", "bytes=oops"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, rec.Body.Bytes(), 1000)
	})

	t.Run("unsatisfiable", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, media.Serve(context.Background(), rec, "u/1-video.mp4", "bytes=1000-"))

		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
		assert.Equal(t, "bytes */1000", rec.Header().Get("Content-Range"))
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, media.Serve(context.Background(), rec, "u/nope", "bytes=0-1"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("open fails", func(t *testing.T) {
		failing := objectstore.NewMemory()
		failing.PutBytes("k", data, "")
		failing.FailGet("k", errors.New("throttled"))
		rec := httptest.NewRecorder()

		require.NoError(t, NewMedia(failing).Serve(context.Background(), rec, "k", ""))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
