// Package streaming writes stored objects to HTTP clients: single files,
// on-the-fly folder archives and ranged media reads.
package streaming

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/rohits-web03/filepod/internal/logging"
	"github.com/rohits-web03/filepod/internal/metrics"
	"github.com/rohits-web03/filepod/internal/models"
	"github.com/rohits-web03/filepod/internal/objectstore"
)

// SkippedEntry is an archive member whose object could not be opened.
type SkippedEntry struct {
	Name string
	Err  error
}

// ArchiveReport describes a finished folder archive.
type ArchiveReport struct {
	Entries int
	Skipped []SkippedEntry
}

type Composer struct {
	store objectstore.Reader
}

func NewComposer(store objectstore.Reader) *Composer {
	return &Composer{store: store}
}

// StreamFile copies one stored object to w as an attachment named after the
// file's original name. The object is opened before any header is written.
// Content-Length comes from the object store, not the recorded file size.
func (c *Composer) StreamFile(ctx context.Context, w http.ResponseWriter, file *models.File) error {
	info, err := c.store.Stat(ctx, file.Filename)
	if err != nil {
		return &Error{Op: "stat object", Err: fmt.Errorf("%w: %w", ErrUpstreamRead, err)}
	}
	rc, err := c.store.Get(ctx, file.Filename)
	if err != nil {
		return &Error{Op: "open object", Err: fmt.Errorf("%w: %w", ErrUpstreamRead, err)}
	}
	defer rc.Close()

	h := w.Header()
	h.Set("Content-Type", file.ContentType())
	h.Set("Content-Disposition", attachment(file.OriginalName))
	h.Set("Content-Length", strconv.FormatInt(info.Size, 10))

	cw := &committedWriter{ResponseWriter: w}
	n, err := copyStream(ctx, cw, rc)
	metrics.RecordBytesStreamed("file", n)
	if err != nil {
		if !cw.committed {
			clearDownloadHeaders(h)
		}
		return &Error{Op: "stream file", Committed: cw.committed, Err: err}
	}
	return nil
}

// StreamFolder writes files to w as a deflate-compressed ZIP named after the
// folder. Members are appended sequentially in the given order. A member whose
// object cannot be opened is logged and skipped; any failure after a member
// has started aborts the archive.
func (c *Composer) StreamFolder(ctx context.Context, w http.ResponseWriter, folder *models.Folder, files []models.File) (ArchiveReport, error) {
	var report ArchiveReport
	logger := logging.WithContext(ctx).With(zap.String("folder_id", folder.ID.String()))

	h := w.Header()
	h.Set("Content-Type", "application/zip")
	h.Set("Content-Disposition", attachment(folder.Name+".zip"))

	cw := &committedWriter{ResponseWriter: w}
	counter := &countingWriter{w: cw}
	zw := zip.NewWriter(counter)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	fail := func(op string, err error) (ArchiveReport, error) {
		metrics.RecordBytesStreamed("archive", counter.n)
		if !cw.committed {
			clearDownloadHeaders(h)
		}
		return report, &Error{Op: op, Committed: cw.committed, Err: err}
	}

	names := newEntryNamer()
	for i := range files {
		file := &files[i]
		if err := ctx.Err(); err != nil {
			return fail("archive", err)
		}

		rc, err := c.store.Get(ctx, file.Filename)
		if err != nil {
			if ctx.Err() != nil {
				return fail("archive", ctx.Err())
			}
			logger.Warn("skipping archive member",
				zap.String("file_id", file.ID.String()),
				zap.String("name", file.OriginalName),
				zap.Error(err))
			report.Skipped = append(report.Skipped, SkippedEntry{Name: file.OriginalName, Err: err})
			metrics.RecordArchiveEntry(false)
			continue
		}

		err = appendEntry(ctx, zw, names.next(file.OriginalName), file, rc)
		rc.Close()
		if err != nil {
			return fail("archive member "+file.OriginalName, err)
		}
		report.Entries++
		metrics.RecordArchiveEntry(true)
	}

	if err := zw.Close(); err != nil {
		return fail("finalize archive", fmt.Errorf("%w: %w", ErrEncoder, err))
	}
	metrics.RecordBytesStreamed("archive", counter.n)

	logger.Debug("folder archive complete",
		zap.Int("entries", report.Entries),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int64("bytes", counter.n))
	return report, nil
}

func appendEntry(ctx context.Context, zw *zip.Writer, name string, file *models.File, src io.Reader) error {
	modified := file.CreatedAt
	if modified.IsZero() {
		modified = time.Now()
	}
	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncoder, err)
	}
	_, err = copyStream(ctx, entry, src)
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// entryNamer turns original file names into unique, flat archive member names.
type entryNamer struct {
	used map[string]struct{}
}

func newEntryNamer() *entryNamer {
	return &entryNamer{used: make(map[string]struct{})}
}

func (n *entryNamer) next(original string) string {
	base := sanitizeEntryName(original)
	name := base
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; ; i++ {
		if _, taken := n.used[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s (%d)%s", stem, i, ext)
	}
	n.used[name] = struct{}{}
	return name
}

// sanitizeEntryName keeps only the last path element so a member can never
// extract outside the archive root.
func sanitizeEntryName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	base := path.Base(strings.TrimRight(name, "/"))
	base = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, base)
	if base == "" || base == "." || base == ".." || base == "/" {
		return "file"
	}
	return base
}

// attachment builds a Content-Disposition value. Names outside printable
// ASCII also get an RFC 5987 filename* parameter.
func attachment(name string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	v := fmt.Sprintf(`attachment; filename="%s"`, fallback)
	if fallback != name {
		v += "; filename*=UTF-8''" + strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	}
	return v
}
