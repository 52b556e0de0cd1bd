// Package source lists and opens workflow documents. Locations are afs URLs,
// so a local directory, file:// URL or any afs-supported storage works.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

// Default extensions of workflow documents.
var DefaultExtensions = []string{".yxmd", ".xml"}

var (
	// ErrNoDocuments is returned when a directory holds no workflow documents.
	ErrNoDocuments = errors.New("no workflow documents found")
	// ErrDirNotFound is returned when the workflows location does not exist.
	ErrDirNotFound = errors.New("directory not found")
)

// Document identifies one workflow file.
type Document struct {
	URL      string
	Name     string    // base file name, used as the display name
	Modified time.Time // zero when the storage does not report it
	Size     int64
}

// Options configures a Store.
type Options struct {
	// Extensions selects documents by suffix, case-insensitively.
	// Empty means DefaultExtensions.
	Extensions []string
	// Recursive includes documents in subdirectories.
	Recursive bool
	Logger    *slog.Logger
}

// Store lists, opens and copies workflow documents.
type Store struct {
	fs         afs.Service
	extensions []string
	recursive  bool
	logger     *slog.Logger
}

// New creates a Store backed by afs.
func New(opts Options) *Store {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Store{
		fs:         afs.New(),
		extensions: normalized,
		recursive:  opts.Recursive,
		logger:     logger,
	}
}

// Matches reports whether name has one of the configured extensions.
func (s *Store) Matches(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range s.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// List returns the workflow documents under location, sorted by URL.
// It returns ErrDirNotFound when location does not exist and ErrNoDocuments
// when it holds no matching files.
func (s *Store) List(ctx context.Context, location string) ([]Document, error) {
	return s.list(ctx, location, s.recursive)
}

func (s *Store) list(ctx context.Context, location string, recursive bool) ([]Document, error) {
	location = Normalize(location)

	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", location, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", location, ErrDirNotFound)
	}

	var docs []Document
	if recursive {
		var visitor storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
			if info.IsDir() {
				return true, nil
			}
			if s.Matches(info.Name()) {
				docs = append(docs, Document{
					URL:      url.Join(url.Join(baseURL, parent), info.Name()),
					Name:     info.Name(),
					Modified: info.ModTime(),
					Size:     info.Size(),
				})
			}
			return true, nil
		}
		if err := s.fs.Walk(ctx, location, visitor); err != nil {
			return nil, fmt.Errorf("walk %s: %w", location, err)
		}
	} else {
		objects, err := s.fs.List(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", location, err)
		}
		for _, obj := range objects {
			if obj.IsDir() || !s.Matches(obj.Name()) {
				continue
			}
			docs = append(docs, Document{
				URL:      obj.URL(),
				Name:     obj.Name(),
				Modified: obj.ModTime(),
				Size:     obj.Size(),
			})
		}
	}

	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].URL < docs[j].URL
	})

	s.logger.Debug("listed workflow documents", "location", location, "count", len(docs))
	return docs, nil
}

// Open opens a document for reading. The caller must close the reader.
func (s *Store) Open(ctx context.Context, doc Document) (io.ReadCloser, error) {
	reader, err := s.fs.OpenURL(ctx, doc.URL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", doc.URL, err)
	}
	return reader, nil
}

// CollectResult summarizes a Collect call.
type CollectResult struct {
	Found  int
	Copied int
	Failed []CollectFailure
}

// CollectFailure is a document that could not be copied.
type CollectFailure struct {
	Document Document
	Err      error
}

// Collect copies every document found recursively under src into the flat
// directory dest. Documents with the same name overwrite each other; the
// last one in URL order wins. A failed copy is recorded and skipped.
func (s *Store) Collect(ctx context.Context, src, dest string) (*CollectResult, error) {
	docs, err := s.list(ctx, src, true)
	if err != nil {
		return nil, err
	}
	dest = Normalize(dest)

	result := &CollectResult{Found: len(docs)}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		target := url.Join(dest, doc.Name)
		if err := s.fs.Copy(ctx, doc.URL, target); err != nil {
			s.logger.Warn("copy failed", "document", doc.URL, "target", target, "error", err)
			result.Failed = append(result.Failed, CollectFailure{Document: doc, Err: err})
			continue
		}
		s.logger.Debug("copied document", "document", doc.URL, "target", target)
		result.Copied++
	}
	return result, nil
}

// Normalize turns a relative local path into an absolute one. URLs with a
// scheme are returned unchanged.
func Normalize(location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	if abs, err := filepath.Abs(location); err == nil {
		return abs
	}
	return location
}
