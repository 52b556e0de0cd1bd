package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/testutil"
)

// =============================================================================
// Test Helpers
// =============================================================================

func writeFixtures(t *testing.T) (string, time.Time) {
	t.Helper()
	dir := t.TempDir()
	modified := time.Date(2024, 3, 1, 12, 30, 0, 0, time.Local)

	wf := testutil.NewWorkflow().Select("1", "A")
	wf.WriteFile(t, dir, "a.yxmd", modified)
	wf.WriteFile(t, dir, "b.XML", modified)
	wf.WriteFile(t, dir, filepath.Join("sub", "d.yxmd"), modified)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	return dir, modified
}

func names(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	return out
}

// =============================================================================
// List
// =============================================================================

func TestList(t *testing.T) {
	dir, modified := writeFixtures(t)

	tests := []struct {
		name      string
		recursive bool
		want      []string
	}{
		{"top level only", false, []string{"a.yxmd", "b.XML"}},
		{"recursive", true, []string{"a.yxmd", "b.XML", "d.yxmd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{Recursive: tt.recursive, Logger: testutil.NewTestLogger(t)})
			docs, err := s.List(context.Background(), dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(docs))
			for _, d := range docs {
				assert.WithinDuration(t, modified, d.Modified, time.Second, d.Name)
				assert.Positive(t, d.Size)
			}
		})
	}
}

func TestList_CustomExtensions(t *testing.T) {
	dir, _ := writeFixtures(t)

	s := New(Options{Extensions: []string{"TXT"}})
	docs, err := s.List(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, names(docs))
}

func TestList_Errors(t *testing.T) {
	s := New(Options{})

	_, err := s.List(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, ErrDirNotFound), "got %v", err)

	_, err = s.List(context.Background(), t.TempDir())
	assert.True(t, errors.Is(err, ErrNoDocuments), "got %v", err)
}

func TestMatches(t *testing.T) {
	s := New(Options{})
	assert.True(t, s.Matches("flow.yxmd"))
	assert.True(t, s.Matches("FLOW.YXMD"))
	assert.True(t, s.Matches("flow.xml"))
	assert.False(t, s.Matches("flow.yxmc"))
	assert.False(t, s.Matches("yxmd"))
}

// =============================================================================
// Open / Collect
// =============================================================================

func TestOpen(t *testing.T) {
	dir, _ := writeFixtures(t)
	s := New(Options{})

	docs, err := s.List(context.Background(), dir)
	require.NoError(t, err)

	r, err := s.Open(context.Background(), docs[0])
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<AlteryxDocument")
}

func TestCollect(t *testing.T) {
	dir, _ := writeFixtures(t)
	dest := filepath.Join(t.TempDir(), "staging")
	require.NoError(t, os.MkdirAll(dest, 0o755))

	s := New(Options{Logger: testutil.NewTestLogger(t)})
	res, err := s.Collect(context.Background(), dir, dest)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Found)
	assert.Equal(t, 3, res.Copied)
	assert.Empty(t, res.Failed)

	for _, name := range []string{"a.yxmd", "b.XML", "d.yxmd"} {
		_, err := os.Stat(filepath.Join(dest, name))
		assert.NoError(t, err, name)
	}
}

func TestCollect_MissingSource(t *testing.T) {
	s := New(Options{})
	_, err := s.Collect(context.Background(), filepath.Join(t.TempDir(), "nope"), t.TempDir())
	assert.True(t, errors.Is(err, ErrDirNotFound))
}
