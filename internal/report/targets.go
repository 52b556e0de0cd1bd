package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/viant/afs"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/source"
)

// TargetSet is the set of field names a report is restricted to.
type TargetSet map[string]struct{}

// NewTargetSet builds a set from names, trimming blanks.
func NewTargetSet(names ...string) TargetSet {
	set := make(TargetSet, len(names))
	set.Add(names...)
	return set
}

// Add inserts names, skipping blank ones.
func (s TargetSet) Add(names ...string) {
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			s[name] = struct{}{}
		}
	}
}

// Has reports whether name is a target.
func (s TargetSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the targets sorted.
func (s TargetSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadTargets reads a target list: the first column of a CSV document, header
// row skipped, blank values ignored. A UTF-8 or UTF-16 byte order mark is
// honored and stripped.
func ReadTargets(r io.Reader) (TargetSet, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	set := make(TargetSet)
	header := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read target fields: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(row) > 0 {
			set.Add(row[0])
		}
	}
	return set, nil
}

// LoadTargets reads a target list from an afs location (local path or URL).
func LoadTargets(ctx context.Context, location string) (TargetSet, error) {
	location = source.Normalize(location)
	fs := afs.New()
	r, err := fs.OpenURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("open target fields %s: %w", location, err)
	}
	defer func() { _ = r.Close() }()

	return ReadTargets(r)
}
