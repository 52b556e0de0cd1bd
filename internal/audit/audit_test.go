package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/grammar"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/lineage"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/source"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/testutil"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/workflow"
)

// =============================================================================
// Test Helpers
// =============================================================================

// memOpener serves documents from memory and counts opens.
type memOpener struct {
	mu    sync.Mutex
	files map[string][]byte
	opens map[string]int
}

func newMemOpener() *memOpener {
	return &memOpener{files: map[string][]byte{}, opens: map[string]int{}}
}

func (o *memOpener) add(name string, data []byte) source.Document {
	o.files[name] = data
	return source.Document{URL: "mem://" + name, Name: name, Modified: time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)}
}

func (o *memOpener) Open(_ context.Context, doc source.Document) (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens[doc.Name]++
	data, ok := o.files[doc.Name]
	if !ok {
		return nil, fmt.Errorf("%s: not found", doc.Name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// memStore is an in-memory Store.
type memStore struct {
	mu       sync.Mutex
	runs     []string
	sotKey   string
	finished map[string]Summary
	saved    map[string]*DocumentResult // by URL
	keys     map[string]string          // URL -> sot key
}

func newMemStore() *memStore {
	return &memStore{
		finished: map[string]Summary{},
		saved:    map[string]*DocumentResult{},
		keys:     map[string]string{},
	}
}

func (s *memStore) BeginRun(_ context.Context, sotKey string) (string, error) {
	s.sotKey = sotKey
	id := fmt.Sprintf("run-%d", len(s.runs)+1)
	s.runs = append(s.runs, id)
	return id, nil
}

func (s *memStore) CachedRecords(_ context.Context, url, fingerprint, sotKey string) ([]Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.saved[url]
	if !ok || res.Fingerprint != fingerprint || s.keys[url] != sotKey {
		return nil, false, nil
	}
	return res.Records, true, nil
}

func (s *memStore) SaveDocument(_ context.Context, _ string, res *DocumentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[res.Document.URL] = res
	s.keys[res.Document.URL] = s.sotKey
	return nil
}

func (s *memStore) FinishRun(_ context.Context, runID string, summary Summary) error {
	s.finished[runID] = summary
	return nil
}

// renameThenGroup is the select A->B, summarize group-by B workflow.
func renameThenGroup() *testutil.WorkflowBuilder {
	return testutil.NewWorkflow().
		Node("1", grammar.ToolSelect, `<SelectFields><SelectField field="A" selected="True" rename="B"/></SelectFields>`).
		Node("2", grammar.ToolSummarize, `<SummarizeFields><SummarizeField field="B" action="GroupBy"/></SummarizeFields>`).
		Connect("1", "2")
}

func parseDoc(t *testing.T, b *testutil.WorkflowBuilder) *workflow.Document {
	t.Helper()
	doc, err := workflow.ParseBytes(b.Bytes(), "flow.yxmd", time.Time{}, workflow.ParseOptions{})
	require.NoError(t, err)
	return doc
}

// =============================================================================
// Aggregate
// =============================================================================

func TestAggregate_OneRecordPerFact(t *testing.T) {
	doc := parseDoc(t, testutil.NewWorkflow().
		CalgaryInput("1", "golden.cydb").
		Filter("2", "[A] = [B]").
		Formula("3", "C", "[A] + 1").
		Select("4", "A", "B", "C").
		Node("5", "Unknown.Plugin", "<X/>").
		Connect("1", "2").Connect("2", "3").Connect("3", "4"))

	want := 0
	for _, n := range doc.Nodes {
		want += len(n.Usages)
	}

	records := Aggregate(doc, nil)
	assert.Len(t, records, want)
	for _, r := range records {
		assert.False(t, r.IsDownstreamSOT)
		assert.Equal(t, "flow.yxmd", r.FileName)
	}
}

func TestAggregate_RenameScenario(t *testing.T) {
	doc := parseDoc(t, renameThenGroup())
	records := Aggregate(doc, nil)

	type fact struct {
		tool   string
		field  string
		output bool
	}
	got := make([]fact, 0, len(records))
	for _, r := range records {
		got = append(got, fact{r.ToolID, r.FieldName, r.IsOutput})
	}

	assert.Equal(t, []fact{
		{"1", "A", false},
		{"1", "B", true},
		{"2", "B", false},
		{"2", "B", true},
	}, got)
}

func TestAggregate_DownstreamFlag(t *testing.T) {
	doc := parseDoc(t, testutil.NewWorkflow().
		CalgaryInput("1", `\\share\golden\customers.cydb`).
		Filter("2", "[Region] = 'West'").
		Filter("3", "[Other] = 1").
		Connect("1", "2"))

	set := lineage.Solve(doc, doc.BuildGraph(), grammar.Default(), "golden")
	flags := map[string]bool{}
	for _, r := range Aggregate(doc, set) {
		flags[r.ToolID] = r.IsDownstreamSOT
	}
	assert.True(t, flags["2"])
	assert.False(t, flags["3"])

	inactive := lineage.Solve(doc, doc.BuildGraph(), grammar.Default(), "")
	for _, r := range Aggregate(doc, inactive) {
		assert.False(t, r.IsDownstreamSOT, "no key means no downstream flags")
	}
}

func TestCriticality(t *testing.T) {
	tests := []struct {
		toolType string
		want     int
	}{
		{grammar.ToolFilter, 5},
		{grammar.ToolSelect, 0},
		{grammar.ToolSort, 2},
		{grammar.ToolSummarize, 1},
		{grammar.ToolCalgaryLoader, 2},
		{"TableauOutput_1_3_1", 4},
		{"TableauOutput_2_0_0", 4},
		{"Some.Unmapped.Tool", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.toolType, func(t *testing.T) {
			assert.Equal(t, tt.want, Criticality(tt.toolType))
		})
	}
}

func TestRecord_LastModifiedString(t *testing.T) {
	r := Record{}
	assert.Equal(t, NotAvailable, r.LastModifiedString())

	r.LastModified = time.Date(2023, 11, 2, 8, 4, 5, 0, time.Local)
	assert.Equal(t, "2023-11-02 08:04:05", r.LastModifiedString())
	assert.Equal(t, 0, r.DownstreamFlag())
}

// =============================================================================
// Processor
// =============================================================================

func TestProcessor_Run(t *testing.T) {
	opener := newMemOpener()
	var docs []source.Document
	for i := 0; i < 12; i++ {
		wf := testutil.NewWorkflow().
			CalgaryInput("1", "golden.cydb").
			Filter("2", fmt.Sprintf("[Field%d] = 1", i)).
			Connect("1", "2")
		docs = append(docs, opener.add(fmt.Sprintf("flow%02d.yxmd", i), wf.Bytes()))
	}
	docs = append(docs, opener.add("broken.yxmd", []byte("<AlteryxDocument><Nodes>")))
	docs = append(docs, source.Document{URL: "mem://gone.yxmd", Name: "gone.yxmd"})

	var progress []int
	p, err := NewProcessor(opener, Config{
		SoTKey:  "golden",
		Workers: 4,
		Logger:  testutil.NewTestLogger(t),
		OnDocument: func(done, total int, _ *DocumentResult) {
			progress = append(progress, done)
			assert.Equal(t, 14, total)
		},
	})
	require.NoError(t, err)

	res, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, 14, res.Summary.Documents)
	assert.Equal(t, 2, res.Summary.Failed)
	assert.Equal(t, 12, res.Summary.Facts)
	assert.Len(t, progress, 14)

	// Merge order follows input order regardless of completion order.
	for i, r := range res.Records {
		assert.Equal(t, fmt.Sprintf("flow%02d.yxmd", i), r.FileName)
		assert.Equal(t, fmt.Sprintf("Field%d", i), r.FieldName)
		assert.True(t, r.IsDownstreamSOT)
		assert.Equal(t, "2024-05-06 07:08:09", r.LastModifiedString())
	}

	var parseErr *workflow.DocumentParseError
	require.True(t, errors.As(res.Documents[12].Err, &parseErr))
	assert.Equal(t, "broken.yxmd", parseErr.Document)
	require.True(t, errors.As(res.Documents[13].Err, &parseErr))
	assert.Equal(t, "gone.yxmd", parseErr.Document)
}

func TestProcessor_Idempotent(t *testing.T) {
	opener := newMemOpener()
	doc := opener.add("flow.yxmd", renameThenGroup().Bytes())

	p, err := NewProcessor(opener, Config{})
	require.NoError(t, err)

	first := p.ProcessDocument(context.Background(), doc)
	second := p.ProcessDocument(context.Background(), doc)

	require.NoError(t, first.Err)
	assert.False(t, first.Reused)
	assert.True(t, second.Reused, "second pass hits the in-memory cache")
	assert.ElementsMatch(t, first.Records, second.Records)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestProcessor_CacheKeyIncludesSoTKey(t *testing.T) {
	opener := newMemOpener()
	doc := opener.add("flow.yxmd", testutil.NewWorkflow().
		CalgaryInput("1", "golden.cydb").
		Filter("2", "[A] = 1").
		Connect("1", "2").Bytes())

	withKey, err := NewProcessor(opener, Config{SoTKey: "golden"})
	require.NoError(t, err)
	res := withKey.ProcessDocument(context.Background(), doc)
	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].IsDownstreamSOT)
	assert.Equal(t, []string{"1"}, res.Origins)
}

func TestProcessor_Incremental(t *testing.T) {
	opener := newMemOpener()
	docs := []source.Document{
		opener.add("a.yxmd", renameThenGroup().Bytes()),
		opener.add("b.yxmd", testutil.NewWorkflow().Filter("1", "[X] = 1").Bytes()),
	}
	store := newMemStore()

	first, err := NewProcessor(opener, Config{Store: store, Incremental: true})
	require.NoError(t, err)
	res1, err := first.Run(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 0, res1.Summary.Reused)
	assert.Equal(t, "run-1", res1.Summary.RunID)

	// A fresh processor has an empty memory cache, so reuse comes from the store.
	second, err := NewProcessor(opener, Config{Store: store, Incremental: true})
	require.NoError(t, err)
	res2, err := second.Run(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, 2, res2.Summary.Reused)
	assert.Equal(t, res1.Records, res2.Records)
	assert.Equal(t, res2.Summary, store.finished["run-2"])

	// A changed document is re-extracted.
	opener.files["b.yxmd"] = testutil.NewWorkflow().Filter("1", "[Y] = 1").Bytes()
	third, err := NewProcessor(opener, Config{Store: store, Incremental: true})
	require.NoError(t, err)
	res3, err := third.Run(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 1, res3.Summary.Reused)
	assert.Equal(t, "Y", res3.Records[len(res3.Records)-1].FieldName)
}

func TestProcessor_Cancelled(t *testing.T) {
	opener := newMemOpener()
	doc := opener.add("flow.yxmd", renameThenGroup().Bytes())

	p, err := NewProcessor(opener, Config{Workers: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Run(ctx, []source.Document{doc})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint([]byte("<AlteryxDocument/>"))
	require.NoError(t, err)
	b, err := Fingerprint([]byte("<AlteryxDocument/>"))
	require.NoError(t, err)
	c, err := Fingerprint([]byte("<AlteryxDocument />"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}
