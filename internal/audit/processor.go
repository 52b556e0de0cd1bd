package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/grammar"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/lineage"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/source"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/workflow"
)

// DefaultCacheSize is the number of extraction results kept in memory.
const DefaultCacheSize = 256

// Opener opens workflow documents for reading.
type Opener interface {
	Open(ctx context.Context, doc source.Document) (io.ReadCloser, error)
}

// Store persists audit runs. Implementations must be safe for concurrent
// CachedRecords calls; the other methods are called from one goroutine.
type Store interface {
	BeginRun(ctx context.Context, sotKey string) (string, error)
	// CachedRecords returns the records stored for url when its stored
	// fingerprint and source-of-truth key match.
	CachedRecords(ctx context.Context, url, fingerprint, sotKey string) ([]Record, bool, error)
	SaveDocument(ctx context.Context, runID string, res *DocumentResult) error
	FinishRun(ctx context.Context, runID string, summary Summary) error
}

// Config configures a Processor.
type Config struct {
	// Registry selects the grammar; nil means grammar.Default().
	Registry *grammar.Registry
	// SoTKey is the source-of-truth key; empty disables reachability.
	SoTKey string
	// Workers bounds concurrent documents; 0 means GOMAXPROCS.
	Workers int
	// CacheSize bounds the in-memory result cache; 0 means DefaultCacheSize.
	CacheSize int
	// Store records the run when set.
	Store Store
	// Incremental reuses stored records of unchanged documents. Needs Store.
	Incremental bool
	// OnDocument is called after each document, serialized.
	OnDocument func(done, total int, res *DocumentResult)
	Logger     *slog.Logger
}

// DocumentResult is the outcome of processing one document.
type DocumentResult struct {
	Document    source.Document
	Fingerprint string
	Records     []Record
	Nodes       int
	Origins     []string
	// Reused is set when the records were not re-extracted.
	Reused bool
	// Err is set when the document could not be read or parsed; Records is
	// then empty.
	Err      error
	Duration time.Duration
}

// Summary counts the outcome of a run.
type Summary struct {
	RunID     string
	SoTKey    string
	Documents int
	Failed    int
	Reused    int
	Facts     int
}

// Result is the outcome of a run. Records are merged in document order.
type Result struct {
	Summary   Summary
	Documents []*DocumentResult
	Records   []Record
}

// Processor extracts field usages from batches of documents.
type Processor struct {
	cfg    Config
	opener Opener
	cache  *lru.Cache[string, []Record]
	logger *slog.Logger
}

// NewProcessor creates a Processor reading documents through opener.
func NewProcessor(opener Opener, cfg Config) (*Processor, error) {
	if cfg.Registry == nil {
		cfg.Registry = grammar.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cache, err := lru.New[string, []Record](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}

	return &Processor{
		cfg:    cfg,
		opener: opener,
		cache:  cache,
		logger: logger,
	}, nil
}

// Run processes docs concurrently. A document that fails is logged and
// contributes no records; only context cancellation aborts the run.
func (p *Processor) Run(ctx context.Context, docs []source.Document) (*Result, error) {
	summary := Summary{SoTKey: p.cfg.SoTKey, Documents: len(docs)}

	if p.cfg.Store != nil {
		runID, err := p.cfg.Store.BeginRun(ctx, p.cfg.SoTKey)
		if err != nil {
			return nil, fmt.Errorf("begin run: %w", err)
		}
		summary.RunID = runID
	}

	results := make([]*DocumentResult, len(docs))

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := p.ProcessDocument(gctx, doc)
			results[i] = res

			if p.cfg.OnDocument != nil {
				mu.Lock()
				done++
				p.cfg.OnDocument(done, len(docs), res)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Documents: results}
	for _, res := range results {
		switch {
		case res.Err != nil:
			summary.Failed++
			p.logger.Warn("document skipped", "document", res.Document.Name, "error", res.Err)
		case res.Reused:
			summary.Reused++
		}
		result.Records = append(result.Records, res.Records...)

		if p.cfg.Store != nil && res.Err == nil {
			if err := p.cfg.Store.SaveDocument(ctx, summary.RunID, res); err != nil {
				p.logger.Warn("could not persist document", "document", res.Document.Name, "error", err)
			}
		}
	}
	summary.Facts = len(result.Records)
	result.Summary = summary

	if p.cfg.Store != nil {
		if err := p.cfg.Store.FinishRun(ctx, summary.RunID, summary); err != nil {
			p.logger.Warn("could not finish run", "run_id", summary.RunID, "error", err)
		}
	}

	p.logger.Info("audit complete",
		"documents", summary.Documents,
		"failed", summary.Failed,
		"reused", summary.Reused,
		"facts", summary.Facts)

	return result, nil
}

// ProcessDocument reads, parses and aggregates one document. Errors are
// reported in the result, never returned.
func (p *Processor) ProcessDocument(ctx context.Context, doc source.Document) (res *DocumentResult) {
	start := time.Now()
	res = &DocumentResult{Document: doc}

	defer func() {
		if r := recover(); r != nil {
			res.Records = nil
			res.Err = &workflow.DocumentParseError{Document: doc.Name, Err: fmt.Errorf("panic: %v", r)}
		}
		res.Duration = time.Since(start)
	}()

	data, err := p.read(ctx, doc)
	if err != nil {
		res.Err = &workflow.DocumentParseError{Document: doc.Name, Err: err}
		return res
	}

	res.Fingerprint, err = Fingerprint(data)
	if err != nil {
		res.Err = &workflow.DocumentParseError{Document: doc.Name, Err: err}
		return res
	}

	if records, ok := p.cached(ctx, doc, res.Fingerprint); ok {
		res.Records = records
		res.Reused = true
		p.logger.Debug("reusing records", "document", doc.Name, "fingerprint", res.Fingerprint)
		return res
	}

	parsed, err := workflow.ParseBytes(data, doc.Name, doc.Modified, workflow.ParseOptions{
		Registry: p.cfg.Registry,
		Logger:   p.logger,
	})
	if err != nil {
		res.Err = err
		return res
	}

	set := lineage.Solve(parsed, parsed.BuildGraph(), p.cfg.Registry, p.cfg.SoTKey)
	res.Records = Aggregate(parsed, set)
	res.Nodes = len(parsed.Nodes)
	res.Origins = set.Origins

	p.cache.Add(p.cacheKey(res.Fingerprint), res.Records)

	p.logger.Debug("processed document",
		"document", doc.Name, "nodes", res.Nodes, "origins", len(res.Origins), "facts", len(res.Records))
	return res
}

func (p *Processor) read(ctx context.Context, doc source.Document) ([]byte, error) {
	r, err := p.opener.Open(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return io.ReadAll(r)
}

func (p *Processor) cacheKey(fingerprint string) string {
	return fingerprint + "\x00" + p.cfg.SoTKey
}

// cached looks up records for an unchanged document, first in memory, then
// in the store when incremental mode is on. Hits are restamped with doc's
// name and modification time.
func (p *Processor) cached(ctx context.Context, doc source.Document, fingerprint string) ([]Record, bool) {
	if records, ok := p.cache.Get(p.cacheKey(fingerprint)); ok {
		return restamp(records, doc), true
	}
	if !p.cfg.Incremental || p.cfg.Store == nil {
		return nil, false
	}

	records, ok, err := p.cfg.Store.CachedRecords(ctx, doc.URL, fingerprint, p.cfg.SoTKey)
	if err != nil {
		p.logger.Warn("state lookup failed", "document", doc.Name, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	p.cache.Add(p.cacheKey(fingerprint), records)
	return restamp(records, doc), true
}

func restamp(records []Record, doc source.Document) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		r.FileName = doc.Name
		r.LastModified = doc.Modified
		out[i] = r
	}
	return out
}
