package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/audit"
)

// Document is the stored state of one workflow document.
type Document struct {
	URL         string
	Name        string
	Fingerprint string
	Modified    time.Time
	SoTKey      string
	Nodes       int
	RunID       string
	UpdatedAt   time.Time
}

// FieldCount is the number of stored usages of a field.
type FieldCount struct {
	FieldName string
	Usages    int
	Documents int
}

// SaveDocument stores the latest state of a document. A reused result whose
// stored row matches only moves the document to the new run; otherwise its
// usage rows are replaced.
func (s *SQLiteStore) SaveDocument(ctx context.Context, runID string, res *audit.DocumentResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc := res.Document
	now := formatTime(time.Now())

	sotKey, err := s.runSoTKey(ctx, tx, runID)
	if err != nil {
		return err
	}

	if res.Reused {
		result, err := tx.ExecContext(ctx,
			`UPDATE documents SET name = ?, modified = ?, run_id = ?, updated_at = ?
			 WHERE url = ? AND fingerprint = ? AND sot_key = ?`,
			doc.Name, formatNullTime(doc.Modified), runID, now, doc.URL, res.Fingerprint, sotKey)
		if err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
		// Records reused from another document with the same content
		// have no matching row yet.
		if n, _ := result.RowsAffected(); n > 0 {
			return tx.Commit()
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (url, name, fingerprint, modified, sot_key, nodes, run_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			name = excluded.name,
			fingerprint = excluded.fingerprint,
			modified = excluded.modified,
			sot_key = excluded.sot_key,
			nodes = excluded.nodes,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at`,
		doc.URL, doc.Name, res.Fingerprint, formatNullTime(doc.Modified), sotKey, res.Nodes, runID, now)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM usages WHERE url = ?`, doc.URL); err != nil {
		return fmt.Errorf("failed to clear usages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO usages (url, seq, tool_id, tool, field_name, usage_context, detail, is_output, downstream, criticality)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare usage insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range res.Records {
		_, err := stmt.ExecContext(ctx, doc.URL, i, r.ToolID, r.Tool, r.FieldName, r.UsageContext,
			r.FieldUsage, boolInt(r.IsOutput), boolInt(r.IsDownstreamSOT), r.UsageCriticality)
		if err != nil {
			return fmt.Errorf("failed to save usage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}

	s.cache.Remove(cacheKey(doc.URL, res.Fingerprint, sotKey))
	return nil
}

func (s *SQLiteStore) runSoTKey(ctx context.Context, tx *sql.Tx, runID string) (string, error) {
	var key string
	err := tx.QueryRowContext(ctx, `SELECT sot_key FROM runs WHERE id = ?`, runID).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get run: %w", err)
	}
	return key, nil
}

// CachedRecords returns the stored records of url when its fingerprint and
// source-of-truth key match the stored ones.
func (s *SQLiteStore) CachedRecords(ctx context.Context, url, fingerprint, sotKey string) ([]audit.Record, bool, error) {
	if s.db == nil {
		return nil, false, fmt.Errorf("database not opened")
	}

	key := cacheKey(url, fingerprint, sotKey)
	if records, ok := s.cache.Get(key); ok {
		return records, true, nil
	}

	doc, err := s.GetDocument(ctx, url)
	if err != nil {
		return nil, false, err
	}
	if doc == nil || doc.Fingerprint != fingerprint || doc.SoTKey != sotKey {
		return nil, false, nil
	}

	records, err := s.queryRecords(ctx,
		`WHERE u.url = ? ORDER BY u.seq`, url)
	if err != nil {
		return nil, false, err
	}
	s.cache.Add(key, records)
	return records, true, nil
}

// GetDocument returns the stored state of url, or nil when unknown.
func (s *SQLiteStore) GetDocument(ctx context.Context, url string) (*Document, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var (
		doc      Document
		modified sql.NullString
		updated  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT url, name, fingerprint, modified, sot_key, nodes, run_id, updated_at
		 FROM documents WHERE url = ?`, url,
	).Scan(&doc.URL, &doc.Name, &doc.Fingerprint, &modified, &doc.SoTKey, &doc.Nodes, &doc.RunID, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	doc.Modified = parseNullTime(modified)
	doc.UpdatedAt = parseNullTime(updated)
	return &doc, nil
}

// UsagesForField returns every stored usage of a field, ordered by document
// name and position.
func (s *SQLiteStore) UsagesForField(ctx context.Context, field string) ([]audit.Record, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	return s.queryRecords(ctx, `WHERE u.field_name = ? ORDER BY d.name, d.url, u.seq`, field)
}

// FieldCounts returns the most used fields, most used first.
func (s *SQLiteStore) FieldCounts(ctx context.Context, limit int) ([]FieldCount, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT field_name, COUNT(*), COUNT(DISTINCT url)
		 FROM usages GROUP BY field_name
		 ORDER BY COUNT(*) DESC, field_name LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to count fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []FieldCount
	for rows.Next() {
		var c FieldCount
		if err := rows.Scan(&c.FieldName, &c.Usages, &c.Documents); err != nil {
			return nil, fmt.Errorf("failed to scan field count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) queryRecords(ctx context.Context, where string, args ...any) ([]audit.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.name, d.modified, u.tool_id, u.tool, u.field_name, u.usage_context, u.detail,
			u.is_output, u.downstream, u.criticality
		 FROM usages u JOIN documents d ON d.url = u.url `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []audit.Record{}
	for rows.Next() {
		var (
			r          audit.Record
			modified   sql.NullString
			isOutput   int
			downstream int
		)
		if err := rows.Scan(&r.FileName, &modified, &r.ToolID, &r.Tool, &r.FieldName, &r.UsageContext,
			&r.FieldUsage, &isOutput, &downstream, &r.UsageCriticality); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		r.LastModified = parseNullTime(modified)
		r.IsOutput = isOutput != 0
		r.IsDownstreamSOT = downstream != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

func cacheKey(url, fingerprint, sotKey string) string {
	return url + "\x00" + fingerprint + "\x00" + sotKey
}
