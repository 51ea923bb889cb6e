// Package store provides the SQLite-backed run ledger: every generate run,
// the profile and tree it planned, and every document generation produced
// for it. Documents are append-only; a regeneration adds a new generation
// row instead of replacing the old one.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/julianshen/docweave/internal/profile"
	"github.com/julianshen/docweave/internal/synth"
	"github.com/julianshen/docweave/internal/wiki"
)

// ErrRunNotFound is returned when no recorded run matches an id.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID              string    `json:"id"`
	Repository      string    `json:"repository"`
	OutputDir       string    `json:"outputDir"`
	TaxonomyVersion string    `json:"taxonomyVersion"`
	StartedAt       time.Time `json:"startedAt"`
	Nodes           int       `json:"nodes"`
	Stubs           int       `json:"stubs"`
}

// Run is a recorded run with the latest generation of every document.
type Run struct {
	RunSummary
	Profile   profile.Profile
	Tree      *wiki.Tree
	Documents wiki.Documents
}

// Store wraps a SQLite database holding the run ledger.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ wiki.Recorder = (*Store)(nil)

// NewStore opens (or creates) a SQLite database at dbPath and ensures
// all required tables exist. Use ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS runs (
			id               TEXT PRIMARY KEY,
			repository       TEXT NOT NULL,
			output_dir       TEXT NOT NULL,
			taxonomy_version TEXT NOT NULL,
			profile          TEXT NOT NULL,
			tree             TEXT NOT NULL,
			started_at       TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			run_id       TEXT NOT NULL REFERENCES runs(id),
			node_id      TEXT NOT NULL,
			generation   INTEGER NOT NULL,
			status       TEXT NOT NULL,
			attempts     INTEGER NOT NULL,
			failure_kind TEXT NOT NULL,
			content      TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			PRIMARY KEY (run_id, node_id, generation)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	for i, r := range stmt {
		if r == '\n' {
			return stmt[:i]
		}
	}
	return stmt
}

// BeginRun records a new run and returns its id.
func (s *Store) BeginRun(ctx context.Context, run wiki.RunInfo) (string, error) {
	if run.Tree == nil {
		return "", fmt.Errorf("begin run: no tree")
	}
	prof, err := json.Marshal(run.Profile)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	tree, err := run.Tree.Snapshot()
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	started := run.StartedAt
	if started.IsZero() {
		started = s.now()
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, repository, output_dir, taxonomy_version, profile, tree, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, run.Profile.RepositoryURL, run.OutputDir, run.TaxonomyVersion, string(prof), string(tree), formatTime(started),
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// SaveDocuments appends document generations to a run. A generation that is
// already recorded for a node is rejected.
func (s *Store) SaveDocuments(ctx context.Context, runID string, docs []wiki.GeneratedDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save documents: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return fmt.Errorf("save documents: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("save documents: %w: %s", ErrRunNotFound, runID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (run_id, node_id, generation, status, attempts, failure_kind, content, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save documents: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		gen := d.Generation
		if gen < 1 {
			gen = 1
		}
		if _, err := stmt.ExecContext(ctx, runID, string(d.NodeID), gen, string(d.Status), d.Attempts,
			string(d.FailureKind), d.Content, formatTime(d.GeneratedAt)); err != nil {
			return fmt.Errorf("save document %s generation %d: %w", d.NodeID, gen, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns every recorded run, newest first. Stub counts reflect the
// latest generation of each node.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.repository, r.output_dir, r.taxonomy_version, r.started_at,
		        (SELECT COUNT(DISTINCT d.node_id) FROM documents d WHERE d.run_id = r.id),
		        (SELECT COUNT(*) FROM documents d
		          WHERE d.run_id = r.id AND d.status = ?
		            AND d.generation = (SELECT MAX(g.generation) FROM documents g
		                                 WHERE g.run_id = d.run_id AND g.node_id = d.node_id))
		 FROM runs r ORDER BY r.started_at DESC, r.id`,
		string(wiki.StatusStub),
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var started string
		if err := rows.Scan(&r.ID, &r.Repository, &r.OutputDir, &r.TaxonomyVersion, &started, &r.Nodes, &r.Stubs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("scan run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadRun returns a run by id or unique id prefix, with the latest generation
// of every document.
func (s *Store) LoadRun(ctx context.Context, id string) (*Run, error) {
	full, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		run          Run
		prof, tree   string
		startedAtRaw string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, repository, output_dir, taxonomy_version, profile, tree, started_at
		 FROM runs WHERE id = ?`, full,
	).Scan(&run.ID, &run.Repository, &run.OutputDir, &run.TaxonomyVersion, &prof, &tree, &startedAtRaw)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", full, err)
	}
	if run.StartedAt, err = parseTime(startedAtRaw); err != nil {
		return nil, fmt.Errorf("load run %s: %w", full, err)
	}
	if err := json.Unmarshal([]byte(prof), &run.Profile); err != nil {
		return nil, fmt.Errorf("load run %s profile: %w", full, err)
	}
	if run.Tree, err = wiki.RestoreTree(run.Profile, []byte(tree)); err != nil {
		return nil, fmt.Errorf("load run %s: %w", full, err)
	}
	if run.Documents, err = s.latestDocuments(ctx, full); err != nil {
		return nil, err
	}
	run.Nodes = len(run.Documents)
	for _, d := range run.Documents {
		if d.Stub() {
			run.Stubs++
		}
	}
	return &run, nil
}

func (s *Store) resolveID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(id), id)
	if err != nil {
		return "", fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var got string
		if err := rows.Scan(&got); err != nil {
			return "", fmt.Errorf("find run: %w", err)
		}
		ids = append(ids, got)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("find run: %w", err)
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return ids[0], nil
	}
	return "", fmt.Errorf("run id %q is ambiguous", id)
}

func (s *Store) latestDocuments(ctx context.Context, runID string) (wiki.Documents, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, generation, status, attempts, failure_kind, content, generated_at
		 FROM documents WHERE run_id = ? ORDER BY node_id, generation`, runID)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	defer rows.Close()

	docs := make(wiki.Documents)
	for rows.Next() {
		var (
			d                  wiki.GeneratedDocument
			node, status, kind string
			at                 string
		)
		if err := rows.Scan(&node, &d.Generation, &status, &d.Attempts, &kind, &d.Content, &at); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if d.GeneratedAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("scan document %s: %w", node, err)
		}
		d.NodeID = wiki.NodeID(node)
		d.Status = wiki.Status(status)
		d.FailureKind = synth.ErrorKind(kind)
		docs[d.NodeID] = d
	}
	return docs, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
