package evaluation

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/logging"
)

// Archive persists high-quality candidates into SQLite so later pipeline
// stages can mine them. The engine consumes only the score; whether
// persistence succeeded is this collaborator's concern alone.
type Archive struct {
	db *sql.DB
}

// ArchivedCandidate is one persisted row.
type ArchivedCandidate struct {
	Fingerprint string
	LineageID   string
	Generation  int
	Content     string
	Score       float64
	CreatedAt   time.Time
}

// NewArchive opens (or creates) the archive database at path.
func NewArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to open archive database")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	archive := &Archive{db: db}
	if err := archive.initDB(); err != nil {
		db.Close()
		return nil, err
	}

	// WAL keeps concurrent evaluation workers from serializing on inserts.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.Unknown, "failed to enable WAL mode")
	}

	return archive, nil
}

func (a *Archive) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS archived_candidates (
		fingerprint TEXT PRIMARY KEY,
		lineage_id TEXT NOT NULL,
		generation INTEGER NOT NULL,
		content TEXT NOT NULL,
		score REAL NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_score ON archived_candidates(score);
	`

	_, err := a.db.Exec(query)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to initialize archive schema")
	}
	return nil
}

// Put inserts a scored candidate, keeping the higher score when the same
// fingerprint arrives twice.
func (a *Archive) Put(ctx context.Context, c *core.Candidate, score float64) error {
	query := `
	INSERT INTO archived_candidates (fingerprint, lineage_id, generation, content, score, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(fingerprint) DO UPDATE SET
		score = excluded.score,
		lineage_id = excluded.lineage_id,
		generation = excluded.generation
	WHERE excluded.score > archived_candidates.score
	`

	_, err := a.db.ExecContext(ctx, query,
		c.Fingerprint(), c.LineageID, c.Generation, c.Gene.ToText(), score, time.Now().UnixNano())
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to archive candidate")
	}
	return nil
}

// BestN returns the n highest-scoring archived candidates.
func (a *Archive) BestN(ctx context.Context, n int) ([]ArchivedCandidate, error) {
	rows, err := a.db.QueryContext(ctx, `
	SELECT fingerprint, lineage_id, generation, content, score, created_at
	FROM archived_candidates ORDER BY score DESC, fingerprint ASC LIMIT ?`, n)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to query archive")
	}
	defer rows.Close()

	var results []ArchivedCandidate
	for rows.Next() {
		var row ArchivedCandidate
		var createdAt int64
		if err := rows.Scan(&row.Fingerprint, &row.LineageID, &row.Generation,
			&row.Content, &row.Score, &createdAt); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to scan archive row")
		}
		row.CreatedAt = time.Unix(0, createdAt)
		results = append(results, row)
	}
	return results, rows.Err()
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// ArchiveEvaluator decorates an evaluator with score-and-persist behavior:
// candidates scoring at or above the threshold are written to the archive.
// Persistence failures are logged and swallowed; the score still flows back
// to the engine.
type ArchiveEvaluator struct {
	inner     Evaluator
	archive   *Archive
	threshold float64
}

// NewArchiveEvaluator wraps inner with archival at the given threshold.
func NewArchiveEvaluator(inner Evaluator, archive *Archive, threshold float64) *ArchiveEvaluator {
	return &ArchiveEvaluator{
		inner:     inner,
		archive:   archive,
		threshold: threshold,
	}
}

// Evaluate implements the Evaluator interface.
func (e *ArchiveEvaluator) Evaluate(ctx context.Context, c *core.Candidate) (Score, error) {
	score, err := e.inner.Evaluate(ctx, c)
	if err != nil {
		return score, err
	}

	if score.Value >= e.threshold {
		if putErr := e.archive.Put(ctx, c, score.Value); putErr != nil {
			logging.GetLogger().Warn(ctx, "Failed to archive candidate %s: %v", c.LineageID, putErr)
		}
	}
	return score, nil
}
