package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"trialingestor/internal/domain"
	"trialingestor/internal/ports"
)

// PostgresStore persists studies as JSONB documents keyed by NCT id.
//
// Schema:
//
//	CREATE TABLE studies (
//	    nct_id     TEXT PRIMARY KEY,
//	    document   JSONB NOT NULL,
//	    has_results BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.StudyStore = (*PostgresStore)(nil)

// NewPostgresStore wires an open sql.DB.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// OpenPostgres opens and pings a Postgres connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Get loads a study by NCT id; ports.ErrNotFound when absent.
func (s *PostgresStore) Get(ctx context.Context, nctID string) (*domain.Study, error) {
	query, args, err := s.sb.
		Select("document").
		From("studies").
		Where(sq.Eq{"nct_id": nctID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var document []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&document); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("query study %s: %w", nctID, err)
	}

	var study domain.Study
	if err := json.Unmarshal(document, &study); err != nil {
		return nil, fmt.Errorf("decode study %s: %w", nctID, err)
	}

	return &study, nil
}

// Save upserts the study document, stamping CreatedAt on insert and
// UpdatedAt on every write. Returns the study id.
func (s *PostgresStore) Save(ctx context.Context, study *domain.Study) (string, error) {
	if study.NCTID == "" {
		return "", fmt.Errorf("study has no NCT ID")
	}

	now := time.Now().UTC()
	if study.CreatedAt.IsZero() {
		study.CreatedAt = now
	}
	study.UpdatedAt = now

	document, err := json.Marshal(study)
	if err != nil {
		return "", fmt.Errorf("encode study %s: %w", study.NCTID, err)
	}

	query, args, err := s.sb.
		Insert("studies").
		Columns("nct_id", "document", "has_results", "created_at", "updated_at").
		Values(study.NCTID, document, study.HasResults, study.CreatedAt, study.UpdatedAt).
		Suffix(`ON CONFLICT (nct_id) DO UPDATE
			SET document = EXCLUDED.document,
			    has_results = EXCLUDED.has_results,
			    updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("upsert study %s: %w", study.NCTID, err)
	}

	return study.NCTID, nil
}

// ListIDs returns every stored study id.
func (s *PostgresStore) ListIDs(ctx context.Context) ([]string, error) {
	query, args, err := s.sb.
		Select("nct_id").
		From("studies").
		OrderBy("nct_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return ids, nil
}

// Stats reports record counts by kind.
func (s *PostgresStore) Stats(ctx context.Context) (map[string]int, error) {
	query, args, err := s.sb.
		Select("COUNT(*)", "COUNT(*) FILTER (WHERE has_results)").
		From("studies").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count: %w", err)
	}

	var total, withResults int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total, &withResults); err != nil {
		return nil, fmt.Errorf("count studies: %w", err)
	}

	return map[string]int{
		"studies":            total,
		"studiesWithResults": withResults,
	}, nil
}
