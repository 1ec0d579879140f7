package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trialingestor/internal/domain"
	"trialingestor/internal/ports"
)

// JSONStore keeps one file per study under <dataDir>/studies. It is the
// development backend; the Postgres store serves production.
type JSONStore struct {
	dataDir    string
	studiesDir string
}

var _ ports.StudyStore = (*JSONStore)(nil)

// NewJSONStore creates the data directories if needed.
func NewJSONStore(dataDir string) (*JSONStore, error) {
	studiesDir := filepath.Join(dataDir, "studies")
	if err := os.MkdirAll(studiesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create studies dir: %w", err)
	}

	return &JSONStore{dataDir: dataDir, studiesDir: studiesDir}, nil
}

// Get loads a study by NCT id; ports.ErrNotFound when absent.
func (s *JSONStore) Get(ctx context.Context, nctID string) (*domain.Study, error) {
	raw, err := os.ReadFile(s.path(nctID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("read study %s: %w", nctID, err)
	}

	var study domain.Study
	if err := json.Unmarshal(raw, &study); err != nil {
		return nil, fmt.Errorf("decode study %s: %w", nctID, err)
	}

	return &study, nil
}

// Save persists the study, stamping CreatedAt on first write and UpdatedAt
// on every write. Returns the study id.
func (s *JSONStore) Save(ctx context.Context, study *domain.Study) (string, error) {
	if study.NCTID == "" {
		return "", fmt.Errorf("study has no NCT ID")
	}

	now := time.Now().UTC()
	if study.CreatedAt.IsZero() {
		if existing, err := s.Get(ctx, study.NCTID); err == nil {
			study.CreatedAt = existing.CreatedAt
		} else {
			study.CreatedAt = now
		}
	}
	study.UpdatedAt = now

	raw, err := json.MarshalIndent(study, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode study %s: %w", study.NCTID, err)
	}

	if err := os.WriteFile(s.path(study.NCTID), raw, 0o644); err != nil {
		return "", fmt.Errorf("write study %s: %w", study.NCTID, err)
	}

	return study.NCTID, nil
}

// ListIDs returns every stored study id.
func (s *JSONStore) ListIDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.studiesDir)
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}

// Stats reports record counts by kind.
func (s *JSONStore) Stats(ctx context.Context) (map[string]int, error) {
	ids, err := s.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	withResults := 0
	for _, id := range ids {
		study, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		if study.HasResults {
			withResults++
		}
	}

	return map[string]int{
		"studies":            len(ids),
		"studiesWithResults": withResults,
	}, nil
}

func (s *JSONStore) path(nctID string) string {
	return filepath.Join(s.studiesDir, nctID+".json")
}
