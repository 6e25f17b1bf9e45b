package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRoadmapNotFound is returned when a roadmap lookup yields no results.
var ErrRoadmapNotFound = errors.New("roadmap not found")

// RoadmapRecord represents a persisted planner graph in the database.
type RoadmapRecord struct {
	Path      string
	Data      []byte
	UpdatedAt time.Time
}

// RoadmapStore provides roadmap blob persistence. It implements the
// roadmap.Store contract over a single upsert-keyed table, so deployments
// sharing one database share warm-started roadmaps across daemon restarts.
type RoadmapStore struct {
	db *pgxpool.Pool
}

// NewRoadmapStore creates a RoadmapStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRoadmapStore(db *pgxpool.Pool) *RoadmapStore {
	return &RoadmapStore{db: db}
}

// Save upserts the blob under path.
//
// Precondition: path must be non-empty.
// Postcondition: A later Load(path) returns exactly data.
func (s *RoadmapStore) Save(ctx context.Context, path string, data []byte) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO roadmaps (path, data, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		path, data,
	)
	if err != nil {
		return fmt.Errorf("saving roadmap %s: %w", path, err)
	}
	return nil
}

// Load reads the blob stored under path.
//
// Postcondition: Returns the blob or ErrRoadmapNotFound.
func (s *RoadmapStore) Load(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT data FROM roadmaps WHERE path = $1`,
		path,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRoadmapNotFound, path)
		}
		return nil, fmt.Errorf("loading roadmap %s: %w", path, err)
	}
	return data, nil
}

// List returns metadata for every stored roadmap, newest first. Used by
// operational tooling to inspect what a deployment has accumulated.
func (s *RoadmapStore) List(ctx context.Context) ([]RoadmapRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT path, updated_at FROM roadmaps ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing roadmaps: %w", err)
	}
	defer rows.Close()

	var records []RoadmapRecord
	for rows.Next() {
		var rec RoadmapRecord
		if err := rows.Scan(&rec.Path, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning roadmap row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roadmap rows: %w", err)
	}
	return records, nil
}

// Delete removes the blob stored under path.
//
// Postcondition: Returns ErrRoadmapNotFound if no blob was stored under path.
func (s *RoadmapStore) Delete(ctx context.Context, path string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM roadmaps WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("deleting roadmap %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRoadmapNotFound, path)
	}
	return nil
}
