// Package repository holds the persistence layer for the starred
// segment cache.
package repository

import (
	"database/sql"
	"fmt"

	"github.com/jpravetz/stravaexport/internal/database"
	"github.com/jpravetz/stravaexport/internal/models"
)

// SegmentRepository handles database operations for the starred
// segment cache.
type SegmentRepository struct {
	db *sql.DB
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(db *sql.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// Upsert inserts or replaces a cached segment.
func (r *SegmentRepository) Upsert(seg models.StarredSegment) error {
	query := `INSERT INTO starred_segments
		(id, name, distance, average_grade, elevation_gain, country, state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			distance = excluded.distance,
			average_grade = excluded.average_grade,
			elevation_gain = excluded.elevation_gain,
			country = excluded.country,
			state = excluded.state,
			updated_at = CURRENT_TIMESTAMP`

	_, err := r.db.Exec(query,
		seg.ID, seg.Name, seg.Distance, seg.AverageGrade, seg.ElevationGain, seg.Country, seg.State)
	if err != nil {
		return fmt.Errorf("failed to upsert segment %d: %w", seg.ID, err)
	}
	return nil
}

// ReplaceAll replaces the whole cache with the given segments in one
// transaction. Used by the segments refresh command.
func (r *SegmentRepository) ReplaceAll(segments []models.StarredSegment) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM starred_segments"); err != nil {
			return fmt.Errorf("failed to clear segment cache: %w", err)
		}
		stmt, err := tx.Prepare(`INSERT INTO starred_segments
			(id, name, distance, average_grade, elevation_gain, country, state, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`)
		if err != nil {
			return fmt.Errorf("failed to prepare segment insert: %w", err)
		}
		defer stmt.Close()

		for _, seg := range segments {
			if _, err := stmt.Exec(seg.ID, seg.Name, seg.Distance, seg.AverageGrade,
				seg.ElevationGain, seg.Country, seg.State); err != nil {
				return fmt.Errorf("failed to insert segment %d: %w", seg.ID, err)
			}
		}
		return nil
	})
}

// Get retrieves a single cached segment by ID. A miss returns
// (nil, nil).
func (r *SegmentRepository) Get(id int64) (*models.StarredSegment, error) {
	query := `SELECT id, name, distance, average_grade, elevation_gain, country, state
		FROM starred_segments WHERE id = ?`

	var s models.StarredSegment
	err := r.db.QueryRow(query, id).Scan(
		&s.ID, &s.Name, &s.Distance, &s.AverageGrade, &s.ElevationGain, &s.Country, &s.State)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get segment %d: %w", id, err)
	}
	return &s, nil
}

// All returns every cached segment ordered by country, state and name,
// which is the order the exporter groups them in.
func (r *SegmentRepository) All() ([]models.StarredSegment, error) {
	query := `SELECT id, name, distance, average_grade, elevation_gain, country, state
		FROM starred_segments ORDER BY country, state, name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var segments []models.StarredSegment
	for rows.Next() {
		var s models.StarredSegment
		if err := rows.Scan(&s.ID, &s.Name, &s.Distance, &s.AverageGrade,
			&s.ElevationGain, &s.Country, &s.State); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, s)
	}

	return segments, rows.Err()
}

// StarredIDs returns the cached segment IDs as the allowlist set used
// when attaching efforts.
func (r *SegmentRepository) StarredIDs() (map[int64]bool, error) {
	rows, err := r.db.Query("SELECT id FROM starred_segments")
	if err != nil {
		return nil, fmt.Errorf("failed to query segment ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan segment id: %w", err)
		}
		ids[id] = true
	}

	return ids, rows.Err()
}
