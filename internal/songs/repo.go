package songs

import (
	"context"
	"database/sql"
	"fmt"

	"rhythmhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Insert adds one catalog row and returns the assigned id. Rows are never
// updated afterwards.
func (r *Repo) Insert(ctx context.Context, s *models.Song) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO songs (name, category, difficulty, mp3_path, beatmap_path)
		VALUES (?, ?, ?, ?, ?)
	`, s.Name, s.Category, s.Difficulty, s.MP3Path, s.BeatmapPath)
	if err != nil {
		return 0, fmt.Errorf("%w: insert song: %v", models.ErrPersistence, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: last insert id: %v", models.ErrPersistence, err)
	}
	return id, nil
}

// GetByID returns (nil, nil) when no row matches.
func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Song, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, name, category, difficulty, mp3_path, beatmap_path, created_at
		FROM songs
		WHERE id = ?
	`, id)

	var (
		s       models.Song
		beatmap sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Category, &s.Difficulty, &s.MP3Path, &beatmap, &s.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: scan song: %v", models.ErrPersistence, err)
	}

	if beatmap.Valid {
		s.BeatmapPath = &beatmap.String
	}
	return &s, nil
}

// List returns songs newest first, filtered by exact category when one is
// given.
func (r *Repo) List(ctx context.Context, category string) ([]models.Song, error) {
	sqlStr := `
		SELECT id, name, category, difficulty, mp3_path, beatmap_path, created_at
		FROM songs
	`
	var args []any
	if category != "" {
		sqlStr += " WHERE category = ?"
		args = append(args, category)
	}
	sqlStr += " ORDER BY created_at DESC, id DESC"

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list songs: %v", models.ErrPersistence, err)
	}
	defer rows.Close()

	out := make([]models.Song, 0, 16)
	for rows.Next() {
		var (
			s       models.Song
			beatmap sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.Difficulty, &s.MP3Path, &beatmap, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan song row: %v", models.ErrPersistence, err)
		}
		if beatmap.Valid {
			s.BeatmapPath = &beatmap.String
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows err: %v", models.ErrPersistence, err)
	}
	return out, nil
}
