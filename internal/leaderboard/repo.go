package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rhythmhub/pkg/models"
)

const defaultLimit = 50

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Insert adds one immutable play submission. Player, song and category are
// required; combo and accuracy default to zero. Songs are matched by
// name+category text only, never by id.
func (r *Repo) Insert(ctx context.Context, e *models.LeaderboardEntry) (int64, error) {
	if strings.TrimSpace(e.PlayerName) == "" ||
		strings.TrimSpace(e.SongName) == "" ||
		strings.TrimSpace(e.SongCategory) == "" {
		return 0, fmt.Errorf("%w: player_name, song_name and song_category required", models.ErrValidation)
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO leaderboard (player_name, song_name, song_category, score, combo, accuracy)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.PlayerName, e.SongName, e.SongCategory, e.Score, e.Combo, e.Accuracy)
	if err != nil {
		return 0, fmt.Errorf("%w: insert entry: %v", models.ErrPersistence, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: last insert id: %v", models.ErrPersistence, err)
	}
	return id, nil
}

// List returns entries ordered best-first: score, then combo, then
// accuracy, all descending. The limit is sanitized to a positive integer
// before it reaches the query.
func (r *Repo) List(ctx context.Context, songName, category string, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	sqlStr := `
		SELECT id, player_name, song_name, song_category, score, combo, accuracy, created_at
		FROM leaderboard
	`
	var (
		where []string
		args  []any
	)
	if strings.TrimSpace(songName) != "" {
		where = append(where, "song_name = ?")
		args = append(args, strings.TrimSpace(songName))
	}
	if strings.TrimSpace(category) != "" {
		where = append(where, "song_category = ?")
		args = append(args, strings.TrimSpace(category))
	}
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY score DESC, combo DESC, accuracy DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list entries: %v", models.ErrPersistence, err)
	}
	defer rows.Close()

	out := make([]models.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.PlayerName, &e.SongName, &e.SongCategory, &e.Score, &e.Combo, &e.Accuracy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %v", models.ErrPersistence, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows err: %v", models.ErrPersistence, err)
	}
	return out, nil
}
