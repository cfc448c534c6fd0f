package database

import (
	"database/sql"
	"fmt"
)

// schema is applied on every start; all statements are idempotent.
//
// leaderboard rows reference songs by (song_name, song_category) text only.
// There is deliberately no foreign key: renaming or deleting a song orphans
// its leaderboard rows, which the API accepts.
const schema = `
CREATE TABLE IF NOT EXISTS songs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  difficulty TEXT NOT NULL DEFAULT 'Medium',
  mp3_path TEXT NOT NULL,
  beatmap_path TEXT,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_songs_category ON songs(category);
CREATE INDEX IF NOT EXISTS idx_songs_created_at ON songs(created_at);

CREATE TABLE IF NOT EXISTS leaderboard (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  player_name TEXT NOT NULL,
  song_name TEXT NOT NULL,
  song_category TEXT NOT NULL,
  score INTEGER NOT NULL,
  combo INTEGER NOT NULL DEFAULT 0,
  accuracy REAL NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_leaderboard_song ON leaderboard(song_name, song_category);
CREATE INDEX IF NOT EXISTS idx_leaderboard_score ON leaderboard(score DESC);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
