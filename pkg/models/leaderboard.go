package models

import "time"

// LeaderboardEntry is one completed play submission. Songs are referenced
// by name+category text only; there is no foreign key, so renaming or
// deleting a song orphans its rows.
type LeaderboardEntry struct {
	ID           int64     `json:"id"`
	PlayerName   string    `json:"player_name"`
	SongName     string    `json:"song_name"`
	SongCategory string    `json:"song_category"`
	Score        int64     `json:"score"`
	Combo        int       `json:"combo"`
	Accuracy     float64   `json:"accuracy"`
	CreatedAt    time.Time `json:"created_at"`
}
