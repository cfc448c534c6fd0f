package models

import "time"

// Song is one uploaded track plus its optional beatmap. Rows are written
// once by the upload pipeline and never updated or deleted.
type Song struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Difficulty  string    `json:"difficulty"`
	MP3Path     string    `json:"mp3_path"`
	BeatmapPath *string   `json:"beatmap_path"`
	CreatedAt   time.Time `json:"created_at"`
}
