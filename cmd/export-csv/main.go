package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"rhythmhub/pkg/database"
)

func main() {
	var (
		songsOut = flag.String("songs", "data/songs.csv", "output CSV path for songs")
		lbOut    = flag.String("leaderboard", "data/leaderboard.csv", "output CSV path for leaderboard entries")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportSongs(ctx, db, *songsOut); err != nil {
		log.Fatalf("export songs failed: %v", err)
	}
	if err := exportLeaderboard(ctx, db, *lbOut); err != nil {
		log.Fatalf("export leaderboard failed: %v", err)
	}

	log.Printf("exported songs to %s and leaderboard to %s", *songsOut, *lbOut)
}

func exportSongs(ctx context.Context, db *sql.DB, outPath string) error {
	w, closeFn, err := openWriter(outPath)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := w.Write([]string{"id", "name", "category", "difficulty", "mp3_path", "beatmap_path", "created_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, category, difficulty, mp3_path, beatmap_path, created_at
		FROM songs
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        int64
			name      string
			category  string
			diff      string
			mp3Path   string
			beatmap   sql.NullString
			createdAt time.Time
		)
		if err := rows.Scan(&id, &name, &category, &diff, &mp3Path, &beatmap, &createdAt); err != nil {
			return err
		}
		if err := w.Write([]string{
			strconv.FormatInt(id, 10), name, category, diff,
			mp3Path, beatmap.String, createdAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportLeaderboard(ctx context.Context, db *sql.DB, outPath string) error {
	w, closeFn, err := openWriter(outPath)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := w.Write([]string{"id", "player_name", "song_name", "song_category", "score", "combo", "accuracy", "created_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, player_name, song_name, song_category, score, combo, accuracy, created_at
		FROM leaderboard
		ORDER BY score DESC, combo DESC, accuracy DESC
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        int64
			player    string
			song      string
			category  string
			score     int64
			combo     int
			accuracy  float64
			createdAt time.Time
		)
		if err := rows.Scan(&id, &player, &song, &category, &score, &combo, &accuracy, &createdAt); err != nil {
			return err
		}
		if err := w.Write([]string{
			strconv.FormatInt(id, 10), player, song, category,
			strconv.FormatInt(score, 10), strconv.Itoa(combo),
			strconv.FormatFloat(accuracy, 'f', -1, 64),
			createdAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func openWriter(outPath string) (*csv.Writer, func(), error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, err
	}
	return csv.NewWriter(f), func() { _ = f.Close() }, nil
}
