package storage

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// fallbackName is used whenever sanitization leaves nothing usable.
const fallbackName = "song"

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	wordSplit   = regexp.MustCompile(`[\s_-]+`)
)

// Sanitize replaces every character outside [A-Za-z0-9_-] with an
// underscore. The result never contains path separators, NUL bytes or
// dots, so it is safe to join onto a destination directory as-is.
func Sanitize(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}

// AudioFilename derives the stored name for an audio artifact. It is a
// pure function of its inputs: the same song uploaded twice lands on the
// same file (deliberate overwrite, see upload pipeline notes). When a
// client-side filename hint is given, the first five delimited words of it
// (extension stripped) are used instead of the song name.
func AudioFilename(name, originalFilename string) string {
	base := strings.TrimSpace(name)
	if hint := strings.TrimSpace(originalFilename); hint != "" {
		hint = strings.TrimSuffix(hint, filepath.Ext(hint))
		words := wordSplit.Split(hint, -1)
		kept := make([]string, 0, 5)
		for _, w := range words {
			if w == "" {
				continue
			}
			kept = append(kept, w)
			if len(kept) == 5 {
				break
			}
		}
		base = strings.Join(kept, "_")
	}

	base = Sanitize(base)
	if strings.Trim(base, "_") == "" {
		base = fallbackName
	}
	return base + ".mp3"
}

// BeatmapFilename derives a globally collision-resistant name for a
// beatmap artifact: sanitized song name, millisecond timestamp and a short
// random token. Two uploads in the same millisecond still differ because
// of the token.
func BeatmapFilename(name string) string {
	base := Sanitize(strings.TrimSpace(name))
	if strings.Trim(base, "_") == "" {
		base = fallbackName
	}
	return fmt.Sprintf("%s_%d_%s_beatmap.json", base, time.Now().UnixMilli(), randomToken(6))
}

func randomToken(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}
