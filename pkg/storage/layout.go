package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind selects which artifact tree a path resolves into.
type Kind string

const (
	KindAudio   Kind = "songs"
	KindBeatmap Kind = "beatmaps"
)

// DefaultCategories is the fixed set of buckets partitioning both the
// on-disk trees and the catalog rows. "Other" doubles as the fallback for
// requests naming a category outside the set.
var DefaultCategories = []string{"Rock", "Pop", "Electronic", "Classical", "Other"}

// DefaultFallbackCategory is the bucket unknown categories are filed under.
const DefaultFallbackCategory = "Other"

// Layout resolves and maintains the category-partitioned artifact
// directories under a single root. It is an explicit configuration object;
// construct one in main and pass it down.
type Layout struct {
	Root       string
	Categories []string
	Fallback   string
}

func NewLayout(root string) *Layout {
	return &Layout{
		Root:       root,
		Categories: DefaultCategories,
		Fallback:   DefaultFallbackCategory,
	}
}

// Normalize maps a requested category onto the fixed set, case-insensitively.
// Anything outside the set lands in the fallback bucket.
func (l *Layout) Normalize(category string) string {
	category = strings.TrimSpace(category)
	for _, c := range l.Categories {
		if strings.EqualFold(c, category) {
			return c
		}
	}
	return l.Fallback
}

// EnsureAll eagerly creates every category's audio and beatmap directory
// so per-request checks are normally no-ops.
func (l *Layout) EnsureAll() error {
	for _, c := range l.Categories {
		for _, k := range []Kind{KindAudio, KindBeatmap} {
			if _, err := l.Dir(k, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Dir returns the destination directory for an artifact kind and category,
// creating it (and missing parents) if absent. MkdirAll is idempotent, so
// concurrent in-flight uploads may race here safely.
func (l *Layout) Dir(kind Kind, category string) (string, error) {
	dir := filepath.Join(l.Root, string(kind), l.Normalize(category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure %s dir %s: %w", kind, dir, err)
	}
	return dir, nil
}
