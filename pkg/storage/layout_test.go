package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAllCreatesEveryBucket(t *testing.T) {
	root := t.TempDir()
	l := NewLayout(root)
	require.NoError(t, l.EnsureAll())

	for _, c := range l.Categories {
		for _, k := range []Kind{KindAudio, KindBeatmap} {
			fi, err := os.Stat(filepath.Join(root, string(k), c))
			require.NoError(t, err)
			assert.True(t, fi.IsDir())
		}
	}

	// Idempotent: a second pass over existing directories is not an error.
	require.NoError(t, l.EnsureAll())
}

func TestNormalize(t *testing.T) {
	l := NewLayout(t.TempDir())

	assert.Equal(t, "Rock", l.Normalize("Rock"))
	assert.Equal(t, "Rock", l.Normalize("rock"))
	assert.Equal(t, "Electronic", l.Normalize(" electronic "))
	assert.Equal(t, "Other", l.Normalize("Dubstep"))
	assert.Equal(t, "Other", l.Normalize(""))
}

func TestDirResolvesAndCreates(t *testing.T) {
	root := t.TempDir()
	l := NewLayout(root)

	dir, err := l.Dir(KindAudio, "Rock")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "songs", "Rock"), dir)

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	// Unknown categories land in the fallback bucket.
	dir, err = l.Dir(KindBeatmap, "not-a-genre")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "beatmaps", "Other"), dir)
}
