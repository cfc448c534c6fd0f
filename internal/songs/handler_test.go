package songs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rhythmhub/internal/events"
	"rhythmhub/pkg/database"
	"rhythmhub/pkg/storage"
)

type testEnv struct {
	router *gin.Engine
	repo   *Repo
	layout *storage.Layout
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := database.Open(database.Config{Path: filepath.Join(dir, "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	layout := storage.NewLayout(filepath.Join(dir, "uploads"))
	require.NoError(t, layout.EnsureAll())

	repo := NewRepo(db)
	h := NewHandler(repo, layout, events.NewHub(), zap.NewNop(), "/uploads")

	router := gin.New()
	h.RegisterRoutes(router.Group("/api/songs"))

	return &testEnv{router: router, repo: repo, layout: layout}
}

func uploadRequest(t *testing.T, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".bin")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/songs/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type uploadResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Song    struct {
		ID          int64   `json:"id"`
		Name        string  `json:"name"`
		Category    string  `json:"category"`
		Difficulty  string  `json:"difficulty"`
		MP3Path     string  `json:"mp3_path"`
		BeatmapPath *string `json:"beatmap_path"`
		MP3URL      string  `json:"mp3_url"`
		BeatmapURL  *string `json:"beatmap_url"`
	} `json:"song"`
}

func doUpload(t *testing.T, env *testEnv, fields map[string]string, files map[string][]byte) (*httptest.ResponseRecorder, uploadResp) {
	t.Helper()
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, uploadRequest(t, fields, files))

	var resp uploadResp
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestUploadAndGet(t *testing.T) {
	env := newTestEnv(t)

	w, resp := doUpload(t,
		env,
		map[string]string{"name": "My Song", "category": "Rock"},
		map[string][]byte{"mp3": []byte("fake mp3 bytes")},
	)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, resp.Success)
	require.NotZero(t, resp.Song.ID)
	assert.Equal(t, "My Song", resp.Song.Name)
	assert.Equal(t, "Rock", resp.Song.Category)
	assert.Equal(t, "Medium", resp.Song.Difficulty)
	assert.True(t, strings.HasSuffix(resp.Song.MP3URL, "/uploads/songs/Rock/My_Song.mp3"), resp.Song.MP3URL)
	assert.Nil(t, resp.Song.BeatmapPath)

	// The audio artifact is really on disk.
	fi, err := os.Stat(resp.Song.MP3Path)
	require.NoError(t, err)
	assert.Equal(t, int64(len("fake mp3 bytes")), fi.Size())

	// The returned id is immediately usable.
	w2 := httptest.NewRecorder()
	env.router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/songs/%d", resp.Song.ID), nil))
	require.Equal(t, http.StatusOK, w2.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &got))
	assert.Equal(t, "My Song", got["name"])
	assert.Equal(t, "Rock", got["category"])
	assert.Equal(t, resp.Song.MP3URL, got["mp3_url"])

	// Read endpoints never leak stored paths.
	assert.NotContains(t, got, "mp3_path")
}

func TestUploadMissingNameOrCategory(t *testing.T) {
	env := newTestEnv(t)

	for _, fields := range []map[string]string{
		{"category": "Rock"},
		{"name": "My Song"},
		{},
	} {
		w, _ := doUpload(t, env, fields, map[string][]byte{"mp3": []byte("x")})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "name and category required")
	}

	// No catalog row and no file was created.
	items, err := env.repo.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, filesUnder(t, env.layout.Root))
}

func TestUploadMissingAudio(t *testing.T) {
	env := newTestEnv(t)

	w, _ := doUpload(t, env, map[string]string{"name": "My Song", "category": "Rock"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "audio file required")

	items, err := env.repo.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUploadWithInlineBeatmap(t *testing.T) {
	env := newTestEnv(t)

	w, resp := doUpload(t,
		env,
		map[string]string{
			"name":     "My Song",
			"category": "Pop",
			"beatmap":  `{"bpm":128,"notes":[{"t":0,"lane":1}]}`,
		},
		map[string][]byte{"mp3": []byte("audio")},
	)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, resp.Song.BeatmapPath)
	require.NotNil(t, resp.Song.BeatmapURL)

	data, err := os.ReadFile(*resp.Song.BeatmapPath)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.EqualValues(t, 128, parsed["bpm"])

	base := filepath.Base(*resp.Song.BeatmapPath)
	assert.True(t, strings.HasPrefix(base, "My_Song_"), base)
	assert.True(t, strings.HasSuffix(base, "_beatmap.json"), base)
	assert.True(t, strings.HasSuffix(*resp.Song.BeatmapURL, "/uploads/beatmaps/Pop/"+base), *resp.Song.BeatmapURL)
}

func TestUploadWithMalformedInlineBeatmap(t *testing.T) {
	env := newTestEnv(t)

	w, resp := doUpload(t,
		env,
		map[string]string{"name": "My Song", "category": "Rock", "beatmap": "{this is not json"},
		map[string][]byte{"mp3": []byte("audio")},
	)

	// Lenient policy: the upload still succeeds, just without a beatmap.
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Song.BeatmapPath)
	assert.Nil(t, resp.Song.BeatmapURL)
}

func TestUploadWithBeatmapFilePayload(t *testing.T) {
	env := newTestEnv(t)

	w, resp := doUpload(t,
		env,
		map[string]string{"name": "My Song", "category": "Rock"},
		map[string][]byte{
			"mp3":     []byte("audio"),
			"beatmap": []byte(`{"bpm":90}`),
		},
	)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, resp.Song.BeatmapPath)

	data, err := os.ReadFile(*resp.Song.BeatmapPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bpm":90}`, string(data))
}

func TestUploadUnknownCategoryFallsBack(t *testing.T) {
	env := newTestEnv(t)

	w, resp := doUpload(t,
		env,
		map[string]string{"name": "My Song", "category": "Dubstep"},
		map[string][]byte{"mp3": []byte("audio")},
	)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Other", resp.Song.Category)
	assert.Contains(t, resp.Song.MP3Path, filepath.Join("songs", "Other"))
}

func TestUploadOriginalFilenameHint(t *testing.T) {
	env := newTestEnv(t)

	w, resp := doUpload(t,
		env,
		map[string]string{
			"name":              "My Song",
			"category":          "Rock",
			"original_filename": "live set-final_mix v2 extra tail.flac",
		},
		map[string][]byte{"mp3": []byte("audio")},
	)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "live_set_final_mix_v2.mp3", filepath.Base(resp.Song.MP3Path))
}

func TestUploadSameNameOverwritesAudio(t *testing.T) {
	env := newTestEnv(t)

	_, first := doUpload(t,
		env,
		map[string]string{"name": "My Song", "category": "Rock"},
		map[string][]byte{"mp3": []byte("take one")},
	)
	w, second := doUpload(t,
		env,
		map[string]string{"name": "My Song", "category": "Rock"},
		map[string][]byte{"mp3": []byte("take two, longer")},
	)
	require.Equal(t, http.StatusOK, w.Code)

	// Deterministic audio naming: both rows point at the same file, and the
	// second write won.
	assert.Equal(t, first.Song.MP3Path, second.Song.MP3Path)
	data, err := os.ReadFile(second.Song.MP3Path)
	require.NoError(t, err)
	assert.Equal(t, "take two, longer", string(data))

	items, err := env.repo.List(context.Background(), "Rock")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestListFiltersByCategoryNewestFirst(t *testing.T) {
	env := newTestEnv(t)

	for i, c := range []string{"Rock", "Pop", "Rock"} {
		w, _ := doUpload(t,
			env,
			map[string]string{"name": fmt.Sprintf("Song %d", i), "category": c},
			map[string][]byte{"mp3": []byte("audio")},
		)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/songs?category=Rock", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Song 2", items[0]["name"])
	assert.Equal(t, "Song 0", items[1]["name"])
	for _, it := range items {
		assert.Equal(t, "Rock", it["category"])
	}
}

func TestGetSongNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/songs/9999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func filesUnder(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}
