package songs

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rhythmhub/internal/events"
	"rhythmhub/pkg/models"
	"rhythmhub/pkg/storage"
)

type Handler struct {
	Repo   *Repo
	Layout *storage.Layout
	Hub    *events.Hub
	Log    *zap.Logger
	Mount  string
}

func NewHandler(repo *Repo, layout *storage.Layout, hub *events.Hub, logger *zap.Logger, mount string) *Handler {
	return &Handler{Repo: repo, Layout: layout, Hub: hub, Log: logger, Mount: mount}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.GET("", h.list)
	rg.GET("/:id", h.getByID)
}

// songView is the read-side shape: stored paths are translated to public
// URLs and never returned directly.
type songView struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Difficulty string    `json:"difficulty"`
	MP3URL     string    `json:"mp3_url"`
	BeatmapURL *string   `json:"beatmap_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// uploadedSong additionally carries the stored paths, which the upload
// response reports back to the uploader.
type uploadedSong struct {
	songView
	MP3Path     string  `json:"mp3_path"`
	BeatmapPath *string `json:"beatmap_path"`
}

func (h *Handler) view(s *models.Song) songView {
	v := songView{
		ID:         s.ID,
		Name:       s.Name,
		Category:   s.Category,
		Difficulty: s.Difficulty,
		MP3URL:     h.artifactURL(storage.KindAudio, s.Category, s.MP3Path),
		CreatedAt:  s.CreatedAt,
	}
	if s.BeatmapPath != nil {
		u := h.artifactURL(storage.KindBeatmap, s.Category, *s.BeatmapPath)
		v.BeatmapURL = &u
	}
	return v
}

// artifactURL recomposes a stored path's basename under the public mount:
// {mount}/{songs|beatmaps}/{category}/{basename}.
func (h *Handler) artifactURL(kind storage.Kind, category, storedPath string) string {
	return path.Join(h.Mount, string(kind), category, filepath.Base(storedPath))
}

// upload is the whole intake pipeline: multipart parse, destination
// resolution, audio write plus re-verification, optional beatmap (file
// payload or inline JSON), then a single catalog insert. The file write
// and the insert are two sequential fallible steps; a failed insert after
// a successful write leaves the file behind.
func (h *Handler) upload(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	rawCategory := strings.TrimSpace(c.PostForm("category"))
	if name == "" || rawCategory == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "name and category required"})
		return
	}
	category := h.Layout.Normalize(rawCategory)

	audio, err := c.FormFile("mp3")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "uploaded file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "audio file required"})
		return
	}

	audioDir, err := h.Layout.Dir(storage.KindAudio, category)
	if err != nil {
		h.Log.Error("resolve audio dir failed", zap.String("category", category), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "storage unavailable"})
		return
	}

	audioName := storage.AudioFilename(name, c.PostForm("original_filename"))
	audioDst := filepath.Join(audioDir, audioName)
	if err := c.SaveUploadedFile(audio, audioDst); err != nil {
		h.Log.Error("save audio failed", zap.String("dst", audioDst), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": models.ErrStorage.Error()})
		return
	}

	// Re-verify the write actually landed before touching the catalog.
	if fi, err := os.Stat(audioDst); err != nil || fi.Size() == 0 {
		h.Log.Error("audio artifact missing after write", zap.String("dst", audioDst), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": models.ErrStorage.Error()})
		return
	}

	beatmapPath, ok := h.storeBeatmap(c, name, category)
	if !ok {
		return
	}

	song := &models.Song{
		Name:        name,
		Category:    category,
		Difficulty:  normalizeDifficulty(c.PostForm("difficulty")),
		MP3Path:     audioDst,
		BeatmapPath: beatmapPath,
	}

	id, err := h.Repo.Insert(c.Request.Context(), song)
	if err != nil {
		h.Log.Error("insert song failed", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "save failed"})
		return
	}

	saved, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "fetch saved failed"})
		return
	}

	if h.Hub != nil {
		ev := events.SongEvent{
			Type:     "song.uploaded",
			SongID:   saved.ID,
			Name:     saved.Name,
			Category: saved.Category,
			At:       time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "song uploaded",
		"song": uploadedSong{
			songView:    h.view(saved),
			MP3Path:     saved.MP3Path,
			BeatmapPath: saved.BeatmapPath,
		},
	})
}

// storeBeatmap resolves the optional beatmap: a file payload wins over the
// inline JSON field, and malformed inline JSON degrades to "no beatmap"
// rather than aborting the upload. The bool reports whether the request is
// still alive; on false a response has already been written.
func (h *Handler) storeBeatmap(c *gin.Context, name, category string) (*string, bool) {
	dir := func() (string, bool) {
		d, err := h.Layout.Dir(storage.KindBeatmap, category)
		if err != nil {
			h.Log.Error("resolve beatmap dir failed", zap.String("category", category), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "storage unavailable"})
			return "", false
		}
		return d, true
	}

	if file, err := c.FormFile("beatmap"); err == nil {
		d, ok := dir()
		if !ok {
			return nil, false
		}
		dst := filepath.Join(d, storage.BeatmapFilename(name))
		if err := c.SaveUploadedFile(file, dst); err != nil {
			h.Log.Error("save beatmap failed", zap.String("dst", dst), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": models.ErrStorage.Error()})
			return nil, false
		}
		return &dst, true
	}

	raw := c.PostForm("beatmap")
	if raw == "" {
		return nil, true
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		h.Log.Warn("invalid inline beatmap json, storing song without beatmap",
			zap.String("song", name), zap.Error(err))
		return nil, true
	}

	data, err := json.Marshal(parsed)
	if err != nil {
		h.Log.Warn("reserialize inline beatmap failed, storing song without beatmap",
			zap.String("song", name), zap.Error(err))
		return nil, true
	}

	d, ok := dir()
	if !ok {
		return nil, false
	}
	dst := filepath.Join(d, storage.BeatmapFilename(name))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		h.Log.Error("write beatmap failed", zap.String("dst", dst), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": models.ErrStorage.Error()})
		return nil, false
	}
	return &dst, true
}

func (h *Handler) list(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))

	items, err := h.Repo.List(c.Request.Context(), category)
	if err != nil {
		h.Log.Error("list songs failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	views := make([]songView, 0, len(items))
	for i := range items {
		views = append(views, h.view(&items[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	s, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.Log.Error("get song failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": models.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, h.view(s))
}

func normalizeDifficulty(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return "Easy"
	case "hard":
		return "Hard"
	default:
		return "Medium"
	}
}
