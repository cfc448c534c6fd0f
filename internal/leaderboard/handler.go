package leaderboard

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rhythmhub/internal/events"
	"rhythmhub/pkg/models"
)

type Handler struct {
	Repo         *Repo
	Hub          *events.Hub
	Log          *zap.Logger
	DefaultLimit int
	MaxLimit     int
}

func NewHandler(repo *Repo, hub *events.Hub, logger *zap.Logger, defaultLimit, maxLimit int) *Handler {
	return &Handler{
		Repo:         repo,
		Hub:          hub,
		Log:          logger,
		DefaultLimit: defaultLimit,
		MaxLimit:     maxLimit,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.submit)
	rg.GET("", h.list)
}

type submitReq struct {
	PlayerName   string  `json:"player_name"`
	SongName     string  `json:"song_name"`
	SongCategory string  `json:"song_category"`
	Score        *int64  `json:"score"` // pointer so an omitted score is detectable
	Combo        int     `json:"combo"`
	Accuracy     float64 `json:"accuracy"`
}

func (h *Handler) submit(c *gin.Context) {
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}

	if strings.TrimSpace(req.PlayerName) == "" ||
		strings.TrimSpace(req.SongName) == "" ||
		strings.TrimSpace(req.SongCategory) == "" ||
		req.Score == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "player_name, song_name, song_category and score required",
		})
		return
	}

	entry := &models.LeaderboardEntry{
		PlayerName:   strings.TrimSpace(req.PlayerName),
		SongName:     strings.TrimSpace(req.SongName),
		SongCategory: strings.TrimSpace(req.SongCategory),
		Score:        *req.Score,
		Combo:        req.Combo,
		Accuracy:     req.Accuracy,
	}

	id, err := h.Repo.Insert(c.Request.Context(), entry)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		h.Log.Error("insert leaderboard entry failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "save failed"})
		return
	}

	if h.Hub != nil {
		ev := events.ScoreEvent{
			Type:         "score.submitted",
			EntryID:      id,
			PlayerName:   entry.PlayerName,
			SongName:     entry.SongName,
			SongCategory: entry.SongCategory,
			Score:        entry.Score,
			At:           time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "score submitted",
		"id":      id,
	})
}

func (h *Handler) list(c *gin.Context) {
	limit := parseInt(c.Query("limit"), h.DefaultLimit)
	if limit <= 0 {
		limit = h.DefaultLimit
	}
	if h.MaxLimit > 0 && limit > h.MaxLimit {
		limit = h.MaxLimit
	}

	entries, err := h.Repo.List(c.Request.Context(), c.Query("song_name"), c.Query("song_category"), limit)
	if err != nil {
		h.Log.Error("list leaderboard failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
