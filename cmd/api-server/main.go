package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rhythmhub/internal/config"
	"rhythmhub/internal/events"
	"rhythmhub/internal/leaderboard"
	"rhythmhub/internal/songs"
	"rhythmhub/pkg/database"
	"rhythmhub/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db := database.MustOpen(database.Config{Path: cfg.Database.Path})
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("db migrate failed", zap.Error(err))
	}

	layout := storage.NewLayout(cfg.Storage.Root)
	if err := layout.EnsureAll(); err != nil {
		logger.Fatal("create upload directories failed", zap.Error(err))
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"message":   "rhythmhub api",
			"timestamp": time.Now().UTC(),
		})
	})

	hub := events.NewHub()
	router.GET("/ws", events.WSHandler(hub, logger))

	// Uploaded artifacts are served straight from the layout root, so the
	// URLs the API hands out resolve against this process.
	router.Static(cfg.Storage.PublicMount, cfg.Storage.Root)

	songRepo := songs.NewRepo(db)
	songHandler := songs.NewHandler(songRepo, layout, hub, logger, cfg.Storage.PublicMount)
	songGroup := router.Group("/api/songs")
	songGroup.Use(maxBodySize(cfg.Upload.MaxSizeMiB << 20))
	songHandler.RegisterRoutes(songGroup)

	lbRepo := leaderboard.NewRepo(db)
	lbHandler := leaderboard.NewHandler(lbRepo, hub, logger, cfg.Leaderboard.DefaultLimit, cfg.Leaderboard.MaxLimit)
	lbHandler.RegisterRoutes(router.Group("/api/leaderboard"))

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// corsMiddleware lets the browser-based game client reach the API from
// another origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Accept, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// maxBodySize rejects oversized uploads before any handler logic runs.
func maxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
