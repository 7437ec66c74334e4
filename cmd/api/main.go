// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/dubforge/internal/config"
	"github.com/yourusername/dubforge/internal/jobs"
	"github.com/yourusername/dubforge/internal/media"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// スケジューラとイベントバスの組み立て
	scheduler, bus, err := setupScheduler(cfg)
	if err != nil {
		log.Fatalf("Failed to set up scheduler: %v", err)
	}

	// プロセス再起動からの復元: 実行途中のジョブを中断扱いで再投入する
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	if err := scheduler.LoadJobsFromDatabase(loadCtx); err != nil {
		cancelLoad()
		log.Fatalf("Failed to restore jobs from store: %v", err)
	}
	cancelLoad()
	scheduler.StartWorkers()

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"X-User-ID",
	}
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	setupRoutes(router, scheduler, bus)

	// サーバーの起動と graceful shutdown
	addr := ":" + cfg.Port
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := scheduler.Shutdown(shutdownCtx); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "dubforge-api",
		"version": "0.1.0",
	})
}

// setupRoutes は API グループの配線を行います。
// 認証は前段のレイヤが行い、所有者IDは X-User-ID ヘッダーで受け取ります。
func setupRoutes(router *gin.Engine, scheduler *jobs.Scheduler, bus *jobs.EventBus) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	api := router.Group("/api")
	{
		api.POST("/jobs", jobs.SubmitHandler(scheduler, media.ValidateRefs))
		api.GET("/jobs", jobs.ListHandler(scheduler))
		api.GET("/jobs/:id", jobs.GetHandler(scheduler))
		api.POST("/jobs/:id/start", jobs.StartHandler(scheduler))
		api.POST("/jobs/:id/cancel", jobs.CancelHandler(scheduler))
		api.POST("/jobs/:id/retry", jobs.RetryHandler(scheduler))
		api.DELETE("/jobs/:id", jobs.DeleteHandler(scheduler))

		api.GET("/queue/stats", jobs.StatsHandler(scheduler))
		api.GET("/events", jobs.EventsHandler(bus))
	}
}
