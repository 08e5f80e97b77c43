package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"bookshelf-backend/internal/imagestore"
	"bookshelf-backend/internal/platform/apierr"
	"bookshelf-backend/internal/platform/auth"
	"bookshelf-backend/internal/platform/db"
	"bookshelf-backend/internal/platform/ratelimit"
	"bookshelf-backend/internal/shelf/books"
	"bookshelf-backend/internal/shelf/bulkimport"
	"bookshelf-backend/internal/shelf/conversion"
	"bookshelf-backend/internal/shelf/lending"
	"bookshelf-backend/internal/shelf/stats"
	"bookshelf-backend/internal/shelf/wishlist"
)

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig(db.ConfigPath())
	if err != nil {
		log.Fatal(err)
	}

	// 動作モード取得
	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if mode != "dev" && mode != "release" {
		fmt.Println("config: mode must be dev or release")
		os.Exit(2)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("[ERROR] auth.jwt_secret is required")
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	r := newRouter(cfg, conn)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tls := cfg.Certificate.Cert != "" && cfg.Certificate.Key != ""
	go func() {
		var err error
		if tls {
			log.Printf("[INFO] listening on https://%s", cfg.Server.Addr)
			err = srv.ListenAndServeTLS(cfg.Certificate.Cert, cfg.Certificate.Key)
		} else {
			log.Printf("[INFO] listening on http://%s", cfg.Server.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}

func newRouter(cfg *db.Config, conn *sql.DB) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Location"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := conn.PingContext(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	// /api
	api := r.Group("/api")
	api.Use(ratelimit.New(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window).Middleware())
	api.Use(auth.RequireAuth([]byte(cfg.Auth.JWTSecret)))

	books.RegisterRoutes(api, books.NewService(conn))
	wishlist.RegisterRoutes(api, wishlist.NewService(conn))
	conversion.RegisterRoutes(api, conversion.NewService(conn))
	lending.RegisterRoutes(api, lending.NewService(conn))
	stats.RegisterRoutes(api, stats.NewService(conn))

	images := imagestore.New(imagestore.Config{
		URL:           cfg.ImageStore.URL,
		Timeout:       cfg.ImageStore.Timeout,
		RatePerSecond: cfg.ImageStore.RatePerSecond,
		Burst:         cfg.ImageStore.Burst,
	})
	pipeline := bulkimport.NewPipeline(cfg.Import.PhotosDir, images, bulkimport.NewSQLSink(conn), cfg.Import.UploadConcurrency)
	var fallback bulkimport.Source
	if cfg.Import.SourceFile != "" {
		fallback = bulkimport.FileSource{Path: cfg.Import.SourceFile}
	}
	bulkimport.RegisterRoutes(api, pipeline, fallback)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, apierr.Body(apierr.CodeNotFound, "route not found"))
	})
	return r
}
