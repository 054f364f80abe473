package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"mimestore/config"
	"mimestore/db"
	"mimestore/handlers"
	"mimestore/logging"
	"mimestore/models"
	"mimestore/storage"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		panic(err)
	}

	logging.Init(cfg.Log.Level, cfg.Log.Format)
	defer logging.Sync()

	// Provision the active user's storage tree and catalog schema. Both are
	// idempotent, so restarting heals any partially created state.
	loc, err := storage.Provision(cfg.Storage.BaseDir, cfg.Storage.User)
	if err != nil {
		logging.Fatalf("provision storage: %v", err)
	}
	gdb, err := db.Open(loc.DBPath)
	if err != nil {
		logging.Fatalf("open catalog: %v", err)
	}
	if err := models.Migrate(gdb); err != nil {
		logging.Fatalf("migrate catalog: %v", err)
	}
	logging.Infow("storage ready", "user", cfg.Storage.User, "root", loc.Root, "catalog", loc.DBPath)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := handlers.New(loc, gdb)
	api.Register(r.Group("/api"))

	logging.Infof("server starting on %s", cfg.Server.Addr)
	if err := r.Run(cfg.Server.Addr); err != nil {
		logging.Fatalf("server failed to start: %v", err)
	}
}
