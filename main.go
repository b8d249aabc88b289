package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"learning-progress-system/handlers"
	"learning-progress-system/middleware"
	"learning-progress-system/models"
	"learning-progress-system/services"
	"learning-progress-system/utils"
	"learning-progress-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB — JSON only, no uploads
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	archiveSnapshots := true
	if err := utils.InitObjectStore(); err != nil {
		log.Printf("⚠️  Object store not configured, snapshot archival disabled: %v", err)
		archiveSnapshots = false
	}

	// TranslateError maps unique-violation errors to gorm.ErrDuplicatedKey,
	// which the record store relies on to detect create races.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.ProgressionRecord{},
		&models.CoinTransaction{},
		&models.ProcessedEvent{},
		&models.Course{},
		&models.Unit{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.AchievementDefinition{},
		&models.UserAchievement{},
		&models.LeaderboardSnapshot{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := services.SeedDefaultAchievements(db); err != nil {
		log.Fatal("failed to seed achievement definitions:", err)
	}

	store := services.NewGormRecordStore(db)
	catalog := services.NewGormContentCatalog(db)
	progressionService := services.NewProgressionService(store, catalog, services.NewClock())

	// --- CONFIGURE Content Service Details for Catalog Sync ---
	contentServiceURL := os.Getenv("CONTENT_SERVICE_URL")
	if contentServiceURL == "" {
		log.Fatal("CONTENT_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("PROGRESS_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("PROGRESS_SERVICE_TOKEN environment variable not set")
	}
	// --- END CONFIG ---

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogWorker := workers.NewCatalogSyncWorker(db, contentServiceURL, "/api/v1/public/catalog", serviceToken)
	catalogWorker.Start(ctx)

	scheduler := services.NewLeaderboardScheduler(store, time.Hour, archiveSnapshots)
	scheduler.Start(ctx)

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupProgressionRoutes(app, progressionService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Catalog Sync Worker running")
	log.Println("✅ Leaderboard snapshot scheduler running (every 1h)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
