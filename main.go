package main

import (
	"context"
	"log"

	api "github.com/apautomationai/sledge-ai-sub001/cmd/api"
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"
	integrationRepo "github.com/apautomationai/sledge-ai-sub001/internal/integration/repository"
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/scheduler"
	integrationUsecase "github.com/apautomationai/sledge-ai-sub001/internal/integration/usecase"
	"github.com/apautomationai/sledge-ai-sub001/pkg/config"
	"github.com/apautomationai/sledge-ai-sub001/pkg/database"
	"github.com/apautomationai/sledge-ai-sub001/pkg/mailprovider"
	gmailProvider "github.com/apautomationai/sledge-ai-sub001/pkg/mailprovider/gmail"
	outlookProvider "github.com/apautomationai/sledge-ai-sub001/pkg/mailprovider/outlook"
	"github.com/apautomationai/sledge-ai-sub001/pkg/queue"
	"github.com/apautomationai/sledge-ai-sub001/pkg/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&domain.Integration{}, &domain.Attachment{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	integrationRepository := integrationRepo.NewIntegrationRepository(db)
	attachmentRepository := integrationRepo.NewAttachmentRepository(db)

	// Initialize provider adapters
	providers := []mailprovider.Provider{
		gmailProvider.NewAdapter(cfg.GoogleClientID, cfg.GoogleClientSecret),
		outlookProvider.NewAdapter(cfg.MicrosoftClientID, cfg.MicrosoftClientSecret),
	}

	ctx := context.Background()

	// Initialize object storage
	uploader, err := storage.NewGCSUploader(ctx, cfg.StorageBucket, cfg.GoogleCredentials)
	if err != nil {
		log.Fatal("Failed to initialize object storage:", err)
	}
	defer uploader.Close()

	// Initialize downstream processing queue
	enqueuer, err := queue.NewPubSubEnqueuer(ctx, cfg.GoogleProjectID, cfg.PubSubTopic, cfg.GoogleCredentials)
	if err != nil {
		log.Fatal("Failed to initialize processing queue:", err)
	}
	defer enqueuer.Close()

	// Initialize use case (dependency injection)
	syncUsecase := integrationUsecase.NewSyncUsecase(
		integrationRepository,
		attachmentRepository,
		providers,
		uploader,
		enqueuer,
		integrationUsecase.OAuthConfigs(cfg),
		cfg.SyncKeyword,
	)

	// Start the periodic sync scheduler
	syncScheduler := scheduler.NewSyncScheduler(syncUsecase, cfg.SyncInterval)
	syncScheduler.Start()
	defer syncScheduler.Stop()

	// Start server
	r := gin.Default()
	api.SetupRoutes(r, syncUsecase)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
