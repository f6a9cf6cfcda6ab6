package api

import (
	"net/http"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/delivery"
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/usecase"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, syncUsecase usecase.SyncUsecase) {
	integrationHandler := delivery.NewIntegrationHandler(syncUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		oauth := api.Group("/oauth")
		{
			oauth.GET("/:provider/connect", integrationHandler.Connect)
			oauth.GET("/:provider/callback", integrationHandler.Callback)
		}

		integrations := api.Group("/integrations")
		{
			integrations.GET("", integrationHandler.ListIntegrations)
			integrations.POST("/:id/sync", integrationHandler.TriggerSync)
			integrations.POST("/:id/resume", integrationHandler.Resume)
			integrations.DELETE("/:id", integrationHandler.Disconnect)
		}
	}
}
