package delivery

import (
	"net/http"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/dto"
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/usecase"

	"github.com/gin-gonic/gin"
)

type IntegrationHandler struct {
	syncUsecase usecase.SyncUsecase
}

func NewIntegrationHandler(syncUsecase usecase.SyncUsecase) *IntegrationHandler {
	return &IntegrationHandler{
		syncUsecase: syncUsecase,
	}
}

// userID comes from the upstream gateway; session middleware is not this
// service's concern.
func currentUserID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

// Connect redirects the browser to the provider consent page. The user ID
// rides along as the OAuth state so the callback can attribute the grant.
func (h *IntegrationHandler) Connect(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	url, err := h.syncUsecase.ConnectURL(c.Param("provider"), userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, url)
}

func (h *IntegrationHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	userID := c.Query("state")
	if code == "" || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code or state"})
		return
	}

	integration, err := h.syncUsecase.HandleCallback(c.Request.Context(), c.Param("provider"), userID, code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, integration)
}

func (h *IntegrationHandler) ListIntegrations(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})
		return
	}

	integrations, err := h.syncUsecase.ListIntegrations(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.IntegrationsResponse{Integrations: integrations})
}

// TriggerSync runs one pass now. The response is always the structured
// outcome, even for a failed pass, so the dashboard can render counts.
func (h *IntegrationHandler) TriggerSync(c *gin.Context) {
	resp, err := h.syncUsecase.RunPass(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *IntegrationHandler) Resume(c *gin.Context) {
	if err := h.syncUsecase.Resume(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "integration resumed"})
}

func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	if err := h.syncUsecase.Disconnect(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "integration disconnected"})
}
