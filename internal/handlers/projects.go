package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/marketplace/internal/middleware"
	"github.com/kartikbazzad/bunbase/marketplace/internal/services"
)

// ProjectHandler handles project endpoints
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// ListBuyerProjects lists the authenticated buyer's projects
func (h *ProjectHandler) ListBuyerProjects(c *gin.Context) {
	claims, ok := middleware.RequireClaims(c)
	if !ok {
		return
	}

	views, err := h.projectService.ListProjectsForBuyer(c.Request.Context(), claims.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// ListAgentProjects lists the authenticated agent's projects
func (h *ProjectHandler) ListAgentProjects(c *gin.Context) {
	claims, ok := middleware.RequireClaims(c)
	if !ok {
		return
	}

	views, err := h.projectService.ListProjectsForAgent(c.Request.Context(), claims.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}
