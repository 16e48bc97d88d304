package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/marketplace/internal/middleware"
	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/services"
)

// ProposalHandler handles proposal endpoints
type ProposalHandler struct {
	proposalService *services.ProposalService
}

// NewProposalHandler creates a new ProposalHandler
func NewProposalHandler(proposalService *services.ProposalService) *ProposalHandler {
	return &ProposalHandler{proposalService: proposalService}
}

// CreateProposal submits a proposal from the authenticated agent
func (h *ProposalHandler) CreateProposal(c *gin.Context) {
	claims, ok := middleware.RequireClaims(c)
	if !ok {
		return
	}

	var in models.CreateProposalInput
	if !bindJSON(c, &in) {
		return
	}

	p, err := h.proposalService.CreateProposal(c.Request.Context(), claims.Subject, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListBuyerProposals lists proposals made on the authenticated buyer's requests
func (h *ProposalHandler) ListBuyerProposals(c *gin.Context) {
	claims, ok := middleware.RequireClaims(c)
	if !ok {
		return
	}

	views, err := h.proposalService.ListProposalsForBuyer(c.Request.Context(), claims.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// ListAgentProposals lists the authenticated agent's own proposals
func (h *ProposalHandler) ListAgentProposals(c *gin.Context) {
	claims, ok := middleware.RequireClaims(c)
	if !ok {
		return
	}

	views, err := h.proposalService.ListProposalsForAgent(c.Request.Context(), claims.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// AcceptProposal accepts a proposal and returns it with the new project
func (h *ProposalHandler) AcceptProposal(c *gin.Context) {
	claims, ok := middleware.RequireClaims(c)
	if !ok {
		return
	}

	p, project, err := h.proposalService.AcceptProposal(c.Request.Context(), claims.Subject, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Proposal accepted successfully",
		"proposal": p,
		"project":  project,
	})
}

// RejectProposal rejects a proposal
func (h *ProposalHandler) RejectProposal(c *gin.Context) {
	claims, ok := middleware.RequireClaims(c)
	if !ok {
		return
	}

	p, err := h.proposalService.RejectProposal(c.Request.Context(), claims.Subject, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Proposal rejected",
		"proposal": p,
	})
}
