package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/marketplace/internal/middleware"
	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/services"
)

// RequestHandler handles sourcing request endpoints
type RequestHandler struct {
	requestService *services.RequestService
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(requestService *services.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// CreateRequest creates a request owned by the authenticated buyer
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	claims, ok := middleware.RequireClaims(c)
	if !ok {
		return
	}

	var in models.CreateRequestInput
	if !bindJSON(c, &in) {
		return
	}

	req, err := h.requestService.CreateRequest(c.Request.Context(), claims.Subject, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// ListOwnRequests lists the authenticated buyer's requests
func (h *RequestHandler) ListOwnRequests(c *gin.Context) {
	claims, ok := middleware.RequireClaims(c)
	if !ok {
		return
	}

	reqs, err := h.requestService.ListRequestsForOwner(c.Request.Context(), claims.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

// ListAllRequests lists every request for agents to browse
func (h *RequestHandler) ListAllRequests(c *gin.Context) {
	views, err := h.requestService.ListAllOpenRequests(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// GetRequest returns one request with the buyer's contact fields
func (h *RequestHandler) GetRequest(c *gin.Context) {
	detail, err := h.requestService.GetRequestDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}
