package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kartikbazzad/bunbase/marketplace/pkg/errors"
	"github.com/kartikbazzad/bunbase/marketplace/pkg/logger"
)

// respondError maps err to its HTTP status and writes {"error": message}. Internal errors
// are logged and their cause is never sent to the client.
func respondError(c *gin.Context, err error) {
	status := apperrors.StatusOf(err)
	if apperrors.KindOf(err) == apperrors.KindInternal {
		logger.FromContext(c.Request.Context()).Error("Request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperrors.PublicMessage(err)})
}

// bindJSON decodes the body into dst, answering 400 on malformed JSON.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}
