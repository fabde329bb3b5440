// Package handlers adapts HTTP requests to the services. Every error
// response has the shape {"success": false, "message": "..."}.
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"foodhub/internal/apperr"
	"foodhub/internal/services"
)

const requestTimeout = 5 * time.Second

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
	}
}

// RecoveryHandler is the gin.CustomRecovery callback for panics outside
// handlePanic's reach.
func RecoveryHandler(c *gin.Context, recovered any) {
	log.Printf("[HTTP] [ERROR] panic on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// respondError maps err onto its status. Internal causes are logged and
// replaced by a generic message.
func respondError(c *gin.Context, route string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[%s] returning error %d: %v", route, status, err)
	} else {
		log.Printf("[%s] returning error %d: %s", route, status, apperr.Message(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": apperr.Message(err)})
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// respondValidationError reports a binding failure. Rule violations are
// phrased the same way the services phrase them.
func respondValidationError(c *gin.Context, route string, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondError(c, route, services.ValidationError(err))
		return
	}
	respondWithError(c, http.StatusBadRequest, route, "Invalid request body")
}
