package httpserver

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-core/internal/domain"
	"storefront-core/internal/gateway"
)

// writeError maps the domain error taxonomy onto HTTP responses. Gateway
// failures surface the upstream status for client-side errors and clamp
// upstream 5xx to 502.
func writeError(c *gin.Context, logger *log.Logger, err error) {
	var gwErr *gateway.Error
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, domain.ErrAmountMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount mismatch"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
	case errors.As(err, &gwErr):
		status := gwErr.StatusCode
		if status >= 500 || status < 400 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": gwErr.Message})
	default:
		logger.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
