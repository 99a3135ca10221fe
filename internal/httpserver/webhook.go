package httpserver

import (
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	paymentsvc "storefront-core/internal/service/payment"
)

const (
	signatureHeader = "x-webhook-signature"
	timestampHeader = "x-webhook-timestamp"
)

// webhookHandler ingests gateway callbacks. The raw attempt is durably logged
// by the service before any processing; an invalid signature yields 401 but
// is still on record.
func webhookHandler(svc *paymentsvc.Service, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		headers := make(map[string]string, len(c.Request.Header))
		for name, values := range c.Request.Header {
			headers[strings.ToLower(name)] = strings.Join(values, ",")
		}

		result, err := svc.HandleWebhook(
			c.Request.Context(),
			c.GetHeader(signatureHeader),
			c.GetHeader(timestampHeader),
			headers,
			raw,
		)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		if result == paymentsvc.ResultUnknownRef {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": string(result)})
	}
}
