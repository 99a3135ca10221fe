package httpserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	cartsvc "storefront-core/internal/service/cart"
)

type createCartRequest struct {
	UserID string `json:"userId"`
}

func createCartHandler(svc *cartsvc.Service, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
			return
		}
		cart, err := svc.EnsureCart(c.Request.Context(), req.UserID)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cart": cart})
	}
}

func getCartHandler(svc *cartsvc.Service, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svc.GetCart(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

type putItemsRequest struct {
	Items []cartsvc.ItemInput `json:"items"`
}

func putItemsHandler(svc *cartsvc.Service, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req putItemsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "items array is required"})
			return
		}
		applied, err := svc.UpsertItems(c.Request.Context(), c.Param("id"), req.Items)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": applied})
	}
}

func deleteItemHandler(svc *cartsvc.Service, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cartID := c.Param("id")
		itemID := c.Param("itemId")
		if err := svc.RemoveItem(c.Request.Context(), cartID, itemID); err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"item_id": itemID})
	}
}
