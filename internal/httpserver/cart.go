package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.carts.Read(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.writeError(c, "get cart", err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "productId is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	cart, err := h.carts.Add(c.Request.Context(), identity(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(c, "add to cart", err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) setCartQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cart, err := h.carts.SetQuantity(c.Request.Context(), identity(c).UserID, c.Param("productId"), req.Quantity)
	if err != nil {
		h.writeError(c, "set cart quantity", err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) removeFromCart(c *gin.Context) {
	cart, err := h.carts.Remove(c.Request.Context(), identity(c).UserID, c.Param("productId"))
	if err != nil {
		h.writeError(c, "remove from cart", err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), identity(c).UserID); err != nil {
		h.writeError(c, "clear cart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}
