package httpserver

import (
	"net/http"

	"marketplace-api/internal/domain"
	ordersvc "marketplace-api/internal/service/order"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

func (h *handlers) checkout(c *gin.Context) {
	var in ordersvc.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	o, err := h.orders.Checkout(c.Request.Context(), identity(c), in)
	if err != nil {
		h.writeError(c, "checkout", err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *handlers) listOrders(c *gin.Context) {
	list, err := h.orders.ListForUser(c.Request.Context(), identity(c))
	if err != nil {
		h.writeError(c, "list orders", err)
		return
	}
	c.JSON(http.StatusOK, nonNilOrders(list))
}

func (h *handlers) listAllOrders(c *gin.Context) {
	list, err := h.orders.ListAll(c.Request.Context(), identity(c), domain.OrderStatus(c.Query("status")))
	if err != nil {
		h.writeError(c, "list all orders", err)
		return
	}
	c.JSON(http.StatusOK, nonNilOrders(list))
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "get order", err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) payOrder(c *gin.Context) {
	o, err := h.orders.MarkPaid(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "pay order", err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) cancelOrder(c *gin.Context) {
	o, err := h.orders.Cancel(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "cancel order", err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	o, err := h.orders.UpdateStatus(c.Request.Context(), identity(c), c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, "update order status", err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func nonNilOrders(list []domain.Order) []domain.Order {
	if list == nil {
		return []domain.Order{}
	}
	return list
}
