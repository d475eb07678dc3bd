package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// pageParam reads ?page=N. Missing or malformed values fall back to the
// first page.
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// ListOrders handles GET /api/admin/orders?page=N&status=S
func (h *Handlers) ListOrders(c *gin.Context) {
	page, err := h.orderService.ListOrders(c.Request.Context(), pageParam(c), c.Query("status"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetOrder handles GET /api/admin/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateOrderStatus handles PUT /api/admin/orders/:id
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithContext(c.Request.Context()).Warn("Failed to bind status update", logging.Fields{"error": err.Error()})
		errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.OrderStatus)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   order,
	})
}

// DeleteOrder handles DELETE /api/admin/orders/:id
func (h *Handlers) DeleteOrder(c *gin.Context) {
	if err := h.orderService.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MyOrders handles GET /api/orders/me
func (h *Handlers) MyOrders(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		handleError(c, errors.ErrUnauthorized)
		return
	}

	page, err := h.orderService.MyOrders(c.Request.Context(), user.ID, pageParam(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// CanReview handles GET /api/orders/can_review?productId=
func (h *Handlers) CanReview(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		handleError(c, errors.ErrUnauthorized)
		return
	}

	canReview, err := h.orderService.CanReview(c.Request.Context(), user.ID, c.Query("productId"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"canReview": canReview})
}
