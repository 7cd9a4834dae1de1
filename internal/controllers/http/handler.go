package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/repository"
	"github.com/manasdevX/ShopEasy-sub001/internal/services"
)

type Handler struct {
	orders        *services.OrderService
	notifications *services.NotificationService
}

func NewHandler(o *services.OrderService, n *services.NotificationService) *Handler {
	return &Handler{orders: o, notifications: n}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/", Identity())

	pay := api.Group("/payment")
	pay.POST("/create-order", h.CreatePaymentOrder)
	pay.POST("/verify-payment", h.VerifyPayment)

	orders := api.Group("/orders")
	orders.POST("", h.CreateCODOrder)
	orders.GET("/myorders", h.MyOrders)
	orders.GET("/seller-orders", h.SellerOrders)
	orders.GET("/:id", h.GetOrder)
	orders.PUT("/:id/status", h.UpdateStatus)
	orders.POST("/:id/cancel", h.CancelOrder)
	orders.PUT("/:id/refund", h.RefundOrder)

	notes := api.Group("/notifications")
	notes.GET("", h.ListNotifications)
	notes.PUT("/:id/read", h.MarkNotificationRead)
}

func (h *Handler) CreatePaymentOrder(c *gin.Context) {
	if callerFrom(c).Role != domain.RoleCustomer {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	var req CreatePaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gwOrder, err := h.orders.CreatePaymentOrder(c.Request.Context(), req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gwOrder)
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	caller := callerFrom(c)
	if caller.Role != domain.RoleCustomer {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, created, err := h.orders.VerifyPaymentAndCreate(c.Request.Context(), req.confirmation(), req.toInput(caller.ID))
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, OrderResponse{Order: order})
}

func (h *Handler) CreateCODOrder(c *gin.Context) {
	caller := callerFrom(c)
	if caller.Role != domain.RoleCustomer {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.CreateCODOrder(c.Request.Context(), req.toInput(caller.ID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, OrderResponse{Order: order})
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) MyOrders(c *gin.Context) {
	page, err := pageFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	orders, err := h.orders.ListMyOrders(c.Request.Context(), callerFrom(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) SellerOrders(c *gin.Context) {
	page, err := pageFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	orders, err := h.orders.ListSellerOrders(c.Request.Context(), callerFrom(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), callerFrom(c), c.Param("id"), services.StatusUpdate{
		Status:    req.Status,
		ProductID: req.ProductID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, OrderResponse{Order: order})
}

func (h *Handler) CancelOrder(c *gin.Context) {
	order, err := h.orders.CancelOrder(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, OrderResponse{Order: order})
}

func (h *Handler) RefundOrder(c *gin.Context) {
	order, err := h.orders.RefundOrder(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, OrderResponse{Order: order})
}

func (h *Handler) ListNotifications(c *gin.Context) {
	caller := callerFrom(c)
	if caller.Role != domain.RoleSeller {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	page, err := pageFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	unread := c.Query("unread") == "true"
	list, err := h.notifications.List(c.Request.Context(), caller, unread, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	caller := callerFrom(c)
	if caller.Role != domain.RoleSeller {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), caller, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "isRead": true})
}

func pageFrom(c *gin.Context) (repository.Page, error) {
	var p repository.Page
	for name, dst := range map[string]*int{"limit": &p.Limit, "offset": &p.Offset} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrValidation, name)
		}
		*dst = n
	}
	return p.Normalize(), nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSignatureMismatch):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicatePayment):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "rid", c.GetString(ctxRequestID), "path", c.FullPath(), "err", err)
	}
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
