package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apporder "github.com/ecom/order-backend/internal/application/order"
	"github.com/ecom/order-backend/internal/interfaces/http/dto"
	"github.com/ecom/order-backend/internal/interfaces/http/middleware"
)

// IdempotencyKeyHeader carries the client-supplied key for safe retries
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderService is the application-layer contract the handler depends on
type OrderService interface {
	Create(ctx context.Context, userID string, req apporder.CreateOrderRequest, idempotencyKey string) (*apporder.OrderResponse, error)
	GetByID(ctx context.Context, id uuid.UUID, userID string, isAdmin bool) (*apporder.OrderResponse, error)
	ListMine(ctx context.Context, userID string, query apporder.ListOrdersQuery) (*apporder.ListResponse, error)
	List(ctx context.Context, query apporder.ListOrdersQuery) (*apporder.ListResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, userID string, isAdmin bool, reason string) (*apporder.OrderResponse, error)
	MarkAsPaid(ctx context.Context, id uuid.UUID) (*apporder.OrderResponse, error)
	Refund(ctx context.Context, id uuid.UUID, reason string) (*apporder.OrderResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req apporder.UpdateStatusRequest) (*apporder.OrderResponse, error)
}

// OrderHandler exposes the order API
type OrderHandler struct {
	BaseHandler
	service OrderService
}

// NewOrderHandler creates an order handler
func NewOrderHandler(service OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// RegisterRoutes mounts the order routes on the API group
func (h *OrderHandler) RegisterRoutes(api *gin.RouterGroup) {
	orders := api.Group("/orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.ListMine)
		orders.GET("/:id", h.GetByID)
		orders.POST("/:id/cancel", h.Cancel)
		orders.POST("/:id/pay", h.MarkAsPaid)
	}

	admin := api.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/orders", h.List)
		admin.POST("/orders/:id/refund", h.Refund)
		admin.PUT("/orders/:id/status", h.UpdateStatus)
	}
}

// Create handles POST /api/v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	var req apporder.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Create(c.Request.Context(), userID, req, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, resp)
}

// GetByID handles GET /api/v1/orders/:id
func (h *OrderHandler) GetByID(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	id, ok := h.bindID(c)
	if !ok {
		return
	}

	resp, err := h.service.GetByID(c.Request.Context(), id, userID, middleware.IsAdmin(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListMine handles GET /api/v1/orders
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	var query apporder.ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.ListMine(c.Request.Context(), userID, query)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}

// List handles GET /api/v1/admin/orders
func (h *OrderHandler) List(c *gin.Context) {
	var query apporder.ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}

// Cancel handles POST /api/v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	id, ok := h.bindID(c)
	if !ok {
		return
	}

	// Reason is optional, so an empty body is fine
	var req apporder.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Cancel(c.Request.Context(), id, userID, middleware.IsAdmin(c), req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}

// MarkAsPaid handles POST /api/v1/orders/:id/pay.
// Stands in for the payment provider callback until one is integrated.
func (h *OrderHandler) MarkAsPaid(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	id, ok := h.bindID(c)
	if !ok {
		return
	}

	// Owner check happens before the payment transition
	if _, err := h.service.GetByID(c.Request.Context(), id, userID, middleware.IsAdmin(c)); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp, err := h.service.MarkAsPaid(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}

// Refund handles POST /api/v1/admin/orders/:id/refund
func (h *OrderHandler) Refund(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	var req apporder.RefundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Refund(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}

// UpdateStatus handles PUT /api/v1/admin/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	var req apporder.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}

func (h *OrderHandler) bindID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "invalid order id")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}
