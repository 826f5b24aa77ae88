package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	orderdomain "github.com/ecom/order-backend/internal/domain/order"
	"github.com/ecom/order-backend/internal/domain/shared"
	"github.com/ecom/order-backend/internal/interfaces/http/dto"
	"github.com/ecom/order-backend/internal/interfaces/http/middleware"
)

// BaseHandler provides shared response helpers for HTTP handlers
type BaseHandler struct {
	logger *zap.Logger
}

// NewBaseHandler creates a base handler
func NewBaseHandler(logger *zap.Logger) BaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return BaseHandler{logger: logger}
}

// Success sends a 200 response with data
func (h *BaseHandler) Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 response with data
func (h *BaseHandler) Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ErrorWithCode sends an error response, deriving the HTTP status from the code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	status := dto.GetHTTPStatus(code)
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeBadRequest, message)
}

// HandleDomainError maps application and domain errors to HTTP responses
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	var lineErr *orderdomain.LineValidationError
	if errors.As(err, &lineErr) {
		details := make([]dto.ValidationDetail, 0, len(lineErr.Lines))
		for _, line := range lineErr.Lines {
			message := line.Message
			if message == "" {
				message = string(line.Status)
			}
			details = append(details, dto.ValidationDetail{
				Field:   line.ProductID,
				Message: message,
			})
		}
		c.JSON(http.StatusUnprocessableEntity, dto.NewValidationErrorResponse(
			dto.ErrCodeLineValidation, "one or more order lines failed validation", details))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.ErrorWithCode(c, code, domainErr.Message)
		return
	}

	h.logger.Error("unhandled error",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Error(err),
	)
	h.ErrorWithCode(c, dto.ErrCodeInternal, "internal server error")
}

// getUserID retrieves the authenticated user id, aborting with 401 when absent
func (h *BaseHandler) getUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetJWTUserID(c)
	if !ok {
		h.ErrorWithCode(c, dto.ErrCodeUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}
