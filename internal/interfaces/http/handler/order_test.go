package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apporder "github.com/ecom/order-backend/internal/application/order"
	orderdomain "github.com/ecom/order-backend/internal/domain/order"
	"github.com/ecom/order-backend/internal/domain/shared"
	"github.com/ecom/order-backend/internal/interfaces/http/middleware"
	"github.com/ecom/order-backend/internal/interfaces/http/router"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Create(ctx context.Context, userID string, req apporder.CreateOrderRequest, idempotencyKey string) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, userID, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.OrderResponse), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, id uuid.UUID, userID string, isAdmin bool) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, id, userID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.OrderResponse), args.Error(1)
}

func (m *MockOrderService) ListMine(ctx context.Context, userID string, query apporder.ListOrdersQuery) (*apporder.ListResponse, error) {
	args := m.Called(ctx, userID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.ListResponse), args.Error(1)
}

func (m *MockOrderService) List(ctx context.Context, query apporder.ListOrdersQuery) (*apporder.ListResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.ListResponse), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, id uuid.UUID, userID string, isAdmin bool, reason string) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, id, userID, isAdmin, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.OrderResponse), args.Error(1)
}

func (m *MockOrderService) MarkAsPaid(ctx context.Context, id uuid.UUID) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.OrderResponse), args.Error(1)
}

func (m *MockOrderService) Refund(ctx context.Context, id uuid.UUID, reason string) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.OrderResponse), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req apporder.UpdateStatusRequest) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.OrderResponse), args.Error(1)
}

// fakeAuth injects the identity the JWT middleware would normally set
func fakeAuth(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTUserIDKey, userID)
		c.Set(middleware.JWTRoleKey, role)
		c.Next()
	}
}

func newOrderRouter(svc OrderService, userID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router.RegisterValidators()
	r := gin.New()
	api := r.Group("/api/v1", fakeAuth(userID, role))
	NewOrderHandler(svc, nil).RegisterRoutes(api)
	return r
}

func sampleResponse(id uuid.UUID) *apporder.OrderResponse {
	return &apporder.OrderResponse{
		ID:          id.String(),
		OrderNumber: "ORD2608310001",
		Status:      "pending",
		TotalAmount: decimal.RequireFromString("264.00"),
		CreatedAt:   time.Now().UTC(),
	}
}

func performJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOrderHandlerCreate(t *testing.T) {
	body := gin.H{
		"items":          []gin.H{{"product_id": "prod-1", "quantity": 2}},
		"payment_method": "credit_card",
	}

	t.Run("created", func(t *testing.T) {
		svc := new(MockOrderService)
		id := uuid.New()
		svc.On("Create", mock.Anything, "user-1", mock.AnythingOfType("order.CreateOrderRequest"), "key-1").
			Return(sampleResponse(id), nil)

		r := newOrderRouter(svc, "user-1", "customer")
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "ORD2608310001")
		svc.AssertExpectations(t)
	})

	t.Run("line validation failure returns details", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("Create", mock.Anything, "user-1", mock.Anything, "").
			Return(nil, &orderdomain.LineValidationError{Lines: []orderdomain.LineValidation{
				{ProductID: "prod-1", Status: orderdomain.LineStatusInsufficientStock, Available: 1},
			}})

		r := newOrderRouter(svc, "user-1", "customer")
		w := performJSON(r, http.MethodPost, "/api/v1/orders", body)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "LINE_VALIDATION_FAILED")
		assert.Contains(t, w.Body.String(), "prod-1")
	})

	t.Run("collaborator outage maps to 503", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("Create", mock.Anything, "user-1", mock.Anything, "").
			Return(nil, shared.ErrCollaboratorUnavailable)

		r := newOrderRouter(svc, "user-1", "customer")
		w := performJSON(r, http.MethodPost, "/api/v1/orders", body)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("duplicate request maps to 409", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("Create", mock.Anything, "user-1", mock.Anything, "").
			Return(nil, shared.ErrDuplicateRequest)

		r := newOrderRouter(svc, "user-1", "customer")
		w := performJSON(r, http.MethodPost, "/api/v1/orders", body)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockOrderService)
		r := newOrderRouter(svc, "user-1", "customer")

		w := performJSON(r, http.MethodPost, "/api/v1/orders", gin.H{"items": []gin.H{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Create")
	})
}

func TestOrderHandlerGetByID(t *testing.T) {
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("GetByID", mock.Anything, id, "user-1", false).Return(sampleResponse(id), nil)

		r := newOrderRouter(svc, "user-1", "customer")
		w := performJSON(r, http.MethodGet, "/api/v1/orders/"+id.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("GetByID", mock.Anything, id, "user-1", false).Return(nil, shared.ErrNotFound)

		r := newOrderRouter(svc, "user-1", "customer")
		w := performJSON(r, http.MethodGet, "/api/v1/orders/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("foreign order is forbidden", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("GetByID", mock.Anything, id, "user-2", false).Return(nil, shared.ErrForbidden)

		r := newOrderRouter(svc, "user-2", "customer")
		w := performJSON(r, http.MethodGet, "/api/v1/orders/"+id.String(), nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := new(MockOrderService)
		r := newOrderRouter(svc, "user-1", "customer")
		w := performJSON(r, http.MethodGet, "/api/v1/orders/not-a-uuid", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandlerListMine(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ListMine", mock.Anything, "user-1", mock.MatchedBy(func(q apporder.ListOrdersQuery) bool {
		return q.Status == "pending" && q.Limit == 5
	})).Return(&apporder.ListResponse{
		Orders:     []*apporder.OrderResponse{sampleResponse(uuid.New())},
		TotalCount: 1,
		Limit:      5,
	}, nil)

	r := newOrderRouter(svc, "user-1", "customer")
	w := performJSON(r, http.MethodGet, "/api/v1/orders?status=pending&limit=5", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_count":1`)
}

func TestOrderHandlerCancel(t *testing.T) {
	id := uuid.New()

	t.Run("cancelled", func(t *testing.T) {
		svc := new(MockOrderService)
		resp := sampleResponse(id)
		resp.Status = "cancelled"
		svc.On("Cancel", mock.Anything, id, "user-1", false, "changed my mind").Return(resp, nil)

		r := newOrderRouter(svc, "user-1", "customer")
		w := performJSON(r, http.MethodPost, "/api/v1/orders/"+id.String()+"/cancel",
			gin.H{"reason": "changed my mind"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"cancelled"`)
	})

	t.Run("shipped order cannot be cancelled", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("Cancel", mock.Anything, id, "user-1", false, "too late").
			Return(nil, shared.ErrInvalidState)

		r := newOrderRouter(svc, "user-1", "customer")
		w := performJSON(r, http.MethodPost, "/api/v1/orders/"+id.String()+"/cancel",
			gin.H{"reason": "too late"})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_STATE")
	})

	t.Run("reason is optional", func(t *testing.T) {
		svc := new(MockOrderService)
		resp := sampleResponse(id)
		resp.Status = "cancelled"
		svc.On("Cancel", mock.Anything, id, "user-1", false, "").Return(resp, nil)

		r := newOrderRouter(svc, "user-1", "customer")
		w := performJSON(r, http.MethodPost, "/api/v1/orders/"+id.String()+"/cancel", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestOrderHandlerMarkAsPaid(t *testing.T) {
	id := uuid.New()

	svc := new(MockOrderService)
	svc.On("GetByID", mock.Anything, id, "user-1", false).Return(sampleResponse(id), nil)
	paid := sampleResponse(id)
	paid.Status = "confirmed"
	svc.On("MarkAsPaid", mock.Anything, id).Return(paid, nil)

	r := newOrderRouter(svc, "user-1", "customer")
	w := performJSON(r, http.MethodPost, "/api/v1/orders/"+id.String()+"/pay", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"confirmed"`)
}

func TestOrderHandlerAdminRoutes(t *testing.T) {
	id := uuid.New()

	t.Run("customer blocked from admin list", func(t *testing.T) {
		svc := new(MockOrderService)
		r := newOrderRouter(svc, "user-1", "customer")
		w := performJSON(r, http.MethodGet, "/api/v1/admin/orders", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		svc.AssertNotCalled(t, "List")
	})

	t.Run("admin list", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("List", mock.Anything, mock.Anything).Return(&apporder.ListResponse{
			Orders:     []*apporder.OrderResponse{sampleResponse(uuid.New())},
			TotalCount: 1,
		}, nil)

		r := newOrderRouter(svc, "admin-1", "admin")
		w := performJSON(r, http.MethodGet, "/api/v1/admin/orders", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("refund", func(t *testing.T) {
		svc := new(MockOrderService)
		refunded := sampleResponse(id)
		refunded.Status = "refunded"
		svc.On("Refund", mock.Anything, id, "damaged in transit").Return(refunded, nil)

		r := newOrderRouter(svc, "admin-1", "admin")
		w := performJSON(r, http.MethodPost, "/api/v1/admin/orders/"+id.String()+"/refund",
			gin.H{"reason": "damaged in transit"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"refunded"`)
	})

	t.Run("update status", func(t *testing.T) {
		svc := new(MockOrderService)
		shipped := sampleResponse(id)
		shipped.Status = "shipped"
		svc.On("UpdateStatus", mock.Anything, id, mock.MatchedBy(func(req apporder.UpdateStatusRequest) bool {
			return req.Status == "shipped" && req.TrackingNumber == "TRK-42"
		})).Return(shipped, nil)

		r := newOrderRouter(svc, "admin-1", "admin")
		w := performJSON(r, http.MethodPut, "/api/v1/admin/orders/"+id.String()+"/status",
			gin.H{"status": "shipped", "tracking_number": "TRK-42"})

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
