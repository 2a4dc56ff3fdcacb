package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trip-service/internal/mocks"
	"trip-service/internal/models"
)

func setupOrderRouter(handler *OrderHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/orders", handler.CreateOrder)
	r.GET("/orders", handler.ListOrders)
	r.GET("/orders/:order_id", handler.GetOrder)
	r.PUT("/orders/:order_id/status", handler.UpdateStatus)
	r.PUT("/orders/:order_id/cancel", handler.Cancel)
	r.POST("/orders/:order_id/refund", handler.Refund)
	return r
}

const validOrderBody = `{
	"seller_id": 2,
	"delivery_method": "pickup",
	"items": [
		{"gear_id": 11, "gear_name": "4-person tent", "quantity": 1, "unit_price": 25.5,
		 "rental_start": "2026-09-01T00:00:00Z", "rental_end": "2026-09-05T00:00:00Z"}
	]
}`

func TestCreateOrderSuccess(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewOrderHandler(orderRepo, userRepo, nil, nil)
	router := setupOrderRouter(handler)

	userRepo.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	orderRepo.On("CreateOrder", mock.Anything, mock.MatchedBy(func(order models.Order) bool {
		return order.BuyerID == 1 && order.SellerID == 2 &&
			order.Status == models.OrderPending && order.PaymentStatus == models.PaymentUnpaid &&
			len(order.Items) == 1 && order.Items[0].GearName == "4-person tent"
	})).Return(models.Order{ID: 40, BuyerID: 1, SellerID: 2, Status: models.OrderPending, Total: 25.5}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/orders", bytesBuffer(validOrderBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	orderRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestCreateOrderWithSelf(t *testing.T) {
	handler := NewOrderHandler(new(mocks.OrderRepositoryMock), new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	body := `{"seller_id":1,"delivery_method":"pickup","items":[{"gear_id":1,"gear_name":"x","quantity":1,"unit_price":1,"rental_start":"2026-09-01T00:00:00Z","rental_end":"2026-09-02T00:00:00Z"}]}`
	req := httptest.NewRequest(http.MethodPost, "/orders", bytesBuffer(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderRentalEndsBeforeStart(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewOrderHandler(new(mocks.OrderRepositoryMock), userRepo, nil, nil)
	router := setupOrderRouter(handler)

	userRepo.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()

	body := `{"seller_id":2,"delivery_method":"pickup","items":[{"gear_id":1,"gear_name":"x","quantity":1,"unit_price":1,"rental_start":"2026-09-05T00:00:00Z","rental_end":"2026-09-01T00:00:00Z"}]}`
	req := httptest.NewRequest(http.MethodPost, "/orders", bytesBuffer(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusValidTransition(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	orderRepo.On("GetOrder", mock.Anything, 40).Return(models.Order{ID: 40, BuyerID: 2, SellerID: 1, Status: models.OrderPending}, nil).Once()
	orderRepo.On("SetStatus", mock.Anything, 40, models.OrderConfirmed).Return(models.Order{ID: 40, Status: models.OrderConfirmed}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/orders/40/status", bytesBuffer(`{"status":"confirmed"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	orderRepo.AssertExpectations(t)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	orderRepo.On("GetOrder", mock.Anything, 40).Return(models.Order{ID: 40, BuyerID: 2, SellerID: 1, Status: models.OrderPending}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/orders/40/status", bytesBuffer(`{"status":"delivered"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	orderRepo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestBuyerCannotConfirmOrder(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	// caller (user 1) is the buyer here, confirming is the seller's move
	orderRepo.On("GetOrder", mock.Anything, 40).Return(models.Order{ID: 40, BuyerID: 1, SellerID: 2, Status: models.OrderPending}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/orders/40/status", bytesBuffer(`{"status":"confirmed"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	orderRepo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestBuyerCompletesDeliveredOrder(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	orderRepo.On("GetOrder", mock.Anything, 40).Return(models.Order{ID: 40, BuyerID: 1, SellerID: 2, Status: models.OrderDelivered}, nil).Once()
	orderRepo.On("SetStatus", mock.Anything, 40, models.OrderCompleted).Return(models.Order{ID: 40, Status: models.OrderCompleted}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/orders/40/status", bytesBuffer(`{"status":"completed"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	orderRepo.AssertExpectations(t)
}

func TestBuyerCancelsPendingOrder(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	orderRepo.On("GetOrder", mock.Anything, 40).Return(models.Order{ID: 40, BuyerID: 1, SellerID: 2, Status: models.OrderPending}, nil).Once()
	orderRepo.On("SetStatus", mock.Anything, 40, models.OrderCancelled).Return(models.Order{ID: 40, Status: models.OrderCancelled}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/orders/40/status", bytesBuffer(`{"status":"cancelled"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	orderRepo.AssertExpectations(t)
}

func TestCancelShippedOrderRejected(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	orderRepo.On("GetOrder", mock.Anything, 40).Return(models.Order{ID: 40, BuyerID: 1, SellerID: 2, Status: models.OrderShipped}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/orders/40/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	orderRepo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelBySellerRejected(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	orderRepo.On("GetOrder", mock.Anything, 40).Return(models.Order{ID: 40, BuyerID: 2, SellerID: 1, Status: models.OrderPending}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/orders/40/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRefundRequiresSeller(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	orderRepo.On("GetOrder", mock.Anything, 40).Return(models.Order{ID: 40, BuyerID: 1, SellerID: 2, Status: models.OrderCancelled, Total: 50}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/orders/40/refund", bytesBuffer(`{"amount":50,"reason":"cancelled"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	orderRepo.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefundCancelledOrder(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	orderRepo.On("GetOrder", mock.Anything, 40).Return(models.Order{ID: 40, BuyerID: 2, SellerID: 1, Status: models.OrderCancelled, Total: 50}, nil).Once()
	orderRepo.On("Refund", mock.Anything, 40, 50.0, "trip called off").Return(models.Order{ID: 40, Status: models.OrderRefunded, PaymentStatus: models.PaymentRefunded}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/orders/40/refund", bytesBuffer(`{"amount":50,"reason":"trip called off"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	orderRepo.AssertExpectations(t)
}

func TestRefundExceedsTotal(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	orderRepo.On("GetOrder", mock.Anything, 40).Return(models.Order{ID: 40, BuyerID: 2, SellerID: 1, Status: models.OrderDelivered, Total: 50}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/orders/40/refund", bytesBuffer(`{"amount":80,"reason":"oops"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	orderRepo.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefundShippedOrderRejected(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	orderRepo.On("GetOrder", mock.Anything, 40).Return(models.Order{ID: 40, BuyerID: 2, SellerID: 1, Status: models.OrderShipped, Total: 50}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/orders/40/refund", bytesBuffer(`{"amount":50,"reason":"no"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrderHiddenFromStrangers(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	orderRepo.On("GetOrder", mock.Anything, 40).Return(models.Order{ID: 40, BuyerID: 2, SellerID: 3}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/orders/40", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	orderRepo.AssertExpectations(t)
}

func TestListOrdersRoleFilter(t *testing.T) {
	orderRepo := new(mocks.OrderRepositoryMock)
	handler := NewOrderHandler(orderRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupOrderRouter(handler)

	orderRepo.On("ListForUser", mock.Anything, 1).Return([]models.Order{
		{ID: 40, BuyerID: 1, SellerID: 2},
		{ID: 41, BuyerID: 3, SellerID: 1},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/orders?role=seller", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":41`)
	require.NotContains(t, rec.Body.String(), `"id":40`)
	orderRepo.AssertExpectations(t)
}
