package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trip-service/internal/models"
	"trip-service/internal/repositories"
	"trip-service/internal/telemetry"
	"trip-service/internal/ws"
)

// OrderHandler manages gear rental orders.
type OrderHandler struct {
	orderRepo repositories.OrderRepository
	userRepo  repositories.UserRepository
	hub       *ws.Hub
	audit     *telemetry.AuditEmitter
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orderRepo repositories.OrderRepository, userRepo repositories.UserRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *OrderHandler {
	return &OrderHandler{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		hub:       hub,
		audit:     audit,
	}
}

type orderItemRequest struct {
	GearID      int       `json:"gear_id" binding:"required"`
	GearName    string    `json:"gear_name" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required,min=1"`
	UnitPrice   float64   `json:"unit_price" binding:"required,min=0"`
	RentalStart time.Time `json:"rental_start" binding:"required"`
	RentalEnd   time.Time `json:"rental_end" binding:"required"`
}

// CreateOrder places a rental order against a seller.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req struct {
		SellerID       int                `json:"seller_id" binding:"required"`
		DeliveryMethod string             `json:"delivery_method" binding:"required"`
		Items          []orderItemRequest `json:"items" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	userID := c.GetInt("userID")
	if req.SellerID == userID {
		respondError(c, http.StatusBadRequest, "cannot order from yourself")
		return
	}
	if _, err := h.userRepo.GetUser(c.Request.Context(), req.SellerID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "seller not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to resolve seller")
		}
		return
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		if !it.RentalEnd.After(it.RentalStart) {
			respondError(c, http.StatusBadRequest, "rental period end must be after start")
			return
		}
		items = append(items, models.OrderItem{
			GearID:      it.GearID,
			GearName:    it.GearName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			RentalStart: it.RentalStart,
			RentalEnd:   it.RentalEnd,
		})
	}

	order, err := h.orderRepo.CreateOrder(c.Request.Context(), models.Order{
		BuyerID:        userID,
		SellerID:       req.SellerID,
		Status:         models.OrderPending,
		PaymentStatus:  models.PaymentUnpaid,
		DeliveryMethod: req.DeliveryMethod,
		Items:          items,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to create order")
		return
	}

	h.notifyOrder(order, "orderCreated")
	h.emitAudit(c, "INFO", "Order created")
	respondOK(c, http.StatusCreated, "order created", gin.H{"order": order})
}

// GetOrder returns an order visible to its buyer or seller.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, ok := h.authorizedOrder(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"order": order})
}

// ListOrders returns orders where the caller is buyer or seller.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID := c.GetInt("userID")
	orders, err := h.orderRepo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list orders")
		return
	}

	switch c.Query("role") {
	case "buyer":
		orders = filterOrders(orders, func(o models.Order) bool { return o.BuyerID == userID })
	case "seller":
		orders = filterOrders(orders, func(o models.Order) bool { return o.SellerID == userID })
	}
	respondOK(c, http.StatusOK, "", gin.H{"orders": orders})
}

func filterOrders(orders []models.Order, keep func(models.Order) bool) []models.Order {
	filtered := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if keep(o) {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// UpdateStatus advances an order along its lifecycle. Which side may request
// a given transition depends on the target status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	order, ok := h.authorizedOrder(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	if !models.CanTransition(order.Status, req.Status) {
		respondError(c, http.StatusBadRequest, "invalid status transition")
		return
	}
	userID := c.GetInt("userID")
	if !transitionAllowedFor(order, userID, req.Status) {
		respondError(c, http.StatusForbidden, "not allowed to perform this transition")
		return
	}

	updated, err := h.orderRepo.SetStatus(c.Request.Context(), order.ID, req.Status)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update order")
		return
	}

	h.notifyOrder(updated, "orderStatusChanged")
	h.emitAudit(c, "INFO", "Order status updated")
	respondOK(c, http.StatusOK, "order updated", gin.H{"order": updated})
}

// Cancel aborts an order that has not shipped yet. Buyer only.
func (h *OrderHandler) Cancel(c *gin.Context) {
	order, ok := h.authorizedOrder(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if order.BuyerID != userID {
		respondError(c, http.StatusForbidden, "only the buyer can cancel an order")
		return
	}
	if !models.CanTransition(order.Status, models.OrderCancelled) {
		respondError(c, http.StatusBadRequest, "order can no longer be cancelled")
		return
	}

	updated, err := h.orderRepo.SetStatus(c.Request.Context(), order.ID, models.OrderCancelled)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to cancel order")
		return
	}

	h.notifyOrder(updated, "orderStatusChanged")
	h.emitAudit(c, "INFO", "Order cancelled")
	respondOK(c, http.StatusOK, "order cancelled", gin.H{"order": updated})
}

// Refund issues a refund on a cancelled or delivered order. Seller only.
func (h *OrderHandler) Refund(c *gin.Context) {
	order, ok := h.authorizedOrder(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if order.SellerID != userID {
		respondError(c, http.StatusForbidden, "only the seller can issue refunds")
		return
	}
	if !models.CanTransition(order.Status, models.OrderRefunded) {
		respondError(c, http.StatusBadRequest, "order is not refundable in its current status")
		return
	}

	var req struct {
		Amount float64 `json:"amount" binding:"required,gt=0"`
		Reason string  `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}
	if req.Amount > order.Total {
		respondError(c, http.StatusBadRequest, "refund amount exceeds order total")
		return
	}

	updated, err := h.orderRepo.Refund(c.Request.Context(), order.ID, req.Amount, req.Reason)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to refund order")
		return
	}

	h.notifyOrder(updated, "orderRefunded")
	h.emitAudit(c, "WARNING", "Order refunded")
	respondOK(c, http.StatusOK, "order refunded", gin.H{"order": updated})
}

// transitionAllowedFor encodes which side of the order drives each change:
// the seller moves it forward through fulfilment, the buyer confirms
// completion and may cancel early.
func transitionAllowedFor(order models.Order, userID int, target string) bool {
	switch target {
	case models.OrderConfirmed, models.OrderShipped, models.OrderDelivered:
		return order.SellerID == userID
	case models.OrderCompleted:
		return order.BuyerID == userID
	case models.OrderCancelled:
		return order.BuyerID == userID
	case models.OrderRefunded:
		return order.SellerID == userID
	default:
		return false
	}
}

func (h *OrderHandler) authorizedOrder(c *gin.Context) (models.Order, bool) {
	orderID, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid order id")
		return models.Order{}, false
	}

	order, err := h.orderRepo.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "order not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to load order")
		}
		return models.Order{}, false
	}

	userID := c.GetInt("userID")
	if order.BuyerID != userID && order.SellerID != userID {
		respondError(c, http.StatusNotFound, "order not found")
		return models.Order{}, false
	}
	return order, true
}

// notifyOrder tells both sides of the order about a change on their
// personal channels.
func (h *OrderHandler) notifyOrder(order models.Order, event string) {
	if h.hub == nil {
		return
	}
	ev := models.Event{Type: event, Payload: order}
	h.hub.SendToUser(order.BuyerID, ev)
	h.hub.SendToUser(order.SellerID, ev)
}

func (h *OrderHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
