package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/shopspring/decimal"
)

type OrderItemRequest struct {
	ServiceRef  string          `json:"service_ref"`
	ServiceName string          `json:"service_name" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateOrderRequest struct {
	UserID string             `json:"user_id" binding:"required"`
	Items  []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type orderResponse struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Items     []domain.OrderItem `json:"items"`
	Total     string             `json:"total"`
	Currency  string             `json:"currency"`
	Status    domain.OrderStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Items:     o.Items,
		Total:     domain.FromMinorUnits(o.TotalMinor).StringFixed(2),
		Currency:  o.Currency,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// CreateOrder handles POST /api/v1/orders
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
			"code":    "VALIDATION_ERROR",
		})
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.OrderItem{
			ServiceRef:     it.ServiceRef,
			ServiceName:    it.ServiceName,
			Quantity:       it.Quantity,
			UnitPriceMinor: domain.ToMinorUnits(it.UnitPrice),
		})
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), req.UserID, items)
	if err != nil {
		h.respondError(c, "CreateOrder", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order": toOrderResponse(order)})
}

// GetOrder handles GET /api/v1/orders/:id
func (h *PaymentHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "GetOrder", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": toOrderResponse(order)})
}

// CancelOrder handles POST /api/v1/orders/:id/cancel
func (h *PaymentHandler) CancelOrder(c *gin.Context) {
	order, err := h.orders.CancelOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "CancelOrder", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": toOrderResponse(order)})
}
