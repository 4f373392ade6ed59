package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-ticketing/internal/models"
)

// PaymentHandler creates gateway orders for checkout
type PaymentHandler struct {
	workflow BookingWorkflow
	logger   *logrus.Logger
}

func NewPaymentHandler(workflow BookingWorkflow, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{workflow: workflow, logger: logger}
}

// CreateOrder requests a gateway order; amount is in major units
// POST /api/payment/order
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.workflow.CreatePaymentOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}
