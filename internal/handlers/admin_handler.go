package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-ticketing/internal/middleware"
	"github.com/smarttransit/bus-ticketing/internal/models"
)

// AdminAuthenticator checks admin credentials and issues tokens
type AdminAuthenticator interface {
	Login(ctx context.Context, email, password string) (*models.AdminLoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AdminLoginResponse, error)
}

// TicketClassifier classifies scanned booking ids
type TicketClassifier interface {
	Classify(ctx context.Context, bookingID string) (*models.TicketVerification, error)
}

// ManifestBuilder builds and renders passenger manifests
type ManifestBuilder interface {
	Build(ctx context.Context, busID, travelDate string) (*models.Manifest, error)
	RenderPDF(m *models.Manifest) ([]byte, string, error)
}

// PaymentAuditReader reads the payment audit trail
type PaymentAuditReader interface {
	ListByPaymentID(ctx context.Context, paymentID string) ([]models.PaymentAudit, error)
}

// JobStatusReporter reports scheduled job state
type JobStatusReporter interface {
	GetJobStatus() map[string]interface{}
}

// AdminHandler serves the fleet administration endpoints
type AdminHandler struct {
	auth      AdminAuthenticator
	workflow  BookingWorkflow
	tickets   TicketClassifier
	manifests ManifestBuilder
	audits    PaymentAuditReader
	jobs      JobStatusReporter
	logger    *logrus.Logger
}

func NewAdminHandler(
	auth AdminAuthenticator,
	workflow BookingWorkflow,
	tickets TicketClassifier,
	manifests ManifestBuilder,
	audits PaymentAuditReader,
	jobs JobStatusReporter,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		auth:      auth,
		workflow:  workflow,
		tickets:   tickets,
		manifests: manifests,
		audits:    audits,
		jobs:      jobs,
		logger:    logger,
	}
}

// Login exchanges admin credentials for a token pair
// POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RefreshToken issues a new access token
// POST /api/admin/refresh
func (h *AdminHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Refund refunds a Paid or Boarded booking without the customer time limit
// POST /api/admin/refund/:bookingId
func (h *AdminHandler) Refund(c *gin.Context) {
	booking, err := h.workflow.AdminRefund(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logAction(c, "refund", booking.ID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Refund initiated",
		"booking": booking,
	})
}

// VerifyTicket classifies a scanned booking id for boarding
// GET /api/admin/verify-ticket/:bookingId
func (h *AdminHandler) VerifyTicket(c *gin.Context) {
	result, err := h.tickets.Classify(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusOK
	if result.Status == models.TicketStatusInvalid {
		status = http.StatusNotFound
	}
	c.JSON(status, result)
}

// ConfirmBoarding marks a booking as Boarded
// PUT /api/admin/confirm-board/:bookingId
func (h *AdminHandler) ConfirmBoarding(c *gin.Context) {
	booking, err := h.workflow.ConfirmBoarding(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logAction(c, "confirm_board", booking.ID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Boarding confirmed",
		"booking": booking,
	})
}

// RevenueStats aggregates revenue, optionally for one bus and/or date
// GET /api/admin/revenue-stats?busId=&date=
func (h *AdminHandler) RevenueStats(c *gin.Context) {
	stats, err := h.workflow.RevenueStats(c.Request.Context(), c.Query("busId"), c.Query("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Manifest lists passengers for a bus and date
// GET /api/admin/manifest?busId=&date=
func (h *AdminHandler) Manifest(c *gin.Context) {
	manifest, err := h.manifests.Build(c.Request.Context(), c.Query("busId"), c.Query("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, manifest)
}

// ManifestPDF renders the passenger manifest as a PDF download
// GET /api/admin/manifest.pdf?busId=&date=
func (h *AdminHandler) ManifestPDF(c *gin.Context) {
	manifest, err := h.manifests.Build(c.Request.Context(), c.Query("busId"), c.Query("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	data, filename, err := h.manifests.RenderPDF(manifest)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// PaymentAudit returns the audit trail of a gateway payment
// GET /api/admin/payments/:paymentId/audit
func (h *AdminHandler) PaymentAudit(c *gin.Context) {
	audits, err := h.audits.ListByPaymentID(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, audits)
}

// JobStatus reports the background jobs
// GET /api/admin/jobs
func (h *AdminHandler) JobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.GetJobStatus())
}

func (h *AdminHandler) logAction(c *gin.Context, action, bookingID string) {
	fields := logrus.Fields{"action": action, "booking_id": bookingID}
	if adminCtx, ok := middleware.GetAdminContext(c); ok {
		fields["admin"] = adminCtx.Email
	}
	h.logger.WithFields(fields).Info("Admin action")
}
