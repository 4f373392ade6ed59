package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-ticketing/internal/models"
	"github.com/smarttransit/bus-ticketing/pkg/payment"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return serve(router, req)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// stubWorkflow answers with the configured functions; unset ones panic
type stubWorkflow struct {
	occupiedSeats   func(busID, date string) ([]int, error)
	initBooking     func(req *models.InitBookingRequest) (*models.Booking, error)
	createOrder     func(req *models.CreateOrderRequest) (*payment.Order, error)
	verifyPayment   func(req *models.VerifyPaymentRequest) (*models.Booking, error)
	cancelBooking   func(id string) (*models.Booking, error)
	adminRefund     func(id string) (*models.Booking, error)
	confirmBoarding func(id string) (*models.Booking, error)
	getBooking      func(id string) (*models.Booking, error)
	bookingsByEmail func(email string) ([]models.Booking, error)
	revenueStats    func(busID, date string) (*models.RevenueStats, error)
}

func (s *stubWorkflow) OccupiedSeats(ctx context.Context, busID, date string) ([]int, error) {
	return s.occupiedSeats(busID, date)
}

func (s *stubWorkflow) InitBooking(ctx context.Context, req *models.InitBookingRequest) (*models.Booking, error) {
	return s.initBooking(req)
}

func (s *stubWorkflow) CreatePaymentOrder(ctx context.Context, req *models.CreateOrderRequest) (*payment.Order, error) {
	return s.createOrder(req)
}

func (s *stubWorkflow) VerifyPayment(ctx context.Context, req *models.VerifyPaymentRequest) (*models.Booking, error) {
	return s.verifyPayment(req)
}

func (s *stubWorkflow) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.cancelBooking(id)
}

func (s *stubWorkflow) AdminRefund(ctx context.Context, id string) (*models.Booking, error) {
	return s.adminRefund(id)
}

func (s *stubWorkflow) ConfirmBoarding(ctx context.Context, id string) (*models.Booking, error) {
	return s.confirmBoarding(id)
}

func (s *stubWorkflow) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.getBooking(id)
}

func (s *stubWorkflow) BookingsByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	return s.bookingsByEmail(email)
}

func (s *stubWorkflow) RevenueStats(ctx context.Context, busID, date string) (*models.RevenueStats, error) {
	return s.revenueStats(busID, date)
}
