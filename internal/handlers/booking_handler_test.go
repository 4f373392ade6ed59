package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smarttransit/bus-ticketing/internal/database"
	"github.com/smarttransit/bus-ticketing/internal/models"
	"github.com/smarttransit/bus-ticketing/internal/services"
	"github.com/smarttransit/bus-ticketing/pkg/payment"
	"github.com/stretchr/testify/assert"
)

func setupBookingRouter(workflow *stubWorkflow) *gin.Engine {
	router := newTestRouter()
	handler := NewBookingHandler(workflow, quietLogger())
	paymentHandler := NewPaymentHandler(workflow, quietLogger())

	router.GET("/api/bookings/occupied", handler.GetOccupiedSeats)
	router.POST("/api/bookings/init", handler.InitBooking)
	router.POST("/api/bookings/verify", handler.VerifyPayment)
	router.POST("/api/bookings/cancel/:bookingId", handler.CancelBooking)
	router.GET("/api/bookings/user/:email", handler.GetUserBookings)
	router.GET("/api/bookings/:bookingId", handler.GetBooking)
	router.POST("/api/payment/order", paymentHandler.CreateOrder)
	return router
}

func validInitBody(busID string) map[string]interface{} {
	return map[string]interface{}{
		"busId":         busID,
		"seatNumbers":   []int{3, 4},
		"customerEmail": "nimal@example.com",
		"customerName":  "Nimal Perera",
		"customerPhone": "0771234567",
		"amount":        560,
		"travelDate":    "2025-01-01",
	}
}

func TestGetOccupiedSeats(t *testing.T) {
	busID := uuid.New().String()
	router := setupBookingRouter(&stubWorkflow{
		occupiedSeats: func(gotBus, date string) ([]int, error) {
			assert.Equal(t, busID, gotBus)
			assert.Equal(t, "2025-01-01", date)
			return []int{3, 4}, nil
		},
	})

	w := performRequest(router, "GET", "/api/bookings/occupied?busId="+busID+"&date=2025-01-01", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[3,4]`, w.Body.String())
}

func TestGetOccupiedSeats_EmptyIsArray(t *testing.T) {
	router := setupBookingRouter(&stubWorkflow{
		occupiedSeats: func(busID, date string) ([]int, error) { return []int{}, nil },
	})

	w := performRequest(router, "GET", "/api/bookings/occupied?busId="+uuid.New().String()+"&date=2025-01-01", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetOccupiedSeats_MissingParams(t *testing.T) {
	router := setupBookingRouter(&stubWorkflow{})

	w := performRequest(router, "GET", "/api/bookings/occupied?busId=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["success"])
}

func TestInitBooking(t *testing.T) {
	busID := uuid.New().String()
	bookingID := uuid.New().String()
	router := setupBookingRouter(&stubWorkflow{
		initBooking: func(req *models.InitBookingRequest) (*models.Booking, error) {
			assert.Equal(t, []int{3, 4}, req.SeatNumbers)
			assert.Equal(t, 560.0, req.Amount)
			return &models.Booking{ID: bookingID, Amount: 560, Status: models.BookingStatusPending}, nil
		},
	})

	w := performRequest(router, "POST", "/api/bookings/init", validInitBody(busID))
	assert.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, bookingID, body["bookingId"])
}

func TestInitBooking_BadRequests(t *testing.T) {
	busID := uuid.New().String()

	tests := []struct {
		name       string
		mutate     func(map[string]interface{})
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"missing email", func(b map[string]interface{}) { delete(b, "customerEmail") }, nil, http.StatusBadRequest, "validation_error"},
		{"malformed email", func(b map[string]interface{}) { b["customerEmail"] = "nimal" }, nil, http.StatusBadRequest, "validation_error"},
		{"amount mismatch", func(b map[string]interface{}) {}, fmt.Errorf("%w: expected 560.00", services.ErrAmountMismatch), http.StatusBadRequest, "amount_mismatch"},
		{"unknown bus", func(b map[string]interface{}) {}, services.ErrBusNotFound, http.StatusNotFound, "bus_not_found"},
		{"seats held", func(b map[string]interface{}) {}, &services.SeatUnavailableError{Seats: []int{4}}, http.StatusConflict, "seat_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupBookingRouter(&stubWorkflow{
				initBooking: func(req *models.InitBookingRequest) (*models.Booking, error) {
					return nil, tt.serviceErr
				},
			})

			body := validInitBody(busID)
			tt.mutate(body)
			w := performRequest(router, "POST", "/api/bookings/init", body)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeBody(t, w)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tt.wantCode, resp["error"])
			assert.NotEmpty(t, resp["message"])
		})
	}
}

func TestVerifyPayment(t *testing.T) {
	bookingID := uuid.New().String()
	body := map[string]interface{}{
		"razorpay_order_id":   "order_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "sig",
		"bookingId":           bookingID,
	}

	t.Run("success", func(t *testing.T) {
		router := setupBookingRouter(&stubWorkflow{
			verifyPayment: func(req *models.VerifyPaymentRequest) (*models.Booking, error) {
				assert.Equal(t, "order_1", req.OrderID)
				assert.Equal(t, "pay_1", req.PaymentID)
				assert.Equal(t, "sig", req.Signature)
				return &models.Booking{ID: bookingID, Status: models.BookingStatusPaid}, nil
			},
		})

		w := performRequest(router, "POST", "/api/bookings/verify", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["success"])
	})

	t.Run("signature mismatch", func(t *testing.T) {
		router := setupBookingRouter(&stubWorkflow{
			verifyPayment: func(req *models.VerifyPaymentRequest) (*models.Booking, error) {
				return nil, services.ErrInvalidSignature
			},
		})

		w := performRequest(router, "POST", "/api/bookings/verify", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeBody(t, w)
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "invalid_signature", resp["error"])
	})

	t.Run("already refunded", func(t *testing.T) {
		router := setupBookingRouter(&stubWorkflow{
			verifyPayment: func(req *models.VerifyPaymentRequest) (*models.Booking, error) {
				return nil, fmt.Errorf("%w: booking is Refunded", services.ErrStatusConflict)
			},
		})

		w := performRequest(router, "POST", "/api/bookings/verify", body)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("payment already used by another booking", func(t *testing.T) {
		router := setupBookingRouter(&stubWorkflow{
			verifyPayment: func(req *models.VerifyPaymentRequest) (*models.Booking, error) {
				return nil, fmt.Errorf("failed to mark booking paid: %w", database.ErrDuplicatePayment)
			},
		})

		w := performRequest(router, "POST", "/api/bookings/verify", body)
		assert.Equal(t, http.StatusConflict, w.Code)
		resp := decodeBody(t, w)
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "duplicate_payment", resp["error"])
	})
}

func TestCancelBooking(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"cancelled", nil, http.StatusOK, ""},
		{"window expired", services.ErrCancelWindowExpired, http.StatusBadRequest, "cancel_window_expired"},
		{"not paid", services.ErrNotEligible, http.StatusBadRequest, "not_eligible"},
		{"missing booking", services.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupBookingRouter(&stubWorkflow{
				cancelBooking: func(id string) (*models.Booking, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &models.Booking{ID: id, Status: models.BookingStatusRefunded}, nil
				},
			})

			w := performRequest(router, "POST", "/api/bookings/cancel/"+uuid.New().String(), nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			resp := decodeBody(t, w)
			assert.NotEmpty(t, resp["message"])
			if tt.err == nil {
				assert.Equal(t, true, resp["success"])
			} else {
				assert.Equal(t, tt.wantCode, resp["error"])
			}
		})
	}
}

func TestCancelBooking_GatewayErrorIsGeneric(t *testing.T) {
	router := setupBookingRouter(&stubWorkflow{
		cancelBooking: func(id string) (*models.Booking, error) {
			return nil, fmt.Errorf("refund payment: %w", &payment.GatewayError{Op: "refund", StatusCode: 500, Description: "secret upstream detail"})
		},
	})

	w := performRequest(router, "POST", "/api/bookings/cancel/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "secret upstream detail")
}

func TestGetUserBookings(t *testing.T) {
	router := setupBookingRouter(&stubWorkflow{
		bookingsByEmail: func(email string) ([]models.Booking, error) {
			assert.Equal(t, "Nimal@Example.com", email)
			return []models.Booking{{ID: "b1", Bus: &models.Bus{Name: "Night Express"}}}, nil
		},
	})

	w := performRequest(router, "GET", "/api/bookings/user/Nimal@Example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Night Express")
}

func TestGetBooking_InternalErrorHidden(t *testing.T) {
	router := setupBookingRouter(&stubWorkflow{
		getBooking: func(id string) (*models.Booking, error) {
			return nil, fmt.Errorf("pq: relation \"bookings\" does not exist")
		},
	})

	w := performRequest(router, "GET", "/api/bookings/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "relation")
}

func TestCreatePaymentOrder(t *testing.T) {
	router := setupBookingRouter(&stubWorkflow{
		createOrder: func(req *models.CreateOrderRequest) (*payment.Order, error) {
			assert.Equal(t, 560.0, req.Amount)
			return &payment.Order{ID: "order_1", Amount: 56000, Currency: "INR", Status: "created"}, nil
		},
	})

	w := performRequest(router, "POST", "/api/payment/order", map[string]interface{}{"amount": 560})
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody(t, w)
	assert.Equal(t, "order_1", resp["id"])
	assert.Equal(t, float64(56000), resp["amount"])
}

func TestCreatePaymentOrder_InvalidAmount(t *testing.T) {
	router := setupBookingRouter(&stubWorkflow{})

	for _, amount := range []interface{}{0, -10, "abc"} {
		w := performRequest(router, "POST", "/api/payment/order", map[string]interface{}{"amount": amount})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}
