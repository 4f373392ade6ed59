package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-ticketing/internal/models"
	"github.com/smarttransit/bus-ticketing/pkg/payment"
)

const testKeySecret = "rzp_test_secret"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeBusStore struct {
	buses map[string]*models.Bus
}

func (f *fakeBusStore) GetByID(ctx context.Context, id string) (*models.Bus, error) {
	bus, ok := f.buses[id]
	if !ok {
		return nil, nil
	}
	cp := *bus
	return &cp, nil
}

type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	clock    func() time.Time
}

func newFakeBookingStore(clock func() time.Time) *fakeBookingStore {
	return &fakeBookingStore{bookings: make(map[string]*models.Booking), clock: clock}
}

func (f *fakeBookingStore) Create(ctx context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.Status = models.BookingStatusPending
	b.BookingDate = f.clock()
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeBookingStore) put(b models.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[b.ID] = &b
}

func (f *fakeBookingStore) get(id string) models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.bookings[id]
}

func (f *fakeBookingStore) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookingStore) GetByIDWithBus(ctx context.Context, id string) (*models.Booking, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeBookingStore) OccupiedSeats(ctx context.Context, busID, travelDate string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[int]bool{}
	seats := []int{}
	for _, b := range f.bookings {
		if b.BusID != busID || b.TravelDate != travelDate || !b.Status.OccupiesSeats() {
			continue
		}
		for _, s := range b.SeatNumbers {
			if !seen[s] {
				seen[s] = true
				seats = append(seats, s)
			}
		}
	}
	sort.Ints(seats)
	return seats, nil
}

func (f *fakeBookingStore) SetOrderID(ctx context.Context, id, orderID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != models.BookingStatusPending {
		return false, nil
	}
	b.OrderID = &orderID
	return true, nil
}

func (f *fakeBookingStore) MarkPaid(ctx context.Context, id, orderID, paymentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != models.BookingStatusPending {
		return false, nil
	}
	b.Status = models.BookingStatusPaid
	b.OrderID = &orderID
	b.PaymentID = &paymentID
	return true, nil
}

func (f *fakeBookingStore) MarkPaidIfSeatsFree(ctx context.Context, id, orderID, paymentID string) (bool, []int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != models.BookingStatusPending {
		return false, nil, nil
	}
	var taken []int
	for _, other := range f.bookings {
		if other.ID == id || other.BusID != b.BusID || other.TravelDate != b.TravelDate || !other.Status.OccupiesSeats() {
			continue
		}
		for _, seat := range b.SeatNumbers {
			if other.SeatNumbers.Contains(seat) {
				taken = append(taken, seat)
			}
		}
	}
	if len(taken) > 0 {
		sort.Ints(taken)
		return false, taken, nil
	}
	b.Status = models.BookingStatusPaid
	b.OrderID = &orderID
	b.PaymentID = &paymentID
	return true, nil, nil
}

func (f *fakeBookingStore) TransitionStatus(ctx context.Context, id string, to models.BookingStatus, from ...models.BookingStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || !containsStatus(from, b.Status) {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (f *fakeBookingStore) ListByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Booking{}
	for _, b := range f.bookings {
		if strings.EqualFold(b.CustomerEmail, email) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) ListForManifest(ctx context.Context, busID, travelDate string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Booking{}
	for _, b := range f.bookings {
		if b.BusID == busID && b.TravelDate == travelDate && b.Status.OccupiesSeats() {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBookingStore) RevenueStats(ctx context.Context, busID, travelDate *string) (*models.RevenueStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.RevenueStats{BusID: busID, TravelDate: travelDate}
	for _, b := range f.bookings {
		if busID != nil && b.BusID != *busID {
			continue
		}
		if travelDate != nil && b.TravelDate != *travelDate {
			continue
		}
		if b.Status.OccupiesSeats() {
			stats.TotalRevenue += b.Amount
			stats.TotalBookings++
			stats.TotalSeats += len(b.SeatNumbers)
		}
	}
	return stats, nil
}

type fakeSeatHolds struct {
	mu    sync.Mutex
	holds map[string]string // bus|date|seat -> booking id
}

func newFakeSeatHolds() *fakeSeatHolds {
	return &fakeSeatHolds{holds: make(map[string]string)}
}

func (f *fakeSeatHolds) Acquire(ctx context.Context, bookingID, busID, travelDate string, seats []int, expiresAt time.Time) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var taken []int
	for _, s := range seats {
		if owner, ok := f.holds[holdKey(busID, travelDate, s)]; ok && owner != bookingID {
			taken = append(taken, s)
		}
	}
	if len(taken) > 0 {
		return taken, nil
	}
	for _, s := range seats {
		f.holds[holdKey(busID, travelDate, s)] = bookingID
	}
	return nil, nil
}

func (f *fakeSeatHolds) ReleaseForBooking(ctx context.Context, bookingID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, owner := range f.holds {
		if owner == bookingID {
			delete(f.holds, k)
			n++
		}
	}
	return n, nil
}

func holdKey(busID, date string, seat int) string {
	return fmt.Sprintf("%s|%s|%d", busID, date, seat)
}

type fakeGateway struct {
	mu          sync.Mutex
	secret      string
	orders      map[string]*payment.Order
	refunds     []string
	createErr   error
	refundErr   error
	orderSeq    int
	lastReceipt string
	afterRefund func() // runs once the refund is recorded
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{secret: testKeySecret, orders: make(map[string]*payment.Order)}
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, receipt string) (*payment.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.orderSeq++
	f.lastReceipt = receipt
	order := &payment.Order{
		ID:       fmt.Sprintf("order_%d", f.orderSeq),
		Entity:   "order",
		Amount:   amountMinor,
		Currency: "INR",
		Receipt:  receipt,
		Status:   "created",
	}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeGateway) FetchOrder(ctx context.Context, orderID string) (*payment.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, &payment.GatewayError{Op: "fetch order", StatusCode: 404, Description: "order not found"}
	}
	return order, nil
}

func (f *fakeGateway) Refund(ctx context.Context, paymentID string, amountMinor int64) (*payment.Refund, error) {
	f.mu.Lock()
	if f.refundErr != nil {
		f.mu.Unlock()
		return nil, f.refundErr
	}
	f.refunds = append(f.refunds, fmt.Sprintf("%s:%d", paymentID, amountMinor))
	afterRefund := f.afterRefund
	f.mu.Unlock()

	if afterRefund != nil {
		afterRefund()
	}
	return &payment.Refund{ID: "rfnd_" + paymentID, Amount: amountMinor, PaymentID: paymentID, Status: "processed"}, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.VerifySignature(f.secret, orderID, paymentID, signature)
}

func (f *fakeGateway) Currency() string { return "INR" }

func (f *fakeGateway) refundCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.refunds...)
}

type fakeAuditLog struct {
	mu     sync.Mutex
	audits []models.PaymentAudit
}

func (f *fakeAuditLog) Log(ctx context.Context, audit *models.PaymentAudit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, *audit)
	return nil
}

func (f *fakeAuditLog) HasEvent(ctx context.Context, paymentID string, eventType models.PaymentEventType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.audits {
		if a.PaymentID != nil && *a.PaymentID == paymentID && a.EventType == eventType {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAuditLog) types() []models.PaymentEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.PaymentEventType, len(f.audits))
	for i, a := range f.audits {
		out[i] = a.EventType
	}
	return out
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, routingKey)
	return nil
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.keys...)
}
