package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smarttransit/bus-ticketing/internal/database"
	"github.com/smarttransit/bus-ticketing/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBusRepo struct {
	mu        sync.Mutex
	buses     map[string]models.Bus
	withBookings map[string]bool
}

func newMemoryBusRepo() *memoryBusRepo {
	return &memoryBusRepo{buses: map[string]models.Bus{}, withBookings: map[string]bool{}}
}

func (r *memoryBusRepo) Create(ctx context.Context, bus *models.Bus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bus.ID = uuid.New().String()
	r.buses[bus.ID] = *bus
	return nil
}

func (r *memoryBusRepo) GetByID(ctx context.Context, id string) (*models.Bus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bus, ok := r.buses[id]
	if !ok {
		return nil, nil
	}
	return &bus, nil
}

func (r *memoryBusRepo) List(ctx context.Context, from, to string) ([]models.Bus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Bus{}
	for _, b := range r.buses {
		if from != "" && !strings.EqualFold(b.From, from) {
			continue
		}
		if to != "" && !strings.EqualFold(b.To, to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *memoryBusRepo) Update(ctx context.Context, bus *models.Bus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buses[bus.ID]; !ok {
		return false, nil
	}
	r.buses[bus.ID] = *bus
	return true, nil
}

func (r *memoryBusRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.withBookings[id] {
		return false, database.ErrBusHasBookings
	}
	if _, ok := r.buses[id]; !ok {
		return false, nil
	}
	delete(r.buses, id)
	return true, nil
}

func setupBusRouter(repo BusRepository) *gin.Engine {
	router := newTestRouter()
	handler := NewBusHandler(repo, quietLogger())

	router.GET("/api/buses", handler.ListBuses)
	router.GET("/api/buses/:id", handler.GetBus)
	router.POST("/api/buses", handler.CreateBus)
	router.PUT("/api/buses/:id", handler.UpdateBus)
	router.DELETE("/api/buses/:id", handler.DeleteBus)
	return router
}

func seedBus(t *testing.T, repo *memoryBusRepo, from, to string) models.Bus {
	t.Helper()
	bus := &models.Bus{Name: from + " Express", BusNumber: "NB-" + from, From: from, To: to, DepartureTime: "08:00", Price: 280}
	require.NoError(t, repo.Create(context.Background(), bus))
	return *bus
}

func TestListBuses_CaseInsensitiveFilter(t *testing.T) {
	repo := newMemoryBusRepo()
	seedBus(t, repo, "Colombo", "Kandy")
	seedBus(t, repo, "Galle", "Colombo")
	router := setupBusRouter(repo)

	w := performRequest(router, "GET", "/api/buses?from=colombo&to=KANDY", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Colombo Express")
	assert.NotContains(t, w.Body.String(), "Galle Express")

	w = performRequest(router, "GET", "/api/buses", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Galle Express")
}

func TestCreateBus(t *testing.T) {
	repo := newMemoryBusRepo()
	router := setupBusRouter(repo)

	w := performRequest(router, "POST", "/api/buses", map[string]interface{}{
		"name":          "Night Express",
		"busNumber":     "NB-1234",
		"from":          "Colombo",
		"to":            "Jaffna",
		"departureTime": "21:30",
		"price":         1450,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	resp := decodeBody(t, w)
	assert.NotEmpty(t, resp["id"])
	assert.Equal(t, "Jaffna", resp["to"])
	assert.Len(t, repo.buses, 1)
}

func TestCreateBus_Invalid(t *testing.T) {
	router := setupBusRouter(newMemoryBusRepo())

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing fields", map[string]interface{}{"name": "X"}},
		{"bad time", map[string]interface{}{"name": "X", "busNumber": "1", "from": "A", "to": "B", "departureTime": "9pm"}},
		{"same route ends", map[string]interface{}{"name": "X", "busNumber": "1", "from": "Kandy", "to": "kandy", "departureTime": "09:00"}},
		{"negative price", map[string]interface{}{"name": "X", "busNumber": "1", "from": "A", "to": "B", "departureTime": "09:00", "price": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, "POST", "/api/buses", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "validation_error", decodeBody(t, w)["error"])
		})
	}
}

func TestGetBus(t *testing.T) {
	repo := newMemoryBusRepo()
	bus := seedBus(t, repo, "Colombo", "Kandy")
	router := setupBusRouter(repo)

	w := performRequest(router, "GET", "/api/buses/"+bus.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	for _, id := range []string{uuid.New().String(), "not-a-uuid"} {
		w = performRequest(router, "GET", "/api/buses/"+id, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
}

func TestUpdateBus(t *testing.T) {
	repo := newMemoryBusRepo()
	bus := seedBus(t, repo, "Colombo", "Kandy")
	router := setupBusRouter(repo)

	w := performRequest(router, "PUT", "/api/buses/"+bus.ID, map[string]interface{}{"price": 300, "driverName": "Sunil"})
	assert.Equal(t, http.StatusOK, w.Code)

	stored := repo.buses[bus.ID]
	assert.Equal(t, 300.0, stored.Price)
	require.NotNil(t, stored.DriverName)
	assert.Equal(t, "Sunil", *stored.DriverName)
	assert.Equal(t, "Colombo", stored.From)

	w = performRequest(router, "PUT", "/api/buses/"+bus.ID, map[string]interface{}{"to": "Colombo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, "PUT", "/api/buses/"+uuid.New().String(), map[string]interface{}{"price": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteBus(t *testing.T) {
	repo := newMemoryBusRepo()
	bus := seedBus(t, repo, "Colombo", "Kandy")
	booked := seedBus(t, repo, "Galle", "Matara")
	repo.withBookings[booked.ID] = true
	router := setupBusRouter(repo)

	w := performRequest(router, "DELETE", "/api/buses/"+booked.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "bus_has_bookings", decodeBody(t, w)["error"])

	w = performRequest(router, "DELETE", "/api/buses/"+bus.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, "DELETE", "/api/buses/"+bus.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type failingBusRepo struct{ memoryBusRepo }

func (r *failingBusRepo) List(ctx context.Context, from, to string) ([]models.Bus, error) {
	return nil, errors.New("connection refused")
}

func TestListBuses_InternalError(t *testing.T) {
	router := setupBusRouter(&failingBusRepo{})

	w := performRequest(router, "GET", "/api/buses", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}
