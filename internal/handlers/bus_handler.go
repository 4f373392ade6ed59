package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-ticketing/internal/models"
	"github.com/smarttransit/bus-ticketing/internal/services"
)

// BusRepository is the fleet storage the bus endpoints use
type BusRepository interface {
	Create(ctx context.Context, bus *models.Bus) error
	GetByID(ctx context.Context, id string) (*models.Bus, error)
	List(ctx context.Context, from, to string) ([]models.Bus, error)
	Update(ctx context.Context, bus *models.Bus) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// BusHandler serves fleet listing and CRUD
type BusHandler struct {
	busRepo BusRepository
	logger  *logrus.Logger
}

func NewBusHandler(busRepo BusRepository, logger *logrus.Logger) *BusHandler {
	return &BusHandler{busRepo: busRepo, logger: logger}
}

// ListBuses lists buses, optionally filtered by origin and destination (case-insensitive)
// GET /api/buses?from=&to=
func (h *BusHandler) ListBuses(c *gin.Context) {
	buses, err := h.busRepo.List(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, buses)
}

// GetBus retrieves a bus by ID
// GET /api/buses/:id
func (h *BusHandler) GetBus(c *gin.Context) {
	bus, err := h.load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, bus)
}

// CreateBus adds a bus to the fleet
// POST /api/buses
func (h *BusHandler) CreateBus(c *gin.Context) {
	var req models.CreateBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, h.logger, services.NewValidationError(err))
		return
	}

	bus := req.ToBus()
	if err := h.busRepo.Create(c.Request.Context(), bus); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"bus_id":     bus.ID,
		"bus_number": bus.BusNumber,
	}).Info("Bus created")

	c.JSON(http.StatusCreated, bus)
}

// UpdateBus applies a partial update to a bus
// PUT /api/buses/:id
func (h *BusHandler) UpdateBus(c *gin.Context) {
	var req models.UpdateBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, h.logger, services.NewValidationError(err))
		return
	}

	ctx := c.Request.Context()
	bus, err := h.load(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := req.ApplyTo(bus); err != nil {
		respondError(c, h.logger, services.NewValidationError(err))
		return
	}

	updated, err := h.busRepo.Update(ctx, bus)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !updated {
		respondError(c, h.logger, services.ErrBusNotFound)
		return
	}

	c.JSON(http.StatusOK, bus)
}

// DeleteBus removes a bus that has no bookings
// DELETE /api/buses/:id
func (h *BusHandler) DeleteBus(c *gin.Context) {
	busID := c.Param("id")
	if _, err := uuid.Parse(busID); err != nil {
		respondError(c, h.logger, services.ErrBusNotFound)
		return
	}

	deleted, err := h.busRepo.Delete(c.Request.Context(), busID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !deleted {
		respondError(c, h.logger, services.ErrBusNotFound)
		return
	}

	h.logger.WithField("bus_id", busID).Info("Bus deleted")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Bus deleted"})
}

func (h *BusHandler) load(ctx context.Context, busID string) (*models.Bus, error) {
	if _, err := uuid.Parse(busID); err != nil {
		return nil, services.ErrBusNotFound
	}

	bus, err := h.busRepo.GetByID(ctx, busID)
	if err != nil {
		return nil, err
	}
	if bus == nil {
		return nil, services.ErrBusNotFound
	}
	return bus, nil
}
