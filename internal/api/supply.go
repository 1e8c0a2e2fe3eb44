package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgayle/waterwatch/internal/middleware"
	"github.com/rgayle/waterwatch/internal/models"
	"github.com/rgayle/waterwatch/internal/notify"
	"github.com/rgayle/waterwatch/internal/repository"
	"github.com/rgayle/waterwatch/internal/scope"
)

type SupplyHandler struct {
	supplies repository.SupplyRepository
	points   repository.SamplingPointRepository
	hub      *notify.Hub
	logger   *zap.Logger
}

func NewSupplyHandler(supplies repository.SupplyRepository, points repository.SamplingPointRepository, hub *notify.Hub, logger *zap.Logger) *SupplyHandler {
	return &SupplyHandler{supplies: supplies, points: points, hub: hub, logger: logger}
}

type supplyRequest struct {
	Name     string            `json:"name" binding:"required"`
	Kind     models.SupplyKind `json:"kind" binding:"required"`
	Agency   string            `json:"agency" binding:"required"`
	Location string            `json:"location"`
	Parish   string            `json:"parish" binding:"required"`
}

// List handles GET /api/v1/supplies. Inspectors see their parish only.
func (h *SupplyHandler) List(c *gin.Context) {
	sc := middleware.GetScope(c)
	supplies, err := h.supplies.List(c.Request.Context(), sc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, supplies)
}

// GetByID handles GET /api/v1/supplies/:id.
func (h *SupplyHandler) GetByID(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		notFound(c, "supply")
		return
	}
	supply, err := h.supplies.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if supply == nil {
		notFound(c, "supply")
		return
	}
	c.JSON(http.StatusOK, supply)
}

// Create handles POST /api/v1/supplies (admin only, enforced by routing).
func (h *SupplyHandler) Create(c *gin.Context) {
	var req supplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Kind.Valid() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "kind must be treated or untreated"})
		return
	}

	supply := &models.Supply{
		ID:        uuid.New(),
		Name:      req.Name,
		Kind:      req.Kind,
		Agency:    req.Agency,
		Location:  req.Location,
		Parish:    req.Parish,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.supplies.Create(c.Request.Context(), supply); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, supply)
}

// Update handles PUT /api/v1/supplies/:id (admin only). Observers of the
// supply's parish learn about the edit through a supply_updated delta.
func (h *SupplyHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		notFound(c, "supply")
		return
	}
	var req supplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Kind.Valid() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "kind must be treated or untreated"})
		return
	}

	supply := &models.Supply{
		ID:       id,
		Name:     req.Name,
		Kind:     req.Kind,
		Agency:   req.Agency,
		Location: req.Location,
		Parish:   req.Parish,
	}
	if err := h.supplies.Update(c.Request.Context(), supply); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.hub.Broadcast(c.Request.Context(), notify.EventSupplyUpdated, supply,
		scope.RoomAdmin, supply.Parish)
	c.JSON(http.StatusOK, supply)
}

type samplingPointRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ListSamplingPoints handles GET /api/v1/supplies/:id/sampling-points.
func (h *SupplyHandler) ListSamplingPoints(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		notFound(c, "supply")
		return
	}

	// The supply lookup doubles as the scope check.
	supply, err := h.supplies.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if supply == nil {
		notFound(c, "supply")
		return
	}

	points, err := h.points.ListBySupply(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

// CreateSamplingPoint handles POST /api/v1/supplies/:id/sampling-points
// (admin only).
func (h *SupplyHandler) CreateSamplingPoint(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		notFound(c, "supply")
		return
	}
	var req samplingPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	supply, err := h.supplies.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if supply == nil {
		notFound(c, "supply")
		return
	}

	point := &models.SamplingPoint{
		ID:          uuid.New(),
		SupplyID:    id,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.points.Create(c.Request.Context(), point); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, point)
}
