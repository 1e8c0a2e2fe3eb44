package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgayle/waterwatch/internal/middleware"
	"github.com/rgayle/waterwatch/internal/models"
	"github.com/rgayle/waterwatch/internal/notify"
	"github.com/rgayle/waterwatch/internal/observ"
	"github.com/rgayle/waterwatch/internal/repository"
	"github.com/rgayle/waterwatch/internal/scope"
)

const defaultListLimit = 10

type SubmissionHandler struct {
	ledger   repository.SubmissionRepository
	supplies repository.SupplyRepository
	points   repository.SamplingPointRepository
	hub      *notify.Hub
	logger   *zap.Logger
}

func NewSubmissionHandler(
	ledger repository.SubmissionRepository,
	supplies repository.SupplyRepository,
	points repository.SamplingPointRepository,
	hub *notify.Hub,
	logger *zap.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{ledger: ledger, supplies: supplies, points: points, hub: hub, logger: logger}
}

// createSubmissionRequest carries one day's inspection counts. Count
// fields are optional and default to zero; negative values are refused.
type createSubmissionRequest struct {
	SupplyID        uuid.UUID  `json:"supply_id" binding:"required"`
	SamplingPointID *uuid.UUID `json:"sampling_point_id"`

	// SubmissionDate is a calendar day, "2006-01-02". Empty means today.
	SubmissionDate string `json:"submission_date"`

	models.Counts

	Remarks                       string `json:"remarks"`
	ChemicalNonSatisfactoryParams string `json:"chemical_non_satisfactory_params"`
	PHNonSatisfactoryParams       string `json:"ph_non_satisfactory_params"`
}

// Create handles POST /api/v1/submissions. The append is the commit point:
// only after the ledger write succeeds does the delta go out.
func (h *SubmissionHandler) Create(c *gin.Context) {
	sc := middleware.GetScope(c)
	var req createSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Counts.NonNegative() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "count fields must be non-negative"})
		return
	}

	day := time.Now().UTC().Truncate(24 * time.Hour)
	if req.SubmissionDate != "" {
		parsed, err := time.Parse("2006-01-02", req.SubmissionDate)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "submission_date must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	// Resolving the supply through the caller's scope is the tenancy
	// check: an out-of-parish supply reads as absent.
	supply, err := h.supplies.GetByID(c.Request.Context(), sc, req.SupplyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if supply == nil {
		notFound(c, "supply")
		return
	}

	if req.SamplingPointID != nil {
		point, err := h.points.GetByID(c.Request.Context(), *req.SamplingPointID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		if point == nil || point.SupplyID != supply.ID {
			notFound(c, "sampling point")
			return
		}
	}

	sub := &models.Submission{
		SupplyID:                      supply.ID,
		SamplingPointID:               req.SamplingPointID,
		InspectorID:                   sc.UserID,
		SubmissionDate:                day,
		Counts:                        req.Counts,
		Remarks:                       req.Remarks,
		ChemicalNonSatisfactoryParams: req.ChemicalNonSatisfactoryParams,
		PHNonSatisfactoryParams:       req.PHNonSatisfactoryParams,
	}
	detail, err := h.ledger.Append(c.Request.Context(), sub)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	observ.SubmissionsAccepted.WithLabelValues(supply.Parish).Inc()
	h.hub.Broadcast(c.Request.Context(), notify.EventNewSubmission, detail,
		scope.RoomAdmin, supply.Parish)

	c.JSON(http.StatusCreated, detail)
}

// Mine handles GET /api/v1/submissions/mine?limit=.
func (h *SubmissionHandler) Mine(c *gin.Context) {
	sc := middleware.GetScope(c)
	subs, err := h.ledger.ListByInspector(c.Request.Context(), sc.UserID, listLimit(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// BySupply handles GET /api/v1/submissions?supply_id=&limit=.
func (h *SubmissionHandler) BySupply(c *gin.Context) {
	sc := middleware.GetScope(c)
	supplyID, err := uuid.Parse(c.Query("supply_id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "supply_id is required"})
		return
	}

	supply, err := h.supplies.GetByID(c.Request.Context(), sc, supplyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if supply == nil {
		notFound(c, "supply")
		return
	}

	subs, err := h.ledger.ListBySupply(c.Request.Context(), sc, supplyID, listLimit(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

type correctionRequest struct {
	PositiveAdd int `json:"positive_add"`
	NegativeAdd int `json:"negative_add"`
}

// CorrectBacteriological handles
// POST /api/v1/submissions/:id/bacteriological-correction.
//
// Only the submitting inspector or an admin may apply a correction. The
// pending-pool constraint itself is enforced atomically in the ledger.
func (h *SubmissionHandler) CorrectBacteriological(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		notFound(c, "submission")
		return
	}
	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.ledger.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if existing == nil || !sc.CanAccessParish(existing.Parish) {
		notFound(c, "submission")
		return
	}
	if !sc.IsAdmin() && existing.InspectorID != sc.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the submitting inspector may correct a submission"})
		return
	}

	detail, err := h.ledger.CorrectBacteriological(c.Request.Context(), id, req.PositiveAdd, req.NegativeAdd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("bacteriological correction applied",
		zap.Int64("submission_id", id),
		zap.Int("positive_add", req.PositiveAdd),
		zap.Int("negative_add", req.NegativeAdd),
	)
	c.JSON(http.StatusOK, detail)
}

func listLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}
