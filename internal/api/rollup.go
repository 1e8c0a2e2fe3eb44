package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rgayle/waterwatch/internal/aggregate"
	"github.com/rgayle/waterwatch/internal/middleware"
)

type RollupHandler struct {
	agg    *aggregate.Aggregator
	logger *zap.Logger
}

func NewRollupHandler(agg *aggregate.Aggregator, logger *zap.Logger) *RollupHandler {
	return &RollupHandler{agg: agg, logger: logger}
}

// Current handles GET /api/v1/rollups/current: the wall-clock month's
// cumulative totals for every supply the caller can see, keyed by supply id.
func (h *RollupHandler) Current(c *gin.Context) {
	sc := middleware.GetScope(c)
	rows, err := h.agg.Current(c.Request.Context(), sc, time.Now().UTC())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Period handles GET /api/v1/rollups/:year/:month: the report variant,
// with remarks concatenated, rows sorted for rendering.
func (h *RollupHandler) Period(c *gin.Context) {
	sc := middleware.GetScope(c)
	year, month, ok := periodParams(c)
	if !ok {
		return
	}

	rows, err := h.agg.Rollup(c.Request.Context(), sc, nil, month, year, true)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"year":  year,
		"month": month,
		"rows":  aggregate.SortRows(rows),
	})
}

// Series handles GET /api/v1/rollups/:year/:month/series?kind=.
func (h *RollupHandler) Series(c *gin.Context) {
	sc := middleware.GetScope(c)
	year, month, ok := periodParams(c)
	if !ok {
		return
	}
	kind, err := aggregate.ParseReportKind(c.Query("kind"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	rows, err := h.agg.Rollup(c.Request.Context(), sc, nil, month, year, false)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"year":   year,
		"month":  month,
		"kind":   kind.String(),
		"points": aggregate.Series(aggregate.SortRows(rows), kind),
	})
}

// periodParams parses the :year/:month path segments. Range validation
// lives in the aggregator; only parse failures are rejected here.
func periodParams(c *gin.Context) (year, month int, ok bool) {
	year, yerr := strconv.Atoi(c.Param("year"))
	month, merr := strconv.Atoi(c.Param("month"))
	if yerr != nil || merr != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "year and month must be integers"})
		return 0, 0, false
	}
	return year, month, true
}
