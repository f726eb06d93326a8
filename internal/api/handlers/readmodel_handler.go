package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

// ReadModelReader is what the handler needs from service.ReadModelService.
type ReadModelReader interface {
	Publication(ctx context.Context, tenantID string) (*domain.Publication, error)
	InventoryStatus(ctx context.Context, filter domain.StatusFilter) (*domain.Page[domain.InventoryStatus], error)
	Recommendations(ctx context.Context, filter domain.RecommendationFilter) (*domain.Page[domain.ReorderRecommendation], error)
	Forecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.DemandForecast, error)
	Rollups(ctx context.Context, filter domain.RollupFilter) ([]domain.RollupSummary, error)
}

var _ ReadModelReader = (*service.ReadModelService)(nil)

type ReadModelHandler struct {
	service ReadModelReader
}

func NewReadModelHandler(service ReadModelReader) *ReadModelHandler {
	return &ReadModelHandler{service: service}
}

// errBadRequest marks query parameter problems found by the handler itself.
var errBadRequest = errors.New("bad request")

func (h *ReadModelHandler) GetPublication(c *gin.Context) {
	pub, err := h.service.Publication(c.Request.Context(), c.Param("tenant"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pub)
}

func (h *ReadModelHandler) GetInventoryStatus(c *gin.Context) {
	filter := domain.StatusFilter{
		TenantID:    c.Param("tenant"),
		WarehouseID: strings.TrimSpace(c.Query("warehouse_id")),
	}

	var err error
	if filter.Page, filter.PageSize, err = parsePaging(c); err != nil {
		h.fail(c, err)
		return
	}
	if raw := strings.TrimSpace(c.Query("stock_level")); raw != "" {
		level, ok := domain.ParseStockLevel(raw)
		if !ok {
			h.fail(c, fmt.Errorf("%w: unknown stock_level %q", errBadRequest, raw))
			return
		}
		filter.StockLevel = level
	}
	if raw := strings.TrimSpace(c.Query("abc_class")); raw != "" {
		class, ok := domain.ParseABCClass(raw)
		if !ok {
			h.fail(c, fmt.Errorf("%w: unknown abc_class %q", errBadRequest, raw))
			return
		}
		filter.ABCClass = class
	}

	page, err := h.service.InventoryStatus(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ReadModelHandler) GetRecommendations(c *gin.Context) {
	filter := domain.RecommendationFilter{
		TenantID:    c.Param("tenant"),
		WarehouseID: strings.TrimSpace(c.Query("warehouse_id")),
	}

	var err error
	if filter.Page, filter.PageSize, err = parsePaging(c); err != nil {
		h.fail(c, err)
		return
	}
	if raw := strings.TrimSpace(c.Query("needs_reorder")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.fail(c, fmt.Errorf("%w: needs_reorder must be a boolean", errBadRequest))
			return
		}
		filter.NeedsReorder = &v
	}

	page, err := h.service.Recommendations(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ReadModelHandler) GetForecasts(c *gin.Context) {
	filter := domain.ForecastFilter{
		TenantID:  c.Param("tenant"),
		ArticleID: strings.TrimSpace(c.Query("article_id")),
	}

	var err error
	if filter.From, err = parseDate(c, "from"); err != nil {
		h.fail(c, err)
		return
	}
	if filter.To, err = parseDate(c, "to"); err != nil {
		h.fail(c, err)
		return
	}

	forecasts, err := h.service.Forecasts(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": forecasts, "total": len(forecasts)})
}

func (h *ReadModelHandler) GetRollups(c *gin.Context) {
	filter := domain.RollupFilter{
		TenantID:    c.Param("tenant"),
		WarehouseID: strings.TrimSpace(c.Query("warehouse_id")),
	}
	if raw := strings.TrimSpace(c.Query("level")); raw != "" {
		level, ok := domain.ParseRollupLevel(raw)
		if !ok {
			h.fail(c, fmt.Errorf("%w: level must be warehouse or category", errBadRequest))
			return
		}
		filter.Level = level
	}

	rollups, err := h.service.Rollups(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	views := make([]rollupView, 0, len(rollups))
	for _, r := range rollups {
		key := r.Key()
		views = append(views, rollupView{
			Level:         key.Level,
			TenantID:      key.TenantID,
			WarehouseID:   key.WarehouseID,
			Category:      key.Category,
			RollupMetrics: r.Metrics(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": views, "total": len(views)})
}

// rollupView tags each rollup with its level so both variants share one list.
type rollupView struct {
	Level       domain.RollupLevel `json:"level"`
	TenantID    string             `json:"tenant_id"`
	WarehouseID string             `json:"warehouse_id"`
	Category    string             `json:"category,omitempty"`
	domain.RollupMetrics
}

// fail maps service errors onto status codes. Missing publications are a
// 404, never a 5xx.
func (h *ReadModelHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, service.ErrInvalidFilter):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	}

	event := logger.Log.Warn()
	message := err.Error()
	if status == http.StatusInternalServerError {
		event = logger.Log.Error()
		message = "internal error"
	}
	event.Err(err).Str("tenant_id", c.Param("tenant")).Str("path", c.FullPath()).Int("status", status).Msg("read model request failed")
	c.JSON(status, gin.H{"error": message})
}

func parsePaging(c *gin.Context) (int, int, error) {
	page, err := parseOptionalInt(c, "page")
	if err != nil {
		return 0, 0, err
	}
	size, err := parseOptionalInt(c, "page_size")
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func parseOptionalInt(c *gin.Context, param string) (int, error) {
	raw := strings.TrimSpace(c.Query(param))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, param)
	}
	return v, nil
}

func parseDate(c *gin.Context, param string) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(param))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", errBadRequest, param)
	}
	return t, nil
}
