package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"brick-tracker/internal/alerts"
	"brick-tracker/internal/history"
	"brick-tracker/internal/metrics"
	"brick-tracker/internal/monitor"
	"brick-tracker/internal/report"
	"brick-tracker/internal/snapshot"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Options wires a Handler. Monitor and Hub are optional.
type Options struct {
	Reader   snapshot.Reader
	Detector *alerts.Detector
	Policy   metrics.ApproachingPolicy
	Hub      *Hub
	Monitor  *monitor.Monitor
	Logger   zerolog.Logger
	Now      func() time.Time
}

type APIHandler struct {
	reader   snapshot.Reader
	detector *alerts.Detector
	policy   metrics.ApproachingPolicy
	hub      *Hub
	monitor  *monitor.Monitor
	logger   zerolog.Logger
	now      func() time.Time
}

func NewHandler(opts Options) *APIHandler {
	h := &APIHandler{
		reader:   opts.Reader,
		detector: opts.Detector,
		policy:   opts.Policy,
		hub:      opts.Hub,
		monitor:  opts.Monitor,
		logger:   opts.Logger.With().Str("component", "api").Logger(),
		now:      opts.Now,
	}
	if h.detector == nil {
		h.detector = alerts.NewDetector(alerts.Config{})
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func SetupRoutes(r *gin.RouterGroup, h *APIHandler) {
	a := r.Group("/alerts")
	{
		a.GET("", h.GetAlerts)
		a.GET("/report", h.GetAlertReport)
	}
	r.GET("/items/:id/history", h.GetItemHistory)
	r.GET("/approaching", h.GetApproaching)
	r.GET("/export.xlsx", h.ExportWorkbook)
}

// NewRouter builds the full engine: CORS, health, metrics, websocket stream
// and the /api/v1 group.
func NewRouter(h *APIHandler, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", h.Health)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	if h.hub != nil {
		r.GET("/ws", h.hub.ServeWS)
	}
	SetupRoutes(r.Group("/api/v1"), h)
	return r
}

func (h *APIHandler) Health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.monitor != nil {
		if cycle, ok := h.monitor.LastCycle(); ok {
			resp["last_cycle"] = cycle
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *APIHandler) load(c *gin.Context, limit int) ([]snapshot.Snapshot, bool) {
	snaps, err := h.reader.Load(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("failed to load snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load snapshots"})
		return nil, false
	}
	return snaps, true
}

// GET /api/v1/alerts?series=true
func (h *APIHandler) GetAlerts(c *gin.Context) {
	if c.Query("series") == "true" {
		snaps, ok := h.load(c, 0)
		if !ok {
			return
		}
		results, status := h.detector.Series(snaps)
		if results == nil {
			results = []alerts.Result{}
		}
		c.JSON(http.StatusOK, gin.H{"status": status, "snapshots": len(snaps), "results": results})
		return
	}

	snaps, ok := h.load(c, 2)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.detector.Latest(snaps))
}

// GET /api/v1/alerts/report?series=true
func (h *APIHandler) GetAlertReport(c *gin.Context) {
	if c.Query("series") == "true" {
		snaps, ok := h.load(c, 0)
		if !ok {
			return
		}
		results, status := h.detector.Series(snaps)
		if status == alerts.StatusInsufficientData {
			c.String(http.StatusOK, report.InsufficientData(len(snaps)))
			return
		}
		c.String(http.StatusOK, report.Series(results))
		return
	}

	snaps, ok := h.load(c, 2)
	if !ok {
		return
	}
	c.String(http.StatusOK, report.Alerts(h.detector.Latest(snaps)))
}

// GET /api/v1/items/:id/history?format=text
func (h *APIHandler) GetItemHistory(c *gin.Context) {
	snaps, ok := h.load(c, 0)
	if !ok {
		return
	}
	hist, status := history.Build(c.Param("id"), snaps)
	if status == history.StatusNotObserved {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not observed", "status": status})
		return
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, report.History(hist))
		return
	}
	c.JSON(http.StatusOK, hist)
}

type approachingView struct {
	ItemID              string           `json:"item_id"`
	Name                string           `json:"name"`
	RetirementEstimate  string           `json:"retirement_estimate"`
	Deadline            time.Time        `json:"deadline"`
	Approach            metrics.Approach `json:"approach"`
	CurrentPrice        float64          `json:"current_price"`
	PredictedPopPercent float64          `json:"predicted_pop_percent"`
}

// GET /api/v1/approaching?horizon_days=90
func (h *APIHandler) GetApproaching(c *gin.Context) {
	policy := h.policy
	if v := c.Query("horizon_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "horizon_days must be a positive integer"})
			return
		}
		policy.Horizon = time.Duration(days) * 24 * time.Hour
	}

	snaps, ok := h.load(c, 1)
	if !ok {
		return
	}
	now := h.now()
	if len(snaps) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": alerts.StatusInsufficientData, "as_of": now, "items": []approachingView{}})
		return
	}

	items := metrics.Approaching(snaps[len(snaps)-1], policy, now)
	views := make([]approachingView, 0, len(items))
	for _, it := range items {
		views = append(views, approachingView{
			ItemID:              it.Item.ID,
			Name:                it.Item.Name,
			RetirementEstimate:  it.Item.RetirementEstimate,
			Deadline:            it.Deadline,
			Approach:            it.Approach,
			CurrentPrice:        it.Item.CurrentPrice,
			PredictedPopPercent: it.Item.PredictedPopPercent,
		})
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, report.Approaching(items, now))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": alerts.StatusOK, "as_of": now, "items": views})
}

// GET /api/v1/export.xlsx
func (h *APIHandler) ExportWorkbook(c *gin.Context) {
	snaps, ok := h.load(c, 0)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, h.detector.Latest(snaps), history.BuildAll(snaps)); err != nil {
		h.logger.Error().Err(err).Msg("failed to build workbook")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build workbook"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="brick-tracker.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
