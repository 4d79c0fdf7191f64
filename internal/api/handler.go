package api

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"order-analytics/internal/analytics"
	"order-analytics/internal/export"
	"order-analytics/internal/loader"
	"order-analytics/internal/service"
	"order-analytics/internal/store"
	"order-analytics/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler contains HTTP handlers
type Handler struct {
	dashboards *service.DashboardService
	topN       int
	logger     *zap.Logger
}

// NewHandler creates a new HTTP handler. topN is the default RFM list size.
func NewHandler(dashboards *service.DashboardService, topN int) *Handler {
	return &Handler{
		dashboards: dashboards,
		topN:       topN,
		logger:     util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.SetHTMLTemplate(template.Must(
		template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"),
	))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/", h.dashboardPage)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/options", h.getOptions)
		v1.GET("/stats", h.getStats)
		v1.GET("/dashboard", h.getDashboard)
		v1.GET("/overview", h.dashboardView(func(d *analytics.Dashboard) interface{} { return d.Overview }))
		v1.GET("/daily", h.dashboardView(func(d *analytics.Dashboard) interface{} { return d.Daily }))
		v1.GET("/demographics", h.dashboardView(func(d *analytics.Dashboard) interface{} { return d.Demographics }))
		v1.GET("/categories", h.dashboardView(func(d *analytics.Dashboard) interface{} { return d.Categories }))
		v1.GET("/payments", h.dashboardView(func(d *analytics.Dashboard) interface{} { return d.Payments }))
		v1.GET("/insights", h.dashboardView(func(d *analytics.Dashboard) interface{} { return d.Insights }))
		v1.GET("/rfm", h.getRFM)
		v1.GET("/rfm.csv", h.exportRFM)
		v1.GET("/export.xlsx", h.exportWorkbook)
		v1.POST("/reload", h.reload)
		v1.POST("/snapshots", h.createSnapshot)
		v1.GET("/snapshots", h.listSnapshots)
		v1.GET("/snapshots/:id", h.getSnapshot)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once a dataset is loaded
func (h *Handler) readinessCheck(c *gin.Context) {
	if !h.dashboards.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "loading",
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"version": h.dashboards.Version(),
		"time":    time.Now().Unix(),
	})
}

func parseFilter(c *gin.Context) (analytics.Filter, error) {
	return analytics.ParseFilter(c.Query("from"), c.Query("to"), c.Query("category"), c.Query("payment"))
}

// respondError maps service errors to status codes
func (h *Handler) respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, analytics.ErrInvalidFilter):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrSnapshotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNoDataset), errors.Is(err, service.ErrSnapshotsDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, loader.ErrFileNotFound), errors.Is(err, loader.ErrMissingColumn):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// getOptions returns the sidebar choices
func (h *Handler) getOptions(c *gin.Context) {
	opts, err := h.dashboards.Options(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to get filter options", err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// getStats describes the loaded dataset
func (h *Handler) getStats(c *gin.Context) {
	stats, version, err := h.dashboards.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to get dataset stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"version": version,
		"stats":   stats,
	})
}

func (h *Handler) filteredDashboard(c *gin.Context) (*analytics.Dashboard, bool) {
	f, err := parseFilter(c)
	if err != nil {
		h.respondError(c, "Invalid filter", err)
		return nil, false
	}

	d, err := h.dashboards.Dashboard(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, "Failed to compute dashboard", err)
		return nil, false
	}
	return d, true
}

// getDashboard returns every view for the filter
func (h *Handler) getDashboard(c *gin.Context) {
	if d, ok := h.filteredDashboard(c); ok {
		c.JSON(http.StatusOK, d)
	}
}

// dashboardView serves one section of the filtered dashboard
func (h *Handler) dashboardView(section func(*analytics.Dashboard) interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d, ok := h.filteredDashboard(c); ok {
			c.JSON(http.StatusOK, section(d))
		}
	}
}

// getRFM returns the n leading customers per RFM metric
func (h *Handler) getRFM(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		h.respondError(c, "Invalid filter", err)
		return
	}

	n := h.topN
	if raw := c.Query("n"); raw != "" {
		n, err = strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid n, expected a positive integer",
			})
			return
		}
	}

	leaders, err := h.dashboards.TopRFM(c.Request.Context(), f, n)
	if err != nil {
		h.respondError(c, "Failed to compute RFM", err)
		return
	}
	c.JSON(http.StatusOK, leaders)
}

// exportRFM streams the full RFM table as CSV
func (h *Handler) exportRFM(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		h.respondError(c, "Invalid filter", err)
		return
	}

	records, err := h.dashboards.RFM(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, "Failed to compute RFM", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records); err != nil {
		h.respondError(c, "Failed to export RFM", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="rfm.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// exportWorkbook returns the filtered dashboard as an xlsx workbook
func (h *Handler) exportWorkbook(c *gin.Context) {
	d, ok := h.filteredDashboard(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, d); err != nil {
		h.respondError(c, "Failed to export workbook", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="dashboard.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// reload re-reads the configured data file
func (h *Handler) reload(c *gin.Context) {
	stats, err := h.dashboards.Reload(c.Request.Context(), "")
	if err != nil {
		h.respondError(c, "Failed to reload dataset", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version": h.dashboards.Version(),
		"stats":   stats,
	})
}

// createSnapshot persists the RFM table of the filter
func (h *Handler) createSnapshot(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		h.respondError(c, "Invalid filter", err)
		return
	}

	snap, err := h.dashboards.CreateSnapshot(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, "Failed to create snapshot", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":              snap.ID,
		"dataset_version": snap.DatasetVersion,
		"customer_count":  snap.CustomerCount,
		"created_at":      snap.CreatedAt,
	})
}

// listSnapshots returns recent snapshot headers
func (h *Handler) listSnapshots(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid limit, expected a positive integer",
			})
			return
		}
		limit = n
	}

	snaps, err := h.dashboards.ListSnapshots(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, "Failed to list snapshots", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

// getSnapshot returns a snapshot with its records
func (h *Handler) getSnapshot(c *gin.Context) {
	snap, err := h.dashboards.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Snapshot not found", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// page is the data of the HTML dashboard
type page struct {
	From      string
	To        string
	Category  string
	Payment   string
	Query     template.URL
	Options   analytics.FilterOptions
	Dashboard *analytics.Dashboard
	Error     string
}

// dashboardPage renders the HTML dashboard
func (h *Handler) dashboardPage(c *gin.Context) {
	p := page{
		From:     c.Query("from"),
		To:       c.Query("to"),
		Category: c.DefaultQuery("category", analytics.All),
		Payment:  c.DefaultQuery("payment", analytics.All),
	}

	opts, err := h.dashboards.Options(c.Request.Context())
	if err != nil {
		p.Error = "The dataset is not loaded yet"
		c.HTML(http.StatusServiceUnavailable, "dashboard.html", p)
		return
	}
	p.Options = opts
	if p.From == "" && opts.MinDate != nil {
		p.From = opts.MinDate.Format("2006-01-02")
	}
	if p.To == "" && opts.MaxDate != nil {
		p.To = opts.MaxDate.Format("2006-01-02")
	}

	q := url.Values{}
	q.Set("from", p.From)
	q.Set("to", p.To)
	q.Set("category", p.Category)
	q.Set("payment", p.Payment)
	p.Query = template.URL(q.Encode())

	f, err := analytics.ParseFilter(p.From, p.To, p.Category, p.Payment)
	if err != nil {
		p.Error = err.Error()
		c.HTML(http.StatusBadRequest, "dashboard.html", p)
		return
	}

	p.Dashboard, err = h.dashboards.Dashboard(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("Failed to compute dashboard", zap.Error(err))
		p.Error = "Failed to compute dashboard"
		c.HTML(http.StatusInternalServerError, "dashboard.html", p)
		return
	}

	c.HTML(http.StatusOK, "dashboard.html", p)
}

var templateFuncs = template.FuncMap{
	"num": func(v interface{}) string {
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'f', 2, 64)
		case *float64:
			if n == nil {
				return "-"
			}
			return strconv.FormatFloat(*n, 'f', 2, 64)
		default:
			return fmt.Sprint(v)
		}
	},
	"date": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
	"deref": func(v *int) int {
		return *v
	},
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
