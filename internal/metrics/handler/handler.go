package handler

import (
	"context"
	"net/http"

	"ops_reporting_backend/internal/events"
	"ops_reporting_backend/internal/metrics/archive"
	"ops_reporting_backend/internal/metrics/cache"
	"ops_reporting_backend/internal/metrics/service"
	"ops_reporting_backend/internal/metrics/transport"
	"ops_reporting_backend/platform/httpkit"
	"ops_reporting_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"

	headerCache = "X-Cache"
)

// RefreshEnqueuer schedules a materialized refresh of one year in the background.
type RefreshEnqueuer interface {
	EnqueueRefresh(ctx context.Context, year int) (taskID string, queue string, err error)
}

// ArchiveLister lists archived refresh outputs of a year.
type ArchiveLister interface {
	List(ctx context.Context, year int) ([]archive.Entry, error)
}

// Deps are the collaborators of the handler. Service and Validator are required.
type Deps struct {
	Service   *service.Service
	Reports   *cache.Reports
	Refresh   RefreshEnqueuer
	Archives  ArchiveLister
	Bus       events.Bus
	Validator *validator.Validator
}

type Handler struct {
	svc      *service.Service
	reports  *cache.Reports
	refresh  RefreshEnqueuer
	archives ArchiveLister
	bus      events.Bus
	val      *validator.Validator
}

func New(deps Deps) *Handler {
	return &Handler{
		svc:      deps.Service,
		reports:  deps.Reports,
		refresh:  deps.Refresh,
		archives: deps.Archives,
		bus:      deps.Bus,
		val:      deps.Validator,
	}
}

// RegisterRoutes mounts the read endpoints on rg and the operator endpoints on admin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, admin *gin.RouterGroup) {
	rg.GET("/snapshots", h.ListSnapshots)
	rg.GET("/buckets", h.ListBuckets)
	rg.GET("/buckets.csv", h.ExportBucketsCSV)
	rg.GET("/accumulated", h.GetSeries)
	rg.GET("/comparison", h.GetComparison)
	rg.GET("/target-plan", h.GetTargetPlan)
	rg.GET("/projection", h.GetProjection)
	rg.GET("/materialized", h.ListMaterialized)

	admin.POST("/refresh", h.EnqueueRefresh)
	admin.DELETE("/cache", h.InvalidateCache)
	admin.GET("/audit", h.GetAudit)
	admin.GET("/archives", h.ListArchives)
}

func (h *Handler) ListSnapshots(c *gin.Context) {
	var req transport.SnapshotsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	years := cache.YearsBetween(req.YearFrom, req.YearTo)
	cached(c, h.reports, "snapshots", years, func(ctx context.Context) (transport.SnapshotListResponse, error) {
		return h.svc.GetOrderSnapshots(ctx, req)
	})
}

func (h *Handler) ListBuckets(c *gin.Context) {
	var req transport.BucketsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	years := cache.YearsBetween(req.YearFrom, req.YearTo)
	cached(c, h.reports, "buckets", years, func(ctx context.Context) (transport.BucketListResponse, error) {
		return h.svc.GetMonthlyBuckets(ctx, req)
	})
}

func (h *Handler) GetSeries(c *gin.Context) {
	var req transport.SeriesRequest
	if !h.bindQuery(c, &req) {
		return
	}
	// budget and prior_year series read the previous year.
	cached(c, h.reports, "series", []int{req.Year - 1, req.Year}, func(ctx context.Context) (transport.AccumulatedResponse, error) {
		return h.svc.GetAccumulatedSeries(ctx, req)
	})
}

func (h *Handler) GetComparison(c *gin.Context) {
	var req transport.ComparisonRequest
	if !h.bindQuery(c, &req) {
		return
	}
	cached(c, h.reports, "comparison", []int{req.Year - 1, req.Year}, func(ctx context.Context) (transport.ComparisonResponse, error) {
		return h.svc.GetComparison(ctx, req)
	})
}

func (h *Handler) GetTargetPlan(c *gin.Context) {
	var req transport.TargetPlanRequest
	if !h.bindQuery(c, &req) {
		return
	}
	plan, err := h.svc.GetTargetPlan(req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, plan)
}

func (h *Handler) GetProjection(c *gin.Context) {
	var req transport.ProjectionRequest
	if !h.bindQuery(c, &req) {
		return
	}
	cached(c, h.reports, "projection", []int{req.Year - 1, req.Year}, func(ctx context.Context) (transport.ProjectionResponse, error) {
		return h.svc.GetProjection(ctx, req)
	})
}

func (h *Handler) ListMaterialized(c *gin.Context) {
	var req transport.YearRequest
	if !h.bindQuery(c, &req) {
		return
	}
	result, err := h.svc.ListMaterialized(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) EnqueueRefresh(c *gin.Context) {
	var req transport.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}
	if h.refresh == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "refresh scheduler not configured", nil)
		return
	}

	taskID, queue, err := h.refresh.EnqueueRefresh(c.Request.Context(), req.Year)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Accepted(c, transport.RefreshResponse{TaskID: taskID, Year: req.Year, Queue: queue})
}

func (h *Handler) InvalidateCache(c *gin.Context) {
	var req transport.InvalidateCacheRequest
	if !h.bindQuery(c, &req) {
		return
	}

	removed, err := h.reports.InvalidateYear(c.Request.Context(), req.Year)
	if httpkit.HandleError(c, err) {
		return
	}

	if h.bus != nil {
		identity, _ := httpkit.GetIdentity(c)
		h.bus.Publish(c.Request.Context(), events.MetricsCacheInvalidated{
			BaseEvent: events.NewBaseEvent(),
			Year:      req.Year,
			Reason:    "manual",
			ActorID:   identity.ActorID(),
		})
	}

	httpkit.OK(c, transport.InvalidateCacheResponse{Year: req.Year, Removed: removed})
}

func (h *Handler) GetAudit(c *gin.Context) {
	var req transport.AuditRequest
	if !h.bindQuery(c, &req) {
		return
	}
	report, err := h.svc.GetAudit(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

func (h *Handler) ListArchives(c *gin.Context) {
	var req transport.YearRequest
	if !h.bindQuery(c, &req) {
		return
	}
	if h.archives == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "refresh archive not configured", nil)
		return
	}
	entries, err := h.archives.List(c.Request.Context(), req.Year)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"year": req.Year, "items": entries})
}

func (h *Handler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) validate(c *gin.Context, req any) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

// cached answers from the report cache when possible and sets X-Cache to HIT or MISS.
func cached[T any](c *gin.Context, reports *cache.Reports, op string, years []int, compute func(context.Context) (T, error)) {
	key := cache.Key(op, c.Request.URL.Query())
	result, hit, err := cache.Fetch(c.Request.Context(), reports, key, years, compute)
	if httpkit.HandleError(c, err) {
		return
	}
	if reports.Enabled() {
		if hit {
			c.Header(headerCache, "HIT")
		} else {
			c.Header(headerCache, "MISS")
		}
	}
	httpkit.OK(c, result)
}
