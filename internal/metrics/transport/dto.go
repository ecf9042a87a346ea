package transport

import (
	"time"

	"github.com/google/uuid"
)

// WindowRequest selects the orders a report covers. YearTo defaults to YearFrom.
type WindowRequest struct {
	YearFrom int    `form:"yearFrom" validate:"required,min=1900,max=2200"`
	YearTo   int    `form:"yearTo" validate:"omitempty,min=1900,max=2200,gtefield=YearFrom"`
	Month    int    `form:"month" validate:"omitempty,min=1,max=12"`
	Source   string `form:"source" validate:"omitempty,oneof=historic current"`
	Sector   string `form:"sector" validate:"omitempty,max=100"`
}

// SnapshotsRequest lists deduplicated orders.
type SnapshotsRequest struct {
	WindowRequest
	Filter string `form:"filter" validate:"omitempty,max=200"`
}

// BucketsRequest aggregates deduplicated orders.
type BucketsRequest struct {
	WindowRequest
	GroupBy  string `form:"groupBy" validate:"omitempty,dimension_list"`
	Measures string `form:"measures" validate:"omitempty,measure_list"`
	Filter   string `form:"filter" validate:"omitempty,max=200"`
}

// SeriesRequest selects one accumulated series.
type SeriesRequest struct {
	Year    int    `form:"year" validate:"required,min=1900,max=2200"`
	Measure string `form:"measure" validate:"required,measure"`
	Series  string `form:"series" validate:"omitempty,oneof=actual budget prior_year"`
}

// ComparisonRequest selects the actual/budget/prior-year comparison of one measure.
type ComparisonRequest struct {
	Year    int    `form:"year" validate:"required,min=1900,max=2200"`
	Measure string `form:"measure" validate:"required,measure"`
}

// TargetPlanRequest computes a plan from explicit inputs.
type TargetPlanRequest struct {
	Year          int      `form:"year" validate:"required,min=1900,max=2200"`
	BaselineTotal *float64 `form:"baselineTotal" validate:"required,gte=0"`
	ReductionPct  *float64 `form:"reductionPct" validate:"required,gte=-100,lte=100"`
}

// ProjectionRequest projects one measure. ReductionPct overrides the configured policy.
type ProjectionRequest struct {
	Year         int      `form:"year" validate:"required,min=1900,max=2200"`
	Measure      string   `form:"measure" validate:"required,measure"`
	ReductionPct *float64 `form:"reductionPct" validate:"omitempty,gte=-100,lte=100"`
}

// YearRequest selects a single year.
type YearRequest struct {
	Year int `form:"year" validate:"required,min=1900,max=2200"`
}

// RefreshRequest enqueues a materialized refresh.
type RefreshRequest struct {
	Year int `json:"year" validate:"required,min=1900,max=2200"`
}

// InvalidateCacheRequest drops cached reports. Year 0 drops every year.
type InvalidateCacheRequest struct {
	Year int `form:"year" validate:"omitempty,min=1900,max=2200"`
}

// DiagnosticResponse is one non-fatal data-quality finding.
type DiagnosticResponse struct {
	Code    string `json:"code"`
	OrderID string `json:"orderId,omitempty"`
	Field   string `json:"field,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// DiagnosticsBlock is embedded in every engine response.
type DiagnosticsBlock struct {
	Diagnostics        []DiagnosticResponse `json:"diagnostics"`
	DiagnosticsSummary map[string]int       `json:"diagnosticsSummary"`
}

// AssignmentResponse is the share of an order held by one machine/operator pair.
type AssignmentResponse struct {
	MachineID    string             `json:"machineId,omitempty"`
	MachineClass string             `json:"machineClass,omitempty"`
	OperatorID   string             `json:"operatorId,omitempty"`
	Events       map[string]float64 `json:"events"`
}

// SnapshotResponse is one deduplicated order.
type SnapshotResponse struct {
	OrderID     string               `json:"orderId"`
	Date        string               `json:"date"`
	Sector      string               `json:"sector"`
	Supervisor  string               `json:"supervisor"`
	Source      string               `json:"source"`
	Measures    map[string]float64   `json:"measures"`
	Assignments []AssignmentResponse `json:"assignments"`
	Conflicts   []string             `json:"conflicts,omitempty"`
	RowCount    int                  `json:"rowCount"`
}

// SnapshotListResponse wraps deduplicated orders.
type SnapshotListResponse struct {
	Items []SnapshotResponse `json:"items"`
	Total int                `json:"total"`
	DiagnosticsBlock
}

// BucketResponse is one aggregation group. Year and month are omitted when not grouped by.
type BucketResponse struct {
	Year       int                `json:"year,omitempty"`
	Month      int                `json:"month,omitempty"`
	Dimensions map[string]string  `json:"dimensions,omitempty"`
	Count      int                `json:"count"`
	Sums       map[string]float64 `json:"sums"`
}

// BucketListResponse wraps aggregation groups.
type BucketListResponse struct {
	GroupBy  []string         `json:"groupBy"`
	Measures []string         `json:"measures"`
	Items    []BucketResponse `json:"items"`
	// NonAdditive lists measures whose sums repeat the full order value in
	// every machine/operator bucket the order touched.
	NonAdditive []string `json:"nonAdditive,omitempty"`
	DiagnosticsBlock
}

// AccumulatedPointResponse is one month of a running total.
type AccumulatedPointResponse struct {
	Month        int     `json:"month"`
	PeriodValue  float64 `json:"periodValue"`
	RunningTotal float64 `json:"runningTotal"`
}

// AccumulatedSeriesResponse is a year-to-date series.
type AccumulatedSeriesResponse struct {
	Year    int                        `json:"year"`
	Measure string                     `json:"measure"`
	Series  string                     `json:"series"`
	Points  []AccumulatedPointResponse `json:"points"`
	Total   float64                    `json:"total"`
}

// AccumulatedResponse wraps one series. BudgetSource is "table" or "target_plan" for budgets.
type AccumulatedResponse struct {
	AccumulatedSeriesResponse
	BudgetSource string `json:"budgetSource,omitempty"`
	DiagnosticsBlock
}

// ComparisonResponse aligns the three series by month.
type ComparisonResponse struct {
	Year         int                       `json:"year"`
	Measure      string                    `json:"measure"`
	Actual       AccumulatedSeriesResponse `json:"actual"`
	Budget       AccumulatedSeriesResponse `json:"budget"`
	PriorYear    AccumulatedSeriesResponse `json:"priorYear"`
	BudgetSource string                    `json:"budgetSource"`
	DiagnosticsBlock
}

// TargetPlanResponse is a computed target.
type TargetPlanResponse struct {
	Year          int     `json:"year"`
	BaselineTotal float64 `json:"baselineTotal"`
	ReductionPct  float64 `json:"reductionPct"`
	AnnualTarget  int64   `json:"annualTarget"`
	MonthlyTarget int64   `json:"monthlyTarget"`
	Applicable    bool    `json:"applicable"`
}

// MonthVarianceResponse compares one month with the monthly target.
type MonthVarianceResponse struct {
	Month       int     `json:"month"`
	Actual      float64 `json:"actual"`
	Target      int64   `json:"target"`
	Variance    float64 `json:"variance"`
	AccActual   float64 `json:"accActual"`
	AccTarget   int64   `json:"accTarget"`
	AccVariance float64 `json:"accVariance"`
	HasData     bool    `json:"hasData"`
}

// ProjectionResponse is the year-to-date position against the plan.
// CompliancePct is null when the plan is not applicable.
type ProjectionResponse struct {
	Year                 int                     `json:"year"`
	Measure              string                  `json:"measure"`
	Plan                 TargetPlanResponse      `json:"plan"`
	YearToDateActual     float64                 `json:"yearToDateActual"`
	MonthsWithData       int                     `json:"monthsWithData"`
	AverageMonthlyActual int64                   `json:"averageMonthlyActual"`
	ProjectedAnnual      int64                   `json:"projectedAnnual"`
	CompliancePct        *int64                  `json:"compliancePct"`
	Variance             []MonthVarianceResponse `json:"variance"`
	DiagnosticsBlock
}

// MaterializedBucketResponse is one persisted refresh row.
type MaterializedBucketResponse struct {
	Month      int     `json:"month"`
	Source     string  `json:"source"`
	Sector     string  `json:"sector"`
	OrderCount int     `json:"orderCount"`
	Pabellones float64 `json:"pabellones"`
	SurfaceM2  float64 `json:"surfaceM2"`
	Damages    float64 `json:"damages"`
	FuelLiters float64 `json:"fuelLiters"`
}

// MaterializedListResponse is the last refresh output of a year.
type MaterializedListResponse struct {
	Year        int                          `json:"year"`
	RefreshID   *uuid.UUID                   `json:"refreshId,omitempty"`
	RefreshedAt *time.Time                   `json:"refreshedAt,omitempty"`
	Items       []MaterializedBucketResponse `json:"items"`
}

// RefreshResponse acknowledges an enqueued refresh.
type RefreshResponse struct {
	TaskID string `json:"taskId"`
	Year   int    `json:"year"`
	Queue  string `json:"queue"`
}

// InvalidateCacheResponse reports how many cached reports were dropped.
type InvalidateCacheResponse struct {
	Year    int   `json:"year,omitempty"`
	Removed int64 `json:"removed"`
}

// AuditRequest selects the year to audit and how many fan-out orders to list.
type AuditRequest struct {
	Year int `form:"year" validate:"required,min=1900,max=2200"`
	Top  int `form:"top" validate:"omitempty,min=1,max=500"`
}

// MeasureAuditResponse compares the per-row sum of a measure with its reconciled total.
type MeasureAuditResponse struct {
	Measure    string  `json:"measure"`
	Kind       string  `json:"kind"`
	Naive      float64 `json:"naive"`
	Reconciled float64 `json:"reconciled"`
	OverCount  float64 `json:"overCount"`
}

// OrderFanOutResponse is one order spread over several source rows.
type OrderFanOutResponse struct {
	OrderID    string  `json:"orderId"`
	Rows       int     `json:"rows"`
	Pabellones float64 `json:"pabellones"`
	Inflation  float64 `json:"inflation"`
}

// AuditResponse explains where per-row sums over-count a year.
type AuditResponse struct {
	Year      int                    `json:"year"`
	RawRows   int                    `json:"rawRows"`
	Orders    int                    `json:"orders"`
	Measures  []MeasureAuditResponse `json:"measures"`
	TopFanOut []OrderFanOutResponse  `json:"topFanOut"`
	Conflicts []DiagnosticResponse   `json:"conflicts"`
	Summary   map[string]int         `json:"diagnosticsSummary"`
}
