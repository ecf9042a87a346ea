package handler

import (
	"encoding/csv"
	"fmt"
	"strconv"

	"ops_reporting_backend/internal/metrics/transport"
	"ops_reporting_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const csvContentType = "text/csv; charset=utf-8"

// ExportBucketsCSV streams the same aggregation as ListBuckets as a CSV
// spreadsheet: one column per grouping dimension, then count and measures.
func (h *Handler) ExportBucketsCSV(c *gin.Context) {
	var req transport.BucketsRequest
	if !h.bindQuery(c, &req) {
		return
	}

	resp, err := h.svc.GetMonthlyBuckets(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	yearTo := req.YearTo
	if yearTo == 0 {
		yearTo = req.YearFrom
	}
	filename := fmt.Sprintf("metrics_buckets_%d_%d.csv", req.YearFrom, yearTo)
	c.Header("Content-Type", csvContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(bucketCSVHeader(resp)); err != nil {
		return
	}
	for _, item := range resp.Items {
		if err := writer.Write(bucketCSVRow(resp, item)); err != nil {
			return
		}
	}
	writer.Flush()
}

func bucketCSVHeader(resp transport.BucketListResponse) []string {
	header := make([]string, 0, len(resp.GroupBy)+len(resp.Measures)+1)
	header = append(header, resp.GroupBy...)
	header = append(header, "count")
	return append(header, resp.Measures...)
}

func bucketCSVRow(resp transport.BucketListResponse, item transport.BucketResponse) []string {
	row := make([]string, 0, len(resp.GroupBy)+len(resp.Measures)+1)
	for _, dim := range resp.GroupBy {
		switch dim {
		case "year":
			row = append(row, strconv.Itoa(item.Year))
		case "month":
			row = append(row, strconv.Itoa(item.Month))
		default:
			row = append(row, item.Dimensions[dim])
		}
	}
	row = append(row, strconv.Itoa(item.Count))
	for _, m := range resp.Measures {
		row = append(row, strconv.FormatFloat(item.Sums[m], 'f', -1, 64))
	}
	return row
}
