package handler

import (
	"github.com/gin-gonic/gin"

	applineage "github.com/erp/doclink/internal/application/lineage"
)

// ReportHandler serves delivered/pending summaries for reporting tools
type ReportHandler struct {
	BaseHandler
	summaries *applineage.SummaryService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(summaries *applineage.SummaryService) *ReportHandler {
	return &ReportHandler{summaries: summaries}
}

// DeliveredSummaryRequest is a batch of quote document numbers
type DeliveredSummaryRequest struct {
	DocNums []int64 `json:"doc_nums" binding:"required,min=1"`
}

// GetDeliveredSummary answers delivered and pending amounts for a batch of
// quote numbers. Per-number failures are reported inside the batch; the
// endpoint itself only fails on malformed input.
func (h *ReportHandler) GetDeliveredSummary(c *gin.Context) {
	var req DeliveredSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "doc_nums must be a non-empty array of quote numbers")
		return
	}

	batch := h.summaries.DeliveredSummaries(c.Request.Context(), req.DocNums)
	h.Success(c, batch)
}

// RegisterRoutes registers all report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	{
		reports.POST("/delivered-summary", h.GetDeliveredSummary)
	}
}
