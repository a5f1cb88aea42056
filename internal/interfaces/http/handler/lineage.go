package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	applineage "github.com/erp/doclink/internal/application/lineage"
	"github.com/erp/doclink/internal/domain/lineage"
)

// LineageHandler serves quote lineage traces
type LineageHandler struct {
	BaseHandler
	resolver applineage.QuoteResolver
}

// NewLineageHandler creates a new LineageHandler
func NewLineageHandler(resolver applineage.QuoteResolver) *LineageHandler {
	return &LineageHandler{resolver: resolver}
}

// GetQuoteLineage resolves the lineage of a quote by its document number.
// Optional from/to query parameters override the scan window; values that
// are not strict YYYY-MM-DD dates are ignored.
func (h *LineageHandler) GetQuoteLineage(c *gin.Context) {
	docNum, err := strconv.ParseInt(c.Param("number"), 10, 64)
	if err != nil || docNum <= 0 {
		h.BadRequest(c, "quote number must be a positive integer")
		return
	}

	var override *lineage.WindowOverride
	from := c.Query("from")
	to := c.Query("to")
	if from != "" || to != "" {
		override = &lineage.WindowOverride{From: from, To: to}
	}

	trace, err := h.resolver.ResolveQuoteLineage(c.Request.Context(), docNum, override)
	if err != nil {
		h.HandleRemoteError(c, err)
		return
	}
	if !trace.OK {
		h.NotFound(c, "quote not found")
		return
	}

	h.Success(c, trace)
}

// RegisterRoutes registers all lineage routes
func (h *LineageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	{
		quotes.GET("/:number/lineage", h.GetQuoteLineage)
	}
}
