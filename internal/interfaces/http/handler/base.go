package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erp/doclink/internal/domain/lineage"
	"github.com/erp/doclink/internal/interfaces/http/dto"
)

// RequestIDKey is the header carrying the request correlation ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleRemoteError converts remote store errors to HTTP responses. The
// caller's request was fine; the failure sits between this service and the
// store, so these map into the gateway error family.
func (h *BaseHandler) HandleRemoteError(c *gin.Context, err error) {
	var code string
	switch {
	case errors.Is(err, lineage.ErrTimeout):
		code = dto.ErrCodeUpstreamTimeout
	case errors.Is(err, lineage.ErrAuthFailed):
		code = dto.ErrCodeUpstreamAuth
	case errors.Is(err, lineage.ErrMalformedResponse):
		code = dto.ErrCodeUpstreamMalformed
	case errors.Is(err, lineage.ErrRemote), errors.Is(err, lineage.ErrSessionExpired):
		code = dto.ErrCodeUpstream
	case errors.Is(err, lineage.ErrNotFound):
		h.NotFound(c, "document not found in remote store")
		return
	default:
		h.InternalError(c, "An unexpected error occurred")
		return
	}

	h.Error(c, dto.GetHTTPStatus(code), code, err.Error())
}
