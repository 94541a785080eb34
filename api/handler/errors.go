package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webagent/models"
)

// respondError maps an AgentError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	ae := models.AsAgentError(err)
	c.JSON(mapErrorToStatus(ae.Code), ae.ToResponse())
}

// abortError writes an error response for a code and message directly.
func abortError(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(mapErrorToStatus(code), models.ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeNoInformation:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeSummarizationFailure:
		return http.StatusBadGateway // 502
	case models.ErrCodeConfigMissing:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
