// Package response defines the JSON error body shared by all handlers
// and middleware.
package response

import "github.com/gin-gonic/gin"

type ErrorBody struct {
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
	ErrorType  string `json:"error_type"`
}

func Error(c *gin.Context, status int, detail string) {
	c.JSON(status, ErrorBody{Detail: detail, StatusCode: status, ErrorType: errorType(status)})
}

// AbortError writes the error body and stops the handler chain. Used by
// middleware.
func AbortError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, ErrorBody{Detail: detail, StatusCode: status, ErrorType: errorType(status)})
}

func errorType(status int) string {
	switch status {
	case 400:
		return "bad_request"
	case 401:
		return "unauthorized"
	case 403:
		return "forbidden"
	case 404:
		return "not_found"
	case 409:
		return "conflict"
	case 422:
		return "validation_error"
	case 502:
		return "bad_gateway"
	case 503:
		return "service_unavailable"
	default:
		if status >= 500 {
			return "internal_error"
		}
		return "error"
	}
}
