package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Success        bool     `json:"success"`
	Error          APIError `json:"error"`
	RequiresAPIKey bool     `json:"requiresApiKey,omitempty"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAuthError flags a missing or rejected credential so the UI can
// prompt for configuration instead of retrying.
func RespondAuthError(c *gin.Context, err error) {
	msg := "authorization failed"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(http.StatusUnauthorized, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    "requires_api_key",
		},
		RequiresAPIKey: true,
	})
}

func RespondOK(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
