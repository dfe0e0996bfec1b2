package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gallery-server/internal/utils/platformerrors"
)

// ErrorResponse is the JSON body returned for any failed request.
type ErrorResponse struct {
	Code    string `json:"code"` // stable error code from the typed error
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HandleError maps a service error onto an HTTP response. Typed errors keep
// their code and mapped status; anything else becomes a 500 with the
// fallback message.
func HandleError(c *gin.Context, err error, fallback string) {
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		message := platformErr.Message
		if message == "" {
			message = fallback
		}
		c.AbortWithStatusJSON(platformerrors.ErrorTypeToHTTPStatus(platformErr.GetErrorType()), ErrorResponse{
			Code:    platformErr.GetUUID(),
			Error:   message,
			Message: message,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error:   fallback,
		Message: fallback,
	})
}

// HandleNewError raises a typed error at the route layer and writes it.
func HandleNewError(c *gin.Context, errorType platformerrors.ErrorType, message string, uuid string) {
	err := platformerrors.NewError(c.Request.Context(), platformerrors.LayerRoute, errorType, message, nil, uuid)

	c.AbortWithStatusJSON(platformerrors.ErrorTypeToHTTPStatus(err.GetErrorType()), ErrorResponse{
		Code:    err.GetUUID(),
		Error:   message,
		Message: message,
	})
}
