package response

import "github.com/gin-gonic/gin"

// RespondJSON writes the standard envelope. Handlers pass "success" or
// "error" as status together with the HTTP code they are emitting.
func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}
