package responses

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status   string      `json:"status"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	Problems []string    `json:"problems,omitempty"`
}

func Success(c *gin.Context, statusCode int, data interface{}, message string) {
	c.JSON(statusCode, APIResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func Fail(c *gin.Context, statusCode int, err error, message string) {
	resp := APIResponse{
		Status:  "error",
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(statusCode, resp)
}

// ValidationFailed reports an aggregated validation result: every problem in
// one response, so the user fixes them in a single pass.
func ValidationFailed(c *gin.Context, message string, problems []string) {
	c.JSON(http.StatusUnprocessableEntity, APIResponse{
		Status:   "error",
		Message:  message,
		Problems: problems,
	})
}
