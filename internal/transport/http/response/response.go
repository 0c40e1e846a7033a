package response

import "github.com/gin-gonic/gin"

// DetailResponse is the error body shape shared by every endpoint.
type DetailResponse struct {
	Detail string `json:"detail"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus int, detail string) {
	c.JSON(httpStatus, DetailResponse{Detail: detail})
}

// Abort writes the error body and stops the handler chain.
func Abort(c *gin.Context, httpStatus int, detail string) {
	c.AbortWithStatusJSON(httpStatus, DetailResponse{Detail: detail})
}
