package vpserve

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func respondJSON(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

func respondAPIError(c *gin.Context, err error) {
	apiErr := translateError(err)
	c.AbortWithStatusJSON(apiErr.HTTPStatus, apiErr)
}

func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondAPIError(c, NewAPIError("BAD_REQUEST", err.Error(), http.StatusBadRequest))
		return err
	}
	return nil
}
