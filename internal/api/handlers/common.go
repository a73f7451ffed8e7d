package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/mockinterview/internal/utils"
)

type APIError struct {
	Error string     `json:"error"`
	Code  utils.Code `json:"code"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) && ae.Message != "" {
		c.JSON(status, APIError{
			Error: ae.Message,
			Code:  ae.Code,
		})
		return
	}

	c.JSON(status, APIError{
		Error: http.StatusText(status),
		Code:  utils.CodeInternal,
	})
}

func requireUserID(c *gin.Context) (string, bool) {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}
