package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harshpatel0909/event-organizer-app/internal/apperr"
)

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": data,
	})
}

func Error(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":  -1,
		"error": msg,
	})
}

// HTTPStatus 把业务错误翻译成 HTTP 状态码
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Fail(c *gin.Context, err error) {
	Error(c, HTTPStatus(err), err.Error())
}
