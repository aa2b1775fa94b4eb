package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
)

func GetUserID(c *gin.Context) (string, error) {
	uidRaw, exists := c.Get("user_id")
	if !exists {
		return "", errors.New("未登录")
	}

	uid, ok := uidRaw.(string)
	if !ok || uid == "" {
		return "", errors.New("用户ID类型错误")
	}

	return uid, nil
}
