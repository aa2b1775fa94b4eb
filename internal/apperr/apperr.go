package apperr

import (
	"errors"
	"fmt"
)

// 业务错误分类，仓库层只返回这几类，handler 负责翻译成 HTTP 状态码
var (
	ErrValidation        = errors.New("validation failed")
	ErrAuth              = errors.New("not authorized")
	ErrNotFound          = errors.New("not found")
	ErrRemoteUnavailable = errors.New("remote service unavailable")
	// ErrCascade: 活动已删除，但收藏级联清理失败，留给 MQ 补偿
	ErrCascade = errors.New("cascade cleanup failed")
	// ErrBusy: 同一活动的收藏切换还在进行中，本次请求被丢弃
	ErrBusy = errors.New("operation already in flight")
)

func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Remote(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
}
