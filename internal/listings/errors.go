package listings

import (
	"errors"
	"fmt"
)

// ErrNotFound 表示按 id 查找没有命中，区别于底层存储故障。
var ErrNotFound = errors.New("listing not found")

// ValidationError 表示必填字段缺失或为空，在触达数据库之前返回。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation 判断错误是否为校验失败。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func requireNonEmpty(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return nil
}
