package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carelistings/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// errorWithCode 在错误响应中附带业务错误码，客户端据此区分
// 资源缺失、校验失败与系统故障。
func errorWithCode(c *gin.Context, status, code int, msg string) {
	c.JSON(status, gin.H{"error": msg, "error_code": code})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)          { Error(c, http.StatusUnauthorized, "unauthorized") }
func Forbidden(c *gin.Context, msg string) { Error(c, http.StatusForbidden, msg) }
func Conflict(c *gin.Context, msg string)  { Error(c, http.StatusConflict, msg) }

func BadRequest(c *gin.Context, msg string) {
	errorWithCode(c, http.StatusBadRequest, errcode.ValidationFailed, msg)
}

func NotFound(c *gin.Context, msg string) {
	errorWithCode(c, http.StatusNotFound, errcode.ResourceMissing, msg)
}

func Internal(c *gin.Context, msg string) {
	errorWithCode(c, http.StatusInternalServerError, errcode.ConnectivityLost, msg)
}

// Timeout 返回区别于一般连接失败的超时提示。
func Timeout(c *gin.Context) {
	errorWithCode(c, http.StatusServiceUnavailable, errcode.Timeout,
		"request timed out - check your connection")
}

// IsTimeout 判断错误链中是否包含上下文超时。
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
