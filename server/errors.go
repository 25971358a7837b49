package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/hangman/logger"
	"github.com/wfunc/hangman/room"
	"github.com/wfunc/hangman/services"
)

var errBadRequest = errors.New("invalid request body")

// statusFor 把错误分类映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNoCaller):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, room.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, room.ErrInvalidState), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 写入 {"ok":false,"data":"..."}。500 不把内部错误返回给客户端。
func abortWithError(ctx *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Log.Errorf("%s %s failed: %v", ctx.Request.Method, ctx.FullPath(), err)
		msg = http.StatusText(status)
	}
	ctx.AbortWithStatusJSON(status, gin.H{"ok": false, "data": msg})
}
