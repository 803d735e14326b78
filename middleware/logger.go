package middleware

import (
	"net/http"
	"time"

	"PPLink/logger"
	"PPLink/tools/apiresp"
	"PPLink/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog logs one line per request through the zap logger.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/healthz" {
			return
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("[HTTP]", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("[HTTP]", fields...)
		default:
			logger.Debug("[HTTP]", fields...)
		}
	}
}

// Recovery turns a handler panic into a 500 envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[HTTP] panic", zap.String("path", c.Request.URL.Path), zap.Any("panic", r), zap.Stack("stack"))
				apiresp.Fail(c, errs.ErrPanic(r))
			}
		}()
		c.Next()
	}
}
