package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/spigell/rallypoint/internal/errors"
	"github.com/spigell/rallypoint/internal/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		fields := logger.RequestFields(c.GetString(requestIDKey), c.Request.Method, c.Request.URL.Path)
		fields = append(fields,
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(started)),
			zap.String("client_ip", c.ClientIP()),
		)

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request handled", fields...)
		}
	}
}

func recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error("panic while handling request",
			zap.String(logger.FieldRequestID, c.GetString(requestIDKey)),
			zap.Any("panic", recovered),
			zap.Stack("stack"),
		)
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// errorResponder turns errors attached with c.Error into a response when the
// handler did not write one.
func errorResponder(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := statusFor(err)

		log.Error("handler error",
			zap.String(logger.FieldRequestID, c.GetString(requestIDKey)),
			zap.String("error_type", string(apperrors.TypeOf(err))),
			zap.Error(err),
		)

		if c.Writer.Written() {
			return
		}

		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(status, gin.H{"error": http.StatusText(status)})
			return
		}

		c.String(status, http.StatusText(status))
	}
}

func statusFor(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrTypeInvalidInput:
		return http.StatusBadRequest
	case apperrors.ErrTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
