package http

import (
	"strings"
	"time"

	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const authHeaderKey = "Authorization"
const authType = "Bearer"
const principalKey = "principal"

func authCheck(h *Handler, tokenService port.TokenService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.Request.Header.Get(authHeaderKey)
		if len(header) == 0 {
			h.handleAbort(ctx, domain.ErrEmptyAuthorizationHeader)
			return
		}

		words := strings.Fields(header)
		if len(words) != 2 {
			h.handleAbort(ctx, domain.ErrInvalidAuthorizationHeader)
			return
		}
		if words[0] != authType {
			h.handleAbort(ctx, domain.ErrInvalidAuthorizationType)
			return
		}
		payload, err := tokenService.VerifyToken(words[1])
		if err != nil {
			h.handleAbort(ctx, domain.ErrInvalidToken)
			return
		}

		ctx.Set(principalKey, payload.Principal())

		ctx.Next()
	}
}

// adminOnly must run after authCheck.
func adminOnly(h *Handler) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !getPrincipal(ctx).IsAdmin() {
			h.handleAbort(ctx, domain.NotAuthorized("User", "Admin role is required"))
			return
		}
		ctx.Next()
	}
}

// getPrincipal returns the caller set by authCheck, or an unauthenticated one.
func getPrincipal(ctx *gin.Context) *domain.Principal {
	v, ok := ctx.Get(principalKey)
	if !ok {
		return &domain.Principal{}
	}
	p, ok := v.(*domain.Principal)
	if !ok {
		return &domain.Principal{}
	}
	return p
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		fields := []zap.Field{
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Int("status", ctx.Writer.Status()),
			zap.Int("size", ctx.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
		}
		if p := getPrincipal(ctx); p.IsAuthenticated() {
			fields = append(fields, zap.Uint64("user_id", p.UserID))
		}
		if ctx.Writer.Status() >= 500 {
			logger.Warn("request served", fields...)
			return
		}
		logger.Info("request served", fields...)
	}
}
