package http

import (
	"errors"
	"net/http"

	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorStatusMap = map[error]int{
	domain.ErrInternal:        http.StatusInternalServerError,
	domain.ErrDataNotFound:    http.StatusNotFound,
	domain.ErrConflictingData: http.StatusConflict,

	domain.ErrUnauthorized:               http.StatusUnauthorized,
	domain.ErrEmptyAuthorizationHeader:   http.StatusUnauthorized,
	domain.ErrInvalidAuthorizationHeader: http.StatusUnauthorized,
	domain.ErrInvalidAuthorizationType:   http.StatusUnauthorized,
	domain.ErrInvalidToken:               http.StatusUnauthorized,
	domain.ErrExpiredToken:               http.StatusUnauthorized,
	domain.ErrTokenCreation:              http.StatusInternalServerError,
	domain.ErrNotAuthorized:              http.StatusForbidden,

	domain.ErrNoUpdatedData:   http.StatusBadRequest,
	domain.ErrBadRequest:      http.StatusBadRequest,
	domain.ErrInvalidArgument: http.StatusBadRequest,
}

// kindCodes suffixes the resource label of a domain error in the response code.
var kindCodes = map[error]string{
	domain.ErrDataNotFound:    "NotFound",
	domain.ErrInvalidArgument: "InvalidArgument",
	domain.ErrNotAuthorized:   "NotAuthorized",
}

type Handler struct {
	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// statusOf returns the HTTP status mapped to err or to the sentinel it wraps.
func statusOf(err error) (int, bool) {
	if status, ok := errorStatusMap[err]; ok {
		return status, true
	}
	for sentinel, status := range errorStatusMap {
		if errors.Is(err, sentinel) {
			return status, true
		}
	}
	return http.StatusInternalServerError, false
}

func newErrorResponse(status int, err error) errorResponse {
	var de *domain.Error
	if errors.As(err, &de) {
		return errorResponse{Code: de.Resource + kindCodes[de.Kind], Description: de.Message}
	}
	if status == http.StatusInternalServerError {
		return errorResponse{Code: "Internal", Description: domain.ErrInternal.Error()}
	}
	return errorResponse{Code: codeFromStatus(status), Description: err.Error()}
}

func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BadRequest"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "NotFound"
	case http.StatusConflict:
		return "Conflict"
	}
	return "Internal"
}

// handleValidationError sends an error response for a request that could not be bound
func (h *Handler) handleValidationError(ctx *gin.Context, err error) {
	h.logger.Debug("bad request", zap.Error(err))
	ctx.JSON(http.StatusBadRequest, errorResponse{
		Code:        "BadRequest",
		Description: err.Error(),
	})
}

// handleAbort sends an error response and aborts the request
func (h *Handler) handleAbort(ctx *gin.Context, err error) {
	statusCode, ok := statusOf(err)
	if !ok {
		h.logger.Error("aborting request", zap.Error(err))
	}
	ctx.AbortWithStatusJSON(statusCode, newErrorResponse(statusCode, err))
}

func (h *Handler) handleError(ctx *gin.Context, err error) {
	statusCode, ok := statusOf(err)
	if !ok {
		h.logger.Error("error processing request", zap.Error(err))
	}
	ctx.JSON(statusCode, newErrorResponse(statusCode, err))
}

// handleSuccessWithStatus sends a success response with the specified status code and optional data
func (h *Handler) handleSuccessWithStatus(ctx *gin.Context, data any, status int) {
	if data != nil {
		ctx.JSON(status, data)
	} else {
		ctx.Status(status)
	}
}

func (h *Handler) handleSuccess(ctx *gin.Context, data any) {
	h.handleSuccessWithStatus(ctx, data, http.StatusOK)
}
