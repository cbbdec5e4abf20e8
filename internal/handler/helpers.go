package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"invitely/rsvphub/internal/service"
	"invitely/rsvphub/pkg/response"
)

// writeServiceError maps service errors onto response envelopes. Anything
// unrecognised becomes a 500 carrying fallback, never the error text.
func writeServiceError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, service.ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrDuplicateGuest):
		response.Conflict(c, service.ErrDuplicateGuest.Error())
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, service.ErrEventNotFound.Error())
	case errors.Is(err, service.ErrRSVPNotFound):
		response.NotFound(c, service.ErrRSVPNotFound.Error())
	case errors.Is(err, service.ErrInvalidToken):
		response.Forbidden(c, service.ErrInvalidToken.Error())
	case errors.Is(err, service.ErrEventInPast):
		response.Conflict(c, service.ErrEventInPast.Error())
	case errors.Is(err, service.ErrDispatchFailed):
		response.BadGateway(c, service.ErrDispatchFailed.Error())
	case errors.Is(err, service.ErrSendNotRecorded):
		response.Error(c, http.StatusInternalServerError, 500, service.ErrSendNotRecorded.Error())
	default:
		response.InternalError(c, fallback)
	}
}
