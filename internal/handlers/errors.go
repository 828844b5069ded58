package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
)

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindEmptyCart:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindStockExceeded, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error", "code"} with the status for err's kind.
// Internal errors are not echoed to the client.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	msg := apperr.Message(err)
	if kind == apperr.KindInternal {
		msg = "internal error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(kind), gin.H{"error": msg, "code": kind.String()})
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, apperr.New(apperr.KindValidation, msg))
}
