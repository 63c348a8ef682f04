package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spigell/havewant/internal/domain"
)

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondDomainError maps domain errors to HTTP statuses. Unknown errors are
// reported as 500 without leaking their text.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "NOT_FOUND", rootMessage(err))
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondError(c, http.StatusForbidden, "FORBIDDEN", domain.ErrForbidden.Error())
	case domain.IsAuthError(err):
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", domain.ErrUnauthorized.Error())
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func rootMessage(err error) string {
	for _, target := range []error{domain.ErrListingNotFound, domain.ErrMatchNotFound, domain.ErrUserNotFound} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
