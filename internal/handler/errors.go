package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/raffle-service/internal/errs"
)

// writeError maps service errors to HTTP responses. Number-list errors carry
// the offending numbers so the storefront can mark them individually.
func writeError(c *gin.Context, err error) {
	var validation *errs.ValidationError
	var outOfRange *errs.NumberOutOfRangeError
	var taken *errs.NumbersTakenError

	switch {
	case errors.Is(err, errs.ErrRaffleNotFound), errors.Is(err, errs.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrRaffleMisconfigured), errors.Is(err, errs.ErrRaffleNotActive):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &outOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": outOfRange.Error(), "numbers": outOfRange.Numbers})
	case errors.As(err, &taken):
		c.JSON(http.StatusConflict, gin.H{"error": taken.Error(), "numbers": taken.Numbers})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": errs.ErrAllocationFailed.Error()})
	}
}
