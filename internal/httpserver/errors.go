package httpserver

import (
	"errors"
	"net/http"

	"marketplace-api/internal/domain"

	"github.com/gin-gonic/gin"
)

// writeError maps domain errors onto status codes. Unknown errors are
// logged and surface as 500 without their text.
func (h *handlers) writeError(c *gin.Context, op string, err error) {
	var stockErr *domain.StockError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"message":   err.Error(),
			"productId": stockErr.ProductID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	default:
		h.logger.Printf("http: %s failed: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
