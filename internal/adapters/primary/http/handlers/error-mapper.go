package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"promotion-prediction-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func mapDomainError(c *gin.Context, err error) {
	var predErr *domain.PredictionError

	switch {
	case errors.Is(err, domain.ErrModelNotLoaded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model not loaded. Please check server logs."})

	case errors.As(err, &predErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed.", "details": predErr.Cause.Error()})

	// Bad request
	case errors.Is(err, domain.ErrEmptyBatch),
		errors.Is(err, domain.ErrBatchTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Not found
	case errors.Is(err, domain.ErrPredictionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict
	case errors.Is(err, domain.ErrReloadInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Service unavailable
	case errors.Is(err, domain.ErrStoreDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	// Artifact failures during a reload
	case errors.Is(err, domain.ErrArtifactNotFound),
		errors.Is(err, domain.ErrInvalidArtifact),
		errors.Is(err, domain.ErrSourceUnavailable):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Model reload failed.", "details": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validationError answers a request body that failed to decode or bind with 422.
func validationError(c *gin.Context, err error) {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		details []fieldError
	)

	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Field(), Message: "field " + fe.Tag()})
		}
	case errors.As(err, &typeErr):
		details = append(details, fieldError{Field: typeErr.Field, Message: "expected " + typeErr.Type.String()})
	default:
		details = append(details, fieldError{Message: err.Error()})
	}

	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed.", "details": details})
}
