package handlers

import (
	"net/http"

	"promotion-prediction-service/internal/adapters/primary/http/dto"
	"promotion-prediction-service/internal/adapters/primary/http/middleware"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Predict(c *gin.Context) {
	var req dto.EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	pred, err := h.predictionSvc.Predict(c.Request.Context(), c.GetString(middleware.ContextKey), req.ToDomain())
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPredictionResponse(pred))
}

func (h *Handler) PredictBatch(c *gin.Context) {
	var req dto.BatchPredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	preds, err := h.predictionSvc.PredictBatch(c.Request.Context(), c.GetString(middleware.ContextKey), req.ToDomain())
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBatchPredictResponse(preds))
}
