package handlers

import (
	"net/http"

	"promotion-prediction-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

const welcomeMessage = "Welcome to the Employee Promotion Prediction API! Use /predict for predictions."

type Handler struct {
	modelSvc      *services.ModelArtifactService
	predictionSvc *services.PredictionService
}

func New(modelSvc *services.ModelArtifactService, predictionSvc *services.PredictionService) *Handler {
	return &Handler{
		modelSvc:      modelSvc,
		predictionSvc: predictionSvc,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	// Predictions
	r.POST("/predict", h.Predict)
	r.POST("/predict/batch", h.PredictBatch)

	// Model
	r.GET("/model", h.GetModel)
	r.POST("/model/reload", h.ReloadModel)

	// History
	r.GET("/predictions", h.ListPredictions)
	r.GET("/predictions/:id", h.GetPrediction)
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
}

// Health reports unhealthy until a model has been loaded.
func (h *Handler) Health(c *gin.Context) {
	if !h.modelSvc.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "message": "Model not loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Service is running"})
}
