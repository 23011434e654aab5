package handlers

import (
	"net/http"

	"promotion-prediction-service/internal/adapters/primary/http/dto"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) GetModel(c *gin.Context) {
	model, err := h.modelSvc.Current()
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToModelResponse(model))
}

// ReloadModel re-reads the artifact source. A failed reload keeps the served model.
func (h *Handler) ReloadModel(c *gin.Context) {
	model, err := h.modelSvc.Reload(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("model reload failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToModelResponse(model))
}
