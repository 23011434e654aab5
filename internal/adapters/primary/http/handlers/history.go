package handlers

import (
	"net/http"
	"strconv"
	"time"

	"promotion-prediction-service/internal/adapters/primary/http/dto"
	ports "promotion-prediction-service/internal/core/ports/output"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListPredictions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := ports.PredictionListFilter{
		ModelName: c.Query("model"),
		Order:     c.Query("order"),
		Limit:     limit,
		Offset:    offset,
	}

	if l := c.Query("label"); l != "" {
		label, err := strconv.Atoi(l)
		if err != nil || (label != 0 && label != 1) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid label"})
			return
		}
		filter.Label = &label
	}
	if s := c.Query("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
		filter.Since = since
	}
	if u := c.Query("until"); u != "" {
		until, err := time.Parse(time.RFC3339, u)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid until"})
			return
		}
		filter.Until = until
	}

	preds, total, err := h.predictionSvc.History(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list predictions failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.PredictionRecordResponse, 0, len(preds))
	for _, p := range preds {
		items = append(items, dto.ToPredictionRecordResponse(p))
	}

	c.JSON(http.StatusOK, dto.ListPredictionsResponse{
		Items:      items,
		Total:      total,
		PageSize:   len(items),
		NextOffset: max(offset, 0) + len(items),
	})
}

func (h *Handler) GetPrediction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prediction id"})
		return
	}

	pred, err := h.predictionSvc.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPredictionRecordResponse(pred))
}
