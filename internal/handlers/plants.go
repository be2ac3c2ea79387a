package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart_irrigation/internal/engine"
)

const (
	statusThresholdSet     = "threshold_set"
	statusThresholdCleared = "threshold_cleared"
)

// Request DTO for a runtime threshold override.
type thresholdRequest struct {
	MoistureThreshold float64 `json:"moisture_threshold" binding:"required"`
	TempOptimal       float64 `json:"temp_optimal" binding:"required"`
	HumidityOptimal   float64 `json:"humidity_optimal" binding:"required"`
}

// SetThresholdRequest is an exported model for Swagger docs of the override payload.
type SetThresholdRequest struct {
	// Moisture threshold in raw ADC counts (0..1023)
	MoistureThreshold float64 `json:"moisture_threshold" example:"450"`
	// Optimal temperature in Celsius
	TempOptimal float64 `json:"temp_optimal" example:"24"`
	// Optimal relative humidity in percent
	HumidityOptimal float64 `json:"humidity_optimal" example:"60"`
}

// @Summary      Get plant profile
// @Description  Species record with its effective thresholds and stage modifiers
// @Tags         plants
// @Produce      json
// @Param        type  path   string  true  "Plant type, e.g. tomato"
// @Success      200   {object}  service.PlantInfo
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/plants/{type} [get]
// @Security     BearerAuth
func (h *Handler) getPlant(c *gin.Context) {
	info, err := h.services.Plants.Get(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

// @Summary      Set threshold override
// @Description  Installs a runtime override for the species. Applies on the next control tick.
// @Tags         plants
// @Accept       json
// @Produce      json
// @Param        type  path   string               true  "Plant type"
// @Param        body  body   SetThresholdRequest  true  "Override payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/plants/{type}/thresholds [put]
// @Security     BearerAuth
func (h *Handler) setThresholds(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	o := engine.ThresholdOverride{
		MoistureThreshold: req.MoistureThreshold,
		TempOptimal:       req.TempOptimal,
		HumidityOptimal:   req.HumidityOptimal,
	}
	plantType := c.Param("type")
	if err := h.services.Plants.SetThreshold(c.Request.Context(), plantType, o); err != nil {
		if h.log != nil {
			h.log.Infow("plant_set_threshold_failed", "err", err, "plant", plantType)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusThresholdSet, "plant": plantType})
}

// @Summary      Clear threshold override
// @Description  Restores the species to its calibrated base profile
// @Tags         plants
// @Produce      json
// @Param        type  path   string  true  "Plant type"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/plants/{type}/thresholds [delete]
// @Security     BearerAuth
func (h *Handler) clearThresholds(c *gin.Context) {
	plantType := c.Param("type")
	if err := h.services.Plants.ClearThreshold(c.Request.Context(), plantType); err != nil {
		if h.log != nil {
			h.log.Infow("plant_clear_threshold_failed", "err", err, "plant", plantType)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusThresholdCleared, "plant": plantType})
}
