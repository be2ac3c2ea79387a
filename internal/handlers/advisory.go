package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart_irrigation/internal/models"
)

// Advisory payloads are small; a week of hourly floats fits well under this.
const maxAdvisoryBody = 16 << 10 // 16 KB

const statusAdvisoryAccepted = "accepted"

// @Summary      Submit gateway advisory
// @Description  Best-effort forecast and anomaly confidence from the cloud gateway. Stored for the status surface; no decision path depends on it.
// @Tags         irrigation
// @Accept       json
// @Produce      json
// @Param        body  body   models.Advisory  true  "Advisory payload"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/advisory [post]
// @Security     BearerAuth
func (h *Handler) postAdvisory(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAdvisoryBody)

	var a models.Advisory
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	if err := h.services.Irrigation.SubmitAdvisory(c.Request.Context(), a); err != nil {
		if h.log != nil {
			h.log.Infow("advisory_rejected", "err", err, "forecast_len", len(a.Forecast))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusAdvisoryAccepted})
}
