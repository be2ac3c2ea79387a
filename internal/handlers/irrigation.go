package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusStopped = "stopped"
	statusResumed = "resumed"
	statusReset   = "reset"

	errEmergencyStop   = "failed to stop pumps"
	errResume          = "failed to resume"
	errReset           = "failed to reset counters"
	errGetState        = "failed to load state"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	st, err := h.services.Monitoring.GetState(ctx)
	if err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get controller state
// @Description  Full snapshot: pumps, sensor channels, failsafe status and counters
// @Tags         irrigation
// @Produce      json
// @Success      200  {object}  models.ControllerState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/irrigation/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "irrigation_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Emergency stop
// @Description  Flags every active pump for shutdown on the next control tick
// @Tags         irrigation
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/irrigation/stop [post]
// @Security     BearerAuth
func (h *Handler) emergencyStop(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Irrigation.EmergencyStop(ctx); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errEmergencyStop, "irrigation_stop_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusStopped, gin.H{})
}

// @Summary      Resume from safe mode
// @Description  Clears the global safe-mode latch and per-pump failsafe flags
// @Tags         irrigation
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/irrigation/resume [post]
// @Security     BearerAuth
func (h *Handler) resume(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Irrigation.Resume(ctx); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errResume, "irrigation_resume_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusResumed, gin.H{})
}

// @Summary      Reset counters
// @Description  Clears the running statistics; watering history and overrides survive
// @Tags         irrigation
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/irrigation/reset [post]
// @Security     BearerAuth
func (h *Handler) reset(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Irrigation.Reset(ctx); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errReset, "irrigation_reset_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusReset, gin.H{})
}
