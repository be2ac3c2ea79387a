package models

import "time"

// Event types recorded in the irrigation log.
const (
	EventWatering      = "WATERING"
	EventFailsafe      = "FAILSAFE"
	EventAnomaly       = "ANOMALY"
	EventPumpFault     = "PUMP_FAULT"
	EventEmergencyStop = "EMERGENCY_STOP"
	EventSafeMode      = "SAFE_MODE"
	EventResume        = "RESUME"
	EventReset         = "RESET"
	EventAdvisory      = "ADVISORY"
	EventConfig        = "CONFIG"
	EventError         = "ERROR"
)

// IrrigationEvent is a single log entry.
type IrrigationEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
