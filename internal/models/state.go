package models

import "time"

// PumpSnapshot is the externally visible view of one pump's state machine.
type PumpSnapshot struct {
	Index                 int       `json:"index"`
	IsActive              bool      `json:"is_active"`
	StartTime             time.Time `json:"start_time,omitempty"`
	PlannedDurationMs     int64     `json:"planned_duration_ms,omitempty"`
	LastWateringTime      time.Time `json:"last_watering_time,omitempty"`
	WateringCountInPeriod int       `json:"watering_count_in_period"`
	EmergencyStop         bool      `json:"emergency_stop"`
	FailsafeTriggered     bool      `json:"failsafe_triggered"`
}

// ChannelSnapshot is the externally visible view of one sensor channel.
type ChannelSnapshot struct {
	Index        int           `json:"index"`
	PlantType    string        `json:"plant_type"`
	GrowthStage  string        `json:"growth_stage"`
	LastReading  SensorReading `json:"last_reading"`
	AnomalyScore float64       `json:"anomaly_score"`
	Failed       bool          `json:"failed"`
}

// FailsafeStatus is the process-wide safe-mode flag. Once Active it is
// cleared only by an explicit resume command, never by the controller itself.
type FailsafeStatus struct {
	Active      bool      `json:"active"`
	Reason      string    `json:"reason,omitempty"`
	ActivatedAt time.Time `json:"activated_at,omitempty"`
}

// Counters are the running statistics surfaced by the status command and
// cleared by reset.
type Counters struct {
	Decisions         uint64 `json:"decisions"`
	Waterings         uint64 `json:"waterings"`
	FailsafeWaterings uint64 `json:"failsafe_waterings"`
	Suppressed        uint64 `json:"suppressed"`
	Anomalies         uint64 `json:"anomalies"`
	SkippedTicks      uint64 `json:"skipped_ticks"`
	DroppedTelemetry  uint64 `json:"dropped_telemetry"`
	AvgInferenceUs    int64  `json:"avg_inference_us"`
}

// ControllerState is the full snapshot persisted after each tick and served
// by the monitoring endpoints.
type ControllerState struct {
	ID        int               `json:"id"`
	Pumps     []PumpSnapshot    `json:"pumps"`
	Channels  []ChannelSnapshot `json:"channels"`
	Failsafe  FailsafeStatus    `json:"failsafe"`
	Counters  Counters          `json:"counters"`
	UpdatedAt time.Time         `json:"updated_at"`
}
