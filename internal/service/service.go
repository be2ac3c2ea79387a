package service

import (
	"context"
	"time"

	"smart_irrigation/internal/engine"
	"smart_irrigation/internal/logger"
	"smart_irrigation/internal/models"
	"smart_irrigation/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Irrigation exposes operator commands: emergency stop, resume from safe
// mode, counter reset and gateway advisories.
type Irrigation interface {
	EmergencyStop(ctx context.Context) error
	Resume(ctx context.Context) error
	Reset(ctx context.Context) error
	SubmitAdvisory(ctx context.Context, a models.Advisory) error
}

// Monitoring exposes the read-only controller snapshot.
type Monitoring interface {
	GetState(ctx context.Context) (models.ControllerState, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.IrrigationEvent, error)
}

// Plants exposes the species database and its runtime threshold overrides.
type Plants interface {
	Get(plantType string) (PlantInfo, error)
	SetThreshold(ctx context.Context, plantType string, o engine.ThresholdOverride) error
	ClearThreshold(ctx context.Context, plantType string) error
}

// ControlLoop runs the background tick loop that samples sensors, advances
// the controller and persists the outcome.
// Stop via context cancellation in main() for graceful shutdown.
type ControlLoop interface {
	Run(ctx context.Context, tick time.Duration)
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Irrigation
	Monitoring
	EventLog
	Plants
	ControlLoop
	Authorization
}

// Deps carries everything the services need beyond the repositories.
type Deps struct {
	Controller *engine.Controller
	Source     SensorSource
	Telemetry  TelemetryPublisher
	Clock      engine.Clock
	Log        *logger.Logger
	SigningKey string
}

// NewService wires the repository layer and the shared controller into the
// concrete services. Every sub-service that touches the controller goes
// through the same handle, which serializes access; the engine itself is
// single-threaded.
func NewService(repos *repository.Repository, deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = engine.SystemClock()
	}
	if deps.Log == nil {
		deps.Log = logger.Get(logger.InfoLevel)
	}
	h := &controllerHandle{ctrl: deps.Controller, clock: deps.Clock}
	return &Service{
		Irrigation:    NewIrrigationService(h, repos.StateRepo, repos.EventRepo),
		Monitoring:    NewMonitoringService(h, repos.StateRepo),
		EventLog:      NewEventLogService(repos.EventRepo),
		Plants:        NewPlantsService(h, repos.EventRepo),
		ControlLoop:   NewControlLoopService(h, deps.Source, repos.StateRepo, repos.EventRepo, deps.Telemetry, deps.Log),
		Authorization: NewAuthService(repos.Auth, deps.SigningKey),
	}
}
