package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart_irrigation/internal/engine"
	"smart_irrigation/internal/handlers"
	"smart_irrigation/internal/logger"
	"smart_irrigation/internal/repository"
	"smart_irrigation/internal/sensors"
	"smart_irrigation/internal/server"
	"smart_irrigation/internal/service"
	"smart_irrigation/internal/telemetry"

	"github.com/spf13/viper"
)

const defaultControlTick = 1 * time.Second

func main() {
	// load config.yml first so the logger picks up the configured level
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log_level"))

	// open DB
	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// build the control core and its actuation path
	src, driver, closeDriver, err := buildActuation(log)
	if err != nil {
		log.Fatalw("failed to init pump driver", "err", err)
	}
	defer closeDriver()

	ctrl, err := engine.NewController(controllerConfig(), driver)
	if err != nil {
		log.Fatalw("invalid controller config", "err", err)
	}

	// wire dependencies
	repos := repository.NewRepository(db)
	restoreState(ctrl, repos, log)

	pub := telemetry.NewPublisher(telemetryConfig(), log)

	services := service.NewService(repos, service.Deps{
		Controller: ctrl,
		Source:     src,
		Telemetry:  pub,
		Log:        log,
		SigningKey: viper.GetString("auth.signing_key"),
	})
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start the telemetry uplink and the control loop
	go pub.Run(ctx)
	go services.ControlLoop.Run(ctx, controlTick())

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "irrigation.db")
		dbPath = "irrigation.db"
	}
	return repository.InitDB(dbPath)
}

// controllerConfig builds the core config from the defaults plus whatever
// the config file overrides.
func controllerConfig() engine.Config {
	cfg := engine.DefaultConfig()

	if n := viper.GetInt("control.channels"); n > 0 {
		cfg.Channels = n
	}
	if a := channelAssignments(cfg.Channels); a != nil {
		cfg.Assignments = a
	}
	if d := viper.GetDuration("control.min_watering_interval"); d > 0 {
		cfg.MinWateringInterval = d
	}
	if viper.IsSet("control.failsafe_enabled") {
		cfg.FailsafeEnabled = viper.GetBool("control.failsafe_enabled")
	}
	// stuck-relay detection needs at least one observation per run; a grace
	// window shorter than the tick would flag every short watering
	if tick := controlTick(); cfg.Pump.GracePeriod < tick {
		cfg.Pump.GracePeriod = tick
	}
	return cfg
}

// channelAssignments parses control.assignments entries of the form
// {plant: tomato, stage: vegetative}. Returns nil when the key is absent or
// malformed so the caller keeps the defaults.
func channelAssignments(channels int) []engine.PlantAssignment {
	var raw []struct {
		Plant string `mapstructure:"plant"`
		Stage string `mapstructure:"stage"`
	}
	if err := viper.UnmarshalKey("control.assignments", &raw); err != nil || len(raw) != channels {
		return nil
	}
	out := make([]engine.PlantAssignment, len(raw))
	for i, r := range raw {
		pt, err := engine.ParsePlantType(r.Plant)
		if err != nil {
			return nil
		}
		st, err := engine.ParseGrowthStage(r.Stage)
		if err != nil {
			return nil
		}
		out[i] = engine.PlantAssignment{Type: pt, Stage: st}
	}
	return out
}

func controlTick() time.Duration {
	if d := viper.GetDuration("control.tick"); d > 0 {
		return d
	}
	return defaultControlTick
}

func telemetryConfig() telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.GatewayURL = viper.GetString("telemetry.gateway_url")
	if d := viper.GetDuration("telemetry.min_interval"); d > 0 {
		cfg.MinInterval = d
	}
	if n := viper.GetInt("telemetry.buffer"); n > 0 {
		cfg.BufferSize = n
	}
	return cfg
}

// buildActuation picks the sensor source and pump driver for the configured
// deployment. The simulated bank covers both roles on the bench; on the Pi
// the relay board drives the pumps while the bank still feeds readings.
// TODO: replace the bank with the MCP3008 ADC frontend once it is calibrated.
func buildActuation(log *logger.Logger) (service.SensorSource, engine.PumpDriver, func(), error) {
	channels := viper.GetInt("control.channels")
	if channels <= 0 {
		channels = engine.DefaultConfig().Channels
	}
	bank := sensors.NewSimulatedBank(channels, time.Now().UnixNano())

	if viper.GetString("control.driver") != "gpio" {
		return bank, bank, func() {}, nil
	}

	pins := viper.GetIntSlice("control.relay_pins")
	if len(pins) == 0 {
		pins = sensors.DefaultRelayPins
	}
	relay, err := sensors.OpenRelayDriver(pins)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if cerr := relay.Close(); cerr != nil {
			log.Errorw("failed to release gpio", "err", cerr)
		}
	}
	return bank, relay, closeFn, nil
}

// restoreState reloads the last persisted snapshot so a restart keeps the
// watering history, counters and the safe-mode latch.
func restoreState(ctrl *engine.Controller, repos *repository.Repository, log *logger.Logger) {
	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()

	st, err := repos.StateRepo.Load(ctx)
	if err != nil {
		log.Infow("no persisted state; starting fresh", "err", err)
		return
	}
	ctrl.Restore(st)
	log.Infow("restored controller state", "updated_at", st.UpdatedAt, "safe_mode", st.Failsafe.Active)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
