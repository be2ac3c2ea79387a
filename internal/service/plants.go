package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"smart_irrigation/internal/engine"
	"smart_irrigation/internal/models"
	"smart_irrigation/internal/repository"
)

// PlantInfo is the external view of one species record.
type PlantInfo struct {
	Name                  string             `json:"name"`
	BaseMoistureThreshold float64            `json:"base_moisture_threshold"`
	OptimalTemperature    float64            `json:"optimal_temperature"`
	OptimalHumidity       float64            `json:"optimal_humidity"`
	LightRequirement      float64            `json:"light_requirement"`
	BaseWaterAmount       float64            `json:"base_water_amount"`
	StageModifiers        map[string]float64 `json:"stage_modifiers"`
	Overridden            bool               `json:"overridden"`
}

var errInvalidThreshold = errors.New("threshold values must be positive")

type PlantsService struct {
	handle    *controllerHandle
	eventRepo repository.EventRepo
}

func NewPlantsService(h *controllerHandle, eventRepo repository.EventRepo) *PlantsService {
	return &PlantsService{handle: h, eventRepo: eventRepo}
}

// Get resolves a species by name and returns its effective profile,
// including any live override.
func (s *PlantsService) Get(plantType string) (PlantInfo, error) {
	pt, err := engine.ParsePlantType(plantType)
	if err != nil {
		return PlantInfo{}, err
	}

	var p engine.PlantProfile
	var overridden bool
	s.handle.with(func(c *engine.Controller) {
		p, overridden = c.Profile(pt)
	})

	stages := make(map[string]float64, len(p.StageModifiers))
	for i, m := range p.StageModifiers {
		stages[engine.GrowthStage(i).String()] = m
	}
	return PlantInfo{
		Name:                  p.Name,
		BaseMoistureThreshold: p.BaseMoistureThreshold,
		OptimalTemperature:    p.OptimalTemperature,
		OptimalHumidity:       p.OptimalHumidity,
		LightRequirement:      p.LightRequirement,
		BaseWaterAmount:       p.BaseWaterAmount,
		StageModifiers:        stages,
		Overridden:            overridden,
	}, nil
}

// SetThreshold installs a runtime override for the species. Takes effect on
// the next control tick; never mid-decision.
func (s *PlantsService) SetThreshold(ctx context.Context, plantType string, o engine.ThresholdOverride) error {
	pt, err := engine.ParsePlantType(plantType)
	if err != nil {
		return err
	}
	if o.MoistureThreshold <= 0 || o.TempOptimal <= 0 || o.HumidityOptimal <= 0 {
		return errInvalidThreshold
	}

	var setErr error
	s.handle.with(func(c *engine.Controller) {
		setErr = c.SetThresholdOverride(pt, o)
	})
	if setErr != nil {
		return setErr
	}

	return s.eventRepo.Append(ctx, models.IrrigationEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  s.handle.now().UTC(),
		Type:        models.EventConfig,
		Description: fmt.Sprintf("Threshold override set for %s", pt),
		Metadata: map[string]any{
			"plant":              pt.String(),
			"moisture_threshold": o.MoistureThreshold,
			"temp_optimal":       o.TempOptimal,
			"humidity_optimal":   o.HumidityOptimal,
		},
	})
}

// ClearThreshold restores a species to its calibrated base profile.
func (s *PlantsService) ClearThreshold(ctx context.Context, plantType string) error {
	pt, err := engine.ParsePlantType(plantType)
	if err != nil {
		return err
	}

	var clearErr error
	s.handle.with(func(c *engine.Controller) {
		clearErr = c.ClearThresholdOverride(pt)
	})
	if clearErr != nil {
		return clearErr
	}

	return s.eventRepo.Append(ctx, models.IrrigationEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  s.handle.now().UTC(),
		Type:        models.EventConfig,
		Description: fmt.Sprintf("Threshold override cleared for %s", pt),
		Metadata:    map[string]any{"plant": pt.String()},
	})
}
