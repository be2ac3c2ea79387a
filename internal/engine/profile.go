package engine

import (
	"errors"
	"strings"
)

// PlantType identifies one of the supported species.
type PlantType int

const (
	Tomato PlantType = iota
	Lettuce
	Basil
	Mint
	Pepper
	Rose
	Sunflower
	Marigold
	Petunia
	Daisy
	Strawberry
	Blueberry
	Raspberry
	Grape
	Cactus
	Succulent
	Fern
	Orchid
	Bamboo
	Lavender
	plantTypeCount
)

// GrowthStage identifies the plant's life-cycle stage.
type GrowthStage int

const (
	Seedling GrowthStage = iota
	Vegetative
	Flowering
	Fruiting
	Mature
	growthStageCount
)

var (
	ErrUnknownPlantType   = errors.New("unknown plant type")
	ErrUnknownGrowthStage = errors.New("unknown growth stage")
)

// Fallbacks served for out-of-range plant types, matching the table's most
// common crop values.
const (
	defaultMoistureThreshold = 400.0
	defaultWaterAmount       = 100.0
)

// PlantProfile is the immutable per-species record: base thresholds plus a
// multiplicative modifier per growth stage.
type PlantProfile struct {
	Name                  string
	BaseMoistureThreshold float64 // ADC counts; higher = drier soil
	OptimalTemperature    float64 // Celsius
	OptimalHumidity       float64 // percent
	LightRequirement      float64 // ADC counts
	BaseWaterAmount       float64 // ml per watering
	StageModifiers        [growthStageCount]float64
}

// ThresholdOverride shadows a profile's base values at runtime. Stage
// modifiers still apply multiplicatively on top of the override.
type ThresholdOverride struct {
	MoistureThreshold float64 `json:"moisture_threshold"`
	TempOptimal       float64 `json:"temp_optimal"`
	HumidityOptimal   float64 `json:"humidity_optimal"`
}

// plantDatabase is the read-only species table loaded at startup. Values
// carried over from the calibrated field deployment.
var plantDatabase = [plantTypeCount]PlantProfile{
	// Vegetables
	{"Tomato", 400, 24, 60, 700, 150, [5]float64{0.8, 1.0, 1.2, 1.3, 1.0}},
	{"Lettuce", 350, 18, 70, 500, 100, [5]float64{0.9, 1.0, 1.1, 0.8, 0.7}},
	{"Basil", 380, 22, 65, 600, 120, [5]float64{0.8, 1.0, 1.2, 1.1, 0.9}},
	{"Mint", 300, 20, 75, 450, 130, [5]float64{0.9, 1.0, 1.1, 1.0, 0.8}},
	{"Pepper", 420, 26, 55, 750, 140, [5]float64{0.8, 1.0, 1.3, 1.4, 1.1}},

	// Flowers
	{"Rose", 450, 22, 60, 650, 160, [5]float64{0.7, 1.0, 1.4, 1.2, 1.0}},
	{"Sunflower", 500, 25, 50, 800, 200, [5]float64{0.8, 1.0, 1.5, 1.3, 1.1}},
	{"Marigold", 400, 21, 55, 600, 110, [5]float64{0.9, 1.0, 1.2, 1.1, 0.8}},
	{"Petunia", 350, 20, 65, 550, 105, [5]float64{0.8, 1.0, 1.3, 1.1, 0.9}},
	{"Daisy", 370, 19, 60, 500, 95, [5]float64{0.9, 1.0, 1.1, 1.0, 0.8}},

	// Fruits
	{"Strawberry", 380, 20, 70, 550, 125, [5]float64{0.8, 1.0, 1.2, 1.4, 1.2}},
	{"Blueberry", 400, 22, 65, 600, 140, [5]float64{0.7, 1.0, 1.3, 1.5, 1.3}},
	{"Raspberry", 390, 21, 68, 580, 135, [5]float64{0.8, 1.0, 1.2, 1.4, 1.2}},
	{"Grape", 450, 24, 60, 700, 180, [5]float64{0.6, 1.0, 1.4, 1.6, 1.4}},

	// Specialty
	{"Cactus", 800, 28, 30, 900, 30, [5]float64{0.5, 1.0, 1.1, 1.0, 0.9}},
	{"Succulent", 750, 26, 35, 850, 35, [5]float64{0.6, 1.0, 1.0, 0.9, 0.8}},
	{"Fern", 250, 18, 85, 300, 90, [5]float64{1.0, 1.0, 1.0, 0.9, 0.8}},
	{"Orchid", 300, 23, 80, 400, 80, [5]float64{0.9, 1.0, 1.2, 1.1, 1.0}},
	{"Bamboo", 350, 22, 70, 550, 150, [5]float64{0.8, 1.0, 1.1, 1.0, 0.9}},
	{"Lavender", 500, 25, 45, 750, 100, [5]float64{0.7, 1.0, 1.3, 1.2, 1.0}},
}

// ProfileTable serves plant profiles and holds the runtime threshold
// overrides. The base table is never mutated.
type ProfileTable struct {
	overrides map[PlantType]ThresholdOverride
}

func NewProfileTable() *ProfileTable {
	return &ProfileTable{overrides: make(map[PlantType]ThresholdOverride)}
}

// Profile returns the species record with any override applied.
func (t *ProfileTable) Profile(pt PlantType) PlantProfile {
	if !pt.Valid() {
		p := plantDatabase[Tomato]
		p.Name = "Unknown"
		p.BaseMoistureThreshold = defaultMoistureThreshold
		p.BaseWaterAmount = defaultWaterAmount
		return p
	}
	p := plantDatabase[pt]
	if o, ok := t.overrides[pt]; ok {
		p.BaseMoistureThreshold = o.MoistureThreshold
		p.OptimalTemperature = o.TempOptimal
		p.OptimalHumidity = o.HumidityOptimal
	}
	return p
}

// MoistureThreshold returns the stage-adjusted moisture threshold:
// (override ?? base) x stage modifier.
func (t *ProfileTable) MoistureThreshold(pt PlantType, gs GrowthStage) float64 {
	base := defaultMoistureThreshold
	if pt.Valid() {
		base = t.Profile(pt).BaseMoistureThreshold
	}
	return base * StageModifier(pt, gs)
}

// StageModifier returns the multiplicative growth-stage modifier, 1.0 for
// anything out of range.
func StageModifier(pt PlantType, gs GrowthStage) float64 {
	if !pt.Valid() || !gs.Valid() {
		return 1.0
	}
	return plantDatabase[pt].StageModifiers[gs]
}

// SetOverride installs a runtime threshold override for the species.
func (t *ProfileTable) SetOverride(pt PlantType, o ThresholdOverride) error {
	if !pt.Valid() {
		return ErrUnknownPlantType
	}
	t.overrides[pt] = o
	return nil
}

// ClearOverride restores the species to its base values.
func (t *ProfileTable) ClearOverride(pt PlantType) error {
	if !pt.Valid() {
		return ErrUnknownPlantType
	}
	delete(t.overrides, pt)
	return nil
}

// ClearAllOverrides restores every species to base values.
func (t *ProfileTable) ClearAllOverrides() {
	t.overrides = make(map[PlantType]ThresholdOverride)
}

// HasOverride reports whether a runtime override shadows the species.
func (t *ProfileTable) HasOverride(pt PlantType) bool {
	_, ok := t.overrides[pt]
	return ok
}

func (pt PlantType) Valid() bool { return pt >= 0 && pt < plantTypeCount }

func (pt PlantType) String() string {
	if !pt.Valid() {
		return "unknown"
	}
	return strings.ToLower(plantDatabase[pt].Name)
}

// ParsePlantType resolves a case-insensitive species name.
func ParsePlantType(s string) (PlantType, error) {
	for i := PlantType(0); i < plantTypeCount; i++ {
		if strings.EqualFold(s, plantDatabase[i].Name) {
			return i, nil
		}
	}
	return 0, ErrUnknownPlantType
}

func (gs GrowthStage) Valid() bool { return gs >= 0 && gs < growthStageCount }

var stageNames = [growthStageCount]string{"seedling", "vegetative", "flowering", "fruiting", "mature"}

func (gs GrowthStage) String() string {
	if !gs.Valid() {
		return "unknown"
	}
	return stageNames[gs]
}

// ParseGrowthStage resolves a case-insensitive stage name.
func ParseGrowthStage(s string) (GrowthStage, error) {
	for i := GrowthStage(0); i < growthStageCount; i++ {
		if strings.EqualFold(s, stageNames[i]) {
			return i, nil
		}
	}
	return 0, ErrUnknownGrowthStage
}
