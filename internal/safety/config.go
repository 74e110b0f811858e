package safety

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"siteops-backend/internal/models"
)

// HazardZone is a fixed circular region with a constant severity
type HazardZone struct {
	Name        string            `yaml:"name" json:"name"`
	Center      models.Coordinate `yaml:"center" json:"coordinates"`
	Radius      float64           `yaml:"radius" json:"radius"`
	Severity    models.Severity   `yaml:"severity" json:"severity"`
	Description string            `yaml:"description" json:"description"`
}

type Config struct {
	Interval         time.Duration                  `yaml:"interval" json:"-"`
	FeedSize         int                            `yaml:"feed_size" json:"feedSize"`
	SafetyRadii      map[models.MachineType]float64 `yaml:"safety_radii" json:"safetyRadii"`
	DefaultRadius    float64                        `yaml:"default_radius" json:"defaultRadius"`
	CriticalFraction float64                        `yaml:"critical_fraction" json:"criticalFraction"`
	HazardZones      []HazardZone                   `yaml:"hazard_zones" json:"hazardZones"`
	SafePointName    string                         `yaml:"safe_point_name" json:"safePointName"`
	SafePoint        models.Coordinate              `yaml:"safe_point" json:"safePoint"`
}

func DefaultConfig() Config {
	return Config{
		Interval: 2 * time.Second,
		FeedSize: 10,
		SafetyRadii: map[models.MachineType]float64{
			models.MachineExcavator: 15,
			models.MachineBulldozer: 12,
			models.MachineTruck:     8,
			models.MachineLoader:    10,
		},
		DefaultRadius:    10,
		CriticalFraction: 0.5,
		HazardZones: []HazardZone{
			{
				Name:        "Blasting Zone",
				Center:      models.Coordinate{X: 350, Y: 250},
				Radius:      50,
				Severity:    models.SeverityCritical,
				Description: "Active blasting area - immediate evacuation required",
			},
			{
				Name:        "Crane Operation Zone",
				Center:      models.Coordinate{X: 200, Y: 300},
				Radius:      25,
				Severity:    models.SeverityHigh,
				Description: "Heavy lifting in progress - maintain safe distance",
			},
			{
				Name:        "Chemical Storage",
				Center:      models.Coordinate{X: 75, Y: 150},
				Radius:      20,
				Severity:    models.SeverityMedium,
				Description: "Hazardous materials - PPE required",
			},
		},
		SafePointName: "Safety Station",
		SafePoint:     models.Coordinate{X: 200, Y: 100, Zone: "central"},
	}
}

// LoadConfig reads a YAML file over the defaults. Keys absent from the file
// keep their default values; a hazard_zones list replaces the default list.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read safety config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse safety config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("safety config: interval must be positive")
	}
	if c.FeedSize <= 0 {
		return fmt.Errorf("safety config: feed_size must be positive")
	}
	if c.DefaultRadius <= 0 {
		return fmt.Errorf("safety config: default_radius must be positive")
	}
	if c.CriticalFraction <= 0 || c.CriticalFraction > 1 {
		return fmt.Errorf("safety config: critical_fraction must be in (0, 1]")
	}
	for machineType, radius := range c.SafetyRadii {
		if radius <= 0 {
			return fmt.Errorf("safety config: radius for %s must be positive", machineType)
		}
	}
	for _, zone := range c.HazardZones {
		if zone.Name == "" {
			return fmt.Errorf("safety config: hazard zone without name")
		}
		if zone.Radius <= 0 {
			return fmt.Errorf("safety config: hazard zone %q radius must be positive", zone.Name)
		}
		if zone.Severity.Rank() == 0 {
			return fmt.Errorf("safety config: hazard zone %q has unknown severity %q", zone.Name, zone.Severity)
		}
	}
	return nil
}

// RadiusFor returns the safety radius for a machine type, falling back to DefaultRadius
func (c Config) RadiusFor(t models.MachineType) float64 {
	if r, ok := c.SafetyRadii[t]; ok {
		return r
	}
	return c.DefaultRadius
}
