package vtsmap

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Authority selects which side owns a camera parameter.
type Authority int

const (
	HostControlled Authority = iota
	EngineControlled
)

func (a Authority) String() string {
	switch a {
	case HostControlled:
		return "host"
	case EngineControlled:
		return "engine"
	}
	return fmt.Sprintf("Authority(%d)", int(a))
}

func ParseAuthority(s string) (Authority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "host", "unity":
		return HostControlled, nil
	case "engine", "vts":
		return EngineControlled, nil
	}
	return HostControlled, fmt.Errorf("unknown authority %q", s)
}

func (a *Authority) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseAuthority(value.Value)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Authority) MarshalYAML() (any, error) {
	return a.String(), nil
}

type MapConfig struct {
	ConfigURL     string `yaml:"config_url"`
	AuthURL       string `yaml:"auth_url"`
	CreateOptions string `yaml:"create_options"`
	RunOptions    string `yaml:"run_options"`
}

type CameraConfig struct {
	ControlTransformation Authority `yaml:"control_transformation"`
	ControlNearFar        Authority `yaml:"control_near_far"`
	ControlFov            Authority `yaml:"control_fov"`
	Options               string    `yaml:"options"`
	// Atmosphere enables the per-camera atmosphere parameters and background.
	Atmosphere bool `yaml:"atmosphere"`
}

type ShiftingOriginConfig struct {
	DistanceThreshold float64 `yaml:"distance_threshold"`
	UpdateColliders   bool    `yaml:"update_colliders"`
}

type ColliderProbeConfig struct {
	Distance float64 `yaml:"distance"`
	Lod      uint32  `yaml:"lod"`
}

type PoolConfig struct {
	RecreateOnResize bool `yaml:"recreate_on_resize"`
}

type Config struct {
	Debug          bool                 `yaml:"debug"`
	LogPrefix      string               `yaml:"log_prefix"`
	Map            MapConfig            `yaml:"map"`
	Camera         CameraConfig         `yaml:"camera"`
	ShiftingOrigin ShiftingOriginConfig `yaml:"shifting_origin"`
	ColliderProbe  ColliderProbeConfig  `yaml:"collider_probe"`
	Pool           PoolConfig           `yaml:"pool"`
}

func DefaultConfig() Config {
	return Config{
		LogPrefix: "vts",
		Map: MapConfig{
			ConfigURL:  "https://cdn.melown.com/vts/melown2015/unity/world/mapConfig.json",
			RunOptions: `{ "targetResourcesMemoryKB":500000 }`,
		},
		Camera: CameraConfig{
			Options: `{ "traverseModeSurfaces":3, "maxTexelToPixelScale":1.2 }`,
		},
		ShiftingOrigin: ShiftingOriginConfig{
			DistanceThreshold: 2000,
		},
		ColliderProbe: ColliderProbeConfig{
			Distance: 200,
			Lod:      18,
		},
	}
}

// ParseConfig overlays YAML data on DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return ParseConfig(data)
}

func (c Config) Validate() error {
	if c.ShiftingOrigin.DistanceThreshold <= 0 {
		return fmt.Errorf("shifting_origin.distance_threshold must be positive, got %v", c.ShiftingOrigin.DistanceThreshold)
	}
	if c.ColliderProbe.Distance <= 0 {
		return fmt.Errorf("collider_probe.distance must be positive, got %v", c.ColliderProbe.Distance)
	}
	return nil
}
