package config

import (
	iface "ObstacleVisServer/interface"
	"ObstacleVisServer/planning"
	"ObstacleVisServer/render"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	DefaultExtrinsicsPath = "./conf/params/onsemi_obstacle_extrinsics.yaml"
	DefaultIntrinsicsPath = "./conf/params/onsemi_obstacle_intrinsics.yaml"
)

// Calibration points the surrounding pipeline at the camera parameters. The
// annotation tools only report these values.
type Calibration struct {
	ExtrinsicsPath string `yaml:"extrinsicsPath" json:"extrinsicsPath"`
	IntrinsicsPath string `yaml:"intrinsicsPath" json:"intrinsicsPath"`
	Undistortion   bool   `yaml:"undistortion" json:"undistortion"`
}

type Render struct {
	FontScale float64 `yaml:"fontScale" json:"fontScale"`
}

type Config struct {
	RPCPort     int             `yaml:"RPCPort" json:"rpcPort"`
	HTTPPort    int             `yaml:"HTTPPort" json:"httpPort"`
	MonitorPort int             `yaml:"MonitorPort" json:"monitorPort"`
	WorkersNum  int             `yaml:"workersNum" json:"workersNum"`
	LogMode     string          `yaml:"logMode" json:"logMode"`
	RenderDir   string          `yaml:"renderDir" json:"renderDir"`
	Frame       iface.Frame     `yaml:"frame" json:"frame"`
	Calibration Calibration     `yaml:"calibration" json:"calibration"`
	Render      Render          `yaml:"render" json:"render"`
	Planning    planning.Params `yaml:"planning" json:"planning"`
}

func Default() Config {
	return Config{
		RPCPort:     50051,
		HTTPPort:    8080,
		MonitorPort: 50053,
		WorkersNum:  1,
		LogMode:     "production",
		Frame:       iface.DefaultFrame,
		Calibration: Calibration{
			ExtrinsicsPath: DefaultExtrinsicsPath,
			IntrinsicsPath: DefaultIntrinsicsPath,
			Undistortion:   false,
		},
		Render:   Render{FontScale: render.DefaultFontScale},
		Planning: planning.DefaultParams(),
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Normalize repairs out of range values and returns a warning for each.
func (c *Config) Normalize() []string {
	var warnings []string
	cpus := runtime.NumCPU()
	if c.WorkersNum <= 0 {
		warnings = append(warnings, fmt.Sprintf("invalid workersNum %d, defaulting to 1", c.WorkersNum))
		c.WorkersNum = 1
	} else if c.WorkersNum > cpus {
		warnings = append(warnings, fmt.Sprintf("workersNum %d exceeds %d CPU cores, which may degrade performance", c.WorkersNum, cpus))
	}
	if c.Frame.Width <= 0 || c.Frame.Height <= 0 {
		warnings = append(warnings, fmt.Sprintf("invalid frame %vx%v, using %vx%v",
			c.Frame.Width, c.Frame.Height, iface.DefaultFrame.Width, iface.DefaultFrame.Height))
		c.Frame = iface.DefaultFrame
	}
	if c.Frame.EdgeMargin < 0 {
		warnings = append(warnings, "negative frame edgeMargin, using 0")
		c.Frame.EdgeMargin = 0
	}
	if c.Render.FontScale <= 0 {
		c.Render.FontScale = render.DefaultFontScale
	}
	if c.Planning.DecisionHorizon <= 0 {
		warnings = append(warnings, "invalid planning decisionHorizon, using default")
		c.Planning.DecisionHorizon = planning.DecisionHorizon
	}
	if c.Planning.LateralEnterLaneThreshold <= 0 {
		warnings = append(warnings, "invalid planning lateralEnterLaneThreshold, using default")
		c.Planning.LateralEnterLaneThreshold = planning.LateralEnterLaneThreshold
	}
	return warnings
}

func (c Config) EngineConfig() iface.EngineConfig {
	return iface.EngineConfig{
		Frame:     c.Frame,
		FontScale: c.Render.FontScale,
		Horizon:   c.Planning.DecisionHorizon,
		Lateral:   c.Planning.LateralEnterLaneThreshold,
	}
}
