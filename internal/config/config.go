package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/Xyntexx/AgOpenGPS/internal/section"
	"github.com/Xyntexx/AgOpenGPS/internal/sim"
	"github.com/Xyntexx/AgOpenGPS/internal/steer"
)

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. A missing file is
// fine (defaults apply); a malformed one is not. Safety-relevant values
// are validated by the typed accessors below, never silently clamped.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./guidancelogs")

	viper.SetDefault("vehicle.wheelbaseM", 2.8)
	viper.SetDefault("vehicle.maxSteerAngleDeg", 40.0)

	viper.SetDefault("stanley.gains.headingError", 1.0)
	viper.SetDefault("stanley.gains.distanceError", 0.7)
	viper.SetDefault("stanley.gains.integral", 0.0)
	viper.SetDefault("stanley.maxIntegralDeg", 5.0)

	viper.SetDefault("sections.count", 5)
	viper.SetDefault("sections.widthM", 3.0)
	viper.SetDefault("sections.onDelaySec", 0.5)
	viper.SetDefault("sections.offDelaySec", 0.3)
	viper.SetDefault("sections.overlapPolicy", "ignore")

	viper.SetDefault("simulator.speedKmh", 10.0)

	viper.SetDefault("loop.rateHz", 10.0)
	viper.SetDefault("link.listenAddr", ":15550")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./runs")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.path", "./runs/guidance.db")
	viper.SetDefault("storage.sqlite.dumpIntervalSec", 30)
	viper.SetDefault("storage.websocket.url", "ws://localhost:5001/import")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("storage.flushIntervalSec", 5)

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.url", "http://localhost:5000")
	viper.SetDefault("api.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "guidance")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "guidance-metrics")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "agopengps-guidance")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("guidance.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// Vehicle assembles and validates the vehicle geometry.
func Vehicle() (sim.Config, error) {
	cfg := sim.Config{
		WheelbaseM: viper.GetFloat64("vehicle.wheelbaseM"),
	}
	if err := cfg.Validate(); err != nil {
		return sim.Config{}, err
	}
	return cfg, nil
}

// Stanley assembles and validates the controller configuration.
func Stanley() (steer.Config, error) {
	cfg := steer.Config{
		Gains: steer.Gains{
			HeadingError:  viper.GetFloat64("stanley.gains.headingError"),
			DistanceError: viper.GetFloat64("stanley.gains.distanceError"),
			Integral:      viper.GetFloat64("stanley.gains.integral"),
		},
		MaxSteerAngleDeg: viper.GetFloat64("vehicle.maxSteerAngleDeg"),
		MaxIntegralDeg:   viper.GetFloat64("stanley.maxIntegralDeg"),
	}
	if err := cfg.Validate(); err != nil {
		return steer.Config{}, err
	}
	return cfg, nil
}

// Sections assembles and validates the implement layout: count uniform
// sections centered on the implement centerline.
func Sections() (section.Config, error) {
	count := viper.GetInt("sections.count")
	width := viper.GetFloat64("sections.widthM")
	if count <= 0 {
		return section.Config{}, fmt.Errorf("%w: sections.count must be > 0, got %d",
			section.ErrInvalidConfig, count)
	}
	if width <= 0 {
		return section.Config{}, fmt.Errorf("%w: sections.widthM must be > 0, got %v",
			section.ErrInvalidConfig, width)
	}

	left := -float64(count) * width / 2
	layout := make([]section.SectionConfig, count)
	for i := range layout {
		layout[i] = section.SectionConfig{
			LeftOffsetM:  left + float64(i)*width,
			RightOffsetM: left + float64(i+1)*width,
		}
	}

	cfg := section.Config{
		Sections:    layout,
		OnDelaySec:  viper.GetFloat64("sections.onDelaySec"),
		OffDelaySec: viper.GetFloat64("sections.offDelaySec"),
	}
	if err := cfg.Validate(); err != nil {
		return section.Config{}, err
	}
	return cfg, nil
}

// OverlapPolicy returns the configured section overlap policy.
func OverlapPolicy() (section.OverlapPolicy, error) {
	return section.PolicyByName(viper.GetString("sections.overlapPolicy"))
}

// ToolWidthM returns the full implement width, which is also the parallel
// pass spacing for AB lines.
func ToolWidthM() float64 {
	return float64(viper.GetInt("sections.count")) * viper.GetFloat64("sections.widthM")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}
