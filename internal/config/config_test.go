package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xyntexx/AgOpenGPS/internal/section"
)

// viper state is process-global, so the scenarios run in one test in a
// fixed order: defaults first, then a config file on top.
func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		require.NoError(t, Load(t.TempDir()))

		vehicle, err := Vehicle()
		require.NoError(t, err)
		assert.Equal(t, 2.8, vehicle.WheelbaseM)

		stanley, err := Stanley()
		require.NoError(t, err)
		assert.Equal(t, 1.0, stanley.Gains.HeadingError)
		assert.Equal(t, 0.7, stanley.Gains.DistanceError)
		assert.Equal(t, 40.0, stanley.MaxSteerAngleDeg)
		assert.Equal(t, 5.0, stanley.MaxIntegralDeg)

		sections, err := Sections()
		require.NoError(t, err)
		require.Len(t, sections.Sections, 5)
		assert.Equal(t, 0.5, sections.OnDelaySec)
		assert.Equal(t, 0.3, sections.OffDelaySec)

		policy, err := OverlapPolicy()
		require.NoError(t, err)
		assert.IsType(t, section.IgnoreOverlap{}, policy)

		assert.Equal(t, 15.0, ToolWidthM())
		assert.Equal(t, "memory", GetString("storage.type"))
		assert.Equal(t, 10.0, GetFloat64("loop.rateHz"))
		assert.False(t, GetBool("otel.enabled"))
		assert.Equal(t, 5, GetInt("storage.flushIntervalSec"))
	})

	t.Run("uniform layout is centered", func(t *testing.T) {
		sections, err := Sections()
		require.NoError(t, err)

		first := sections.Sections[0]
		last := sections.Sections[len(sections.Sections)-1]
		assert.Equal(t, -7.5, first.LeftOffsetM)
		assert.Equal(t, 7.5, last.RightOffsetM)
		for _, s := range sections.Sections {
			assert.Equal(t, 3.0, s.Width())
		}
	})

	t.Run("config file overrides defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfg := `{
			"vehicle": {"wheelbaseM": 3.2},
			"sections": {"count": 3, "widthM": 2.0, "overlapPolicy": "suppress"},
			"simulator": {"speedKmh": 8.0}
		}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "guidance.cfg.json"), []byte(cfg), 0o644))
		require.NoError(t, Load(dir))

		vehicle, err := Vehicle()
		require.NoError(t, err)
		assert.Equal(t, 3.2, vehicle.WheelbaseM)

		sections, err := Sections()
		require.NoError(t, err)
		require.Len(t, sections.Sections, 3)
		assert.Equal(t, -3.0, sections.Sections[0].LeftOffsetM)
		assert.Equal(t, 6.0, ToolWidthM())

		policy, err := OverlapPolicy()
		require.NoError(t, err)
		assert.IsType(t, section.SuppressOnOverlap{}, policy)

		assert.Equal(t, 8.0, GetFloat64("simulator.speedKmh"))
		// untouched keys keep their defaults
		assert.Equal(t, 0.5, GetFloat64("sections.onDelaySec"))
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		// drop the accumulated search paths so the earlier valid file
		// cannot shadow this one
		viper.Reset()
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "guidance.cfg.json"), []byte("{nope"), 0o644))
		assert.Error(t, Load(dir))

		viper.Reset()
		require.NoError(t, Load(t.TempDir()))
	})

	t.Run("invalid values are rejected by the accessors", func(t *testing.T) {
		viper.Set("vehicle.wheelbaseM", -1.0)
		_, err := Vehicle()
		assert.Error(t, err)
		viper.Set("vehicle.wheelbaseM", 2.8)

		viper.Set("sections.count", 0)
		_, err = Sections()
		assert.ErrorIs(t, err, section.ErrInvalidConfig)
		viper.Set("sections.count", 5)

		viper.Set("sections.widthM", -3.0)
		_, err = Sections()
		assert.ErrorIs(t, err, section.ErrInvalidConfig)
		viper.Set("sections.widthM", 3.0)

		viper.Set("sections.overlapPolicy", "bogus")
		_, err = OverlapPolicy()
		assert.ErrorIs(t, err, section.ErrInvalidConfig)
		viper.Set("sections.overlapPolicy", "ignore")
	})
}
