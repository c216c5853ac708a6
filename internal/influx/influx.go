// Package influx pushes per-tick guidance telemetry (cross-track error,
// steer angles, applied area) to InfluxDB for dashboarding live runs.
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// BucketName is the bucket guidance telemetry lands in.
const BucketName = "guidance_telemetry"

// Manager handles the InfluxDB connection and writes.
type Manager struct {
	Client  influxdb2.Client
	Writer  influxdb2_api.WriteAPI
	IsValid bool
	Logger  zerolog.Logger

	runName string
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// Connect establishes a connection to InfluxDB using the influx.* keys.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(context.Background())
	if err != nil || !running {
		m.IsValid = false
		return fmt.Errorf("influxdb not reachable: %v", err)
	}

	m.Writer = m.Client.WriteAPI(viper.GetString("influx.org"), BucketName)
	m.IsValid = true
	m.Logger.Info().Msg("Connected to InfluxDB")
	return nil
}

// SetRun tags subsequent points with the run name.
func (m *Manager) SetRun(name string) {
	m.runName = name
}

// WriteTick queues one tick record as a telemetry point. Writes are
// batched by the client; this never blocks the control loop.
func (m *Manager) WriteTick(rec core.TickRecord) {
	if !m.IsValid {
		return
	}

	sectionsOn := 0
	for _, s := range rec.Sections {
		if s.IsOn {
			sectionsOn++
		}
	}

	p := influxdb2.NewPointWithMeasurement("guidance").
		AddTag("run", m.runName).
		AddField("crossTrackM", rec.Error.CrossTrack).
		AddField("headingErrRad", rec.Error.Heading).
		AddField("commandedSteerDeg", rec.CommandedSteer).
		AddField("smoothedSteerDeg", rec.SmoothedSteer).
		AddField("speedMS", rec.Pose.Speed).
		AddField("sectionsOn", sectionsOn).
		SetTime(time.Now())
	m.Writer.WritePoint(p)
}

// RecordTick satisfies the control loop sink contract.
func (m *Manager) RecordTick(rec core.TickRecord) error {
	m.WriteTick(rec)
	return nil
}

// WriteCoverage queues a coverage statistics point.
func (m *Manager) WriteCoverage(rawM2, netM2, overlapPct float64) {
	if !m.IsValid {
		return
	}
	p := influxdb2.NewPointWithMeasurement("coverage").
		AddTag("run", m.runName).
		AddField("rawAreaM2", rawM2).
		AddField("netAreaM2", netM2).
		AddField("overlapPercent", overlapPct).
		SetTime(time.Now())
	m.Writer.WritePoint(p)
}

// Close flushes and shuts down the client.
func (m *Manager) Close() {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	m.IsValid = false
}
