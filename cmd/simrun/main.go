// simrun drives the guidance loop against the kinematic simulator: it
// places the vehicle off an AB line, runs the closed loop for a fixed
// duration (optionally over several parallel passes) and records the run
// through the configured storage backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/Xyntexx/AgOpenGPS/internal/api"
	"github.com/Xyntexx/AgOpenGPS/internal/config"
	"github.com/Xyntexx/AgOpenGPS/internal/guidance"
	"github.com/Xyntexx/AgOpenGPS/internal/influx"
	"github.com/Xyntexx/AgOpenGPS/internal/logging"
	"github.com/Xyntexx/AgOpenGPS/internal/loop"
	"github.com/Xyntexx/AgOpenGPS/internal/monitor"
	intOtel "github.com/Xyntexx/AgOpenGPS/internal/otel"
	"github.com/Xyntexx/AgOpenGPS/internal/section"
	"github.com/Xyntexx/AgOpenGPS/internal/sim"
	"github.com/Xyntexx/AgOpenGPS/internal/steer"
	"github.com/Xyntexx/AgOpenGPS/internal/storage"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// Version can be set at build time via ldflags.
var (
	Version   = "0.0.1"
	BuildDate = "unknown"

	AppName = "simrun"
)

var (
	SessionStartTime = time.Now()

	LogManager   *logging.Manager
	Logger       *slog.Logger
	OTelProvider *intOtel.Provider

	latestRecord atomic.Pointer[core.TickRecord]
)

func main() {
	var (
		configDir = flag.String("config", ".", "directory containing guidance.cfg.json")
		duration  = flag.Float64("duration", 120, "simulated seconds to run")
		dt        = flag.Float64("dt", 0.1, "control tick interval in seconds")
		offset    = flag.Float64("offset", 2.0, "initial cross-track offset in metres")
		passes    = flag.Int("passes", 1, "number of parallel passes to drive")
		runName   = flag.String("run", "", "run name (default simrun_<timestamp>)")
		realtime  = flag.Bool("realtime", false, "pace ticks at wall-clock rate")
	)
	flag.Parse()

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logsDir := config.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.Mkdir(logsDir, 0755)
	}
	logFilePath := logging.LogFilePath(logsDir, AppName, SessionStartTime)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", logFilePath, err)
	}

	if config.GetBool("otel.enabled") {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  config.GetString("otel.serviceName"),
			BatchTimeout: 5 * time.Second,
			LogWriter:    logFile,
			Endpoint:     config.GetString("otel.endpoint"),
			Insecure:     config.GetBool("otel.insecure"),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize OTel provider: %v\n", err)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	LogManager = logging.NewManager()
	LogManager.Setup(logFile, config.GetString("logLevel"), otelLogProvider)
	Logger = LogManager.Logger()
	Logger.Info("Starting up", "version", Version, "buildDate", BuildDate, "log", logFilePath)

	if err := run(*duration, *dt, *offset, *passes, *runName, *realtime); err != nil {
		Logger.Error("run failed", "error", err)
		shutdown(1)
	}
	shutdown(0)
}

func shutdown(code int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	LogManager.Flush(ctx)
	if OTelProvider != nil {
		OTelProvider.Shutdown(ctx)
	}
	os.Exit(code)
}

func run(duration, dt, offset float64, passes int, runName string, realtime bool) error {
	vehicleCfg, err := config.Vehicle()
	if err != nil {
		return fmt.Errorf("vehicle config: %w", err)
	}
	stanleyCfg, err := config.Stanley()
	if err != nil {
		return fmt.Errorf("stanley config: %w", err)
	}
	sectionsCfg, err := config.Sections()
	if err != nil {
		return fmt.Errorf("sections config: %w", err)
	}
	policy, err := config.OverlapPolicy()
	if err != nil {
		return fmt.Errorf("overlap policy: %w", err)
	}

	controller, err := steer.New(stanleyCfg)
	if err != nil {
		return err
	}
	sections, err := section.New(sectionsCfg, nil, policy)
	if err != nil {
		return err
	}

	speed := config.GetFloat64("simulator.speedKmh") / 3.6
	start := core.Pose{
		Position: core.Point{X: offset, Y: 0},
		Heading:  0,
		Speed:    speed,
	}
	simulator, err := sim.New(vehicleCfg, start)
	if err != nil {
		return err
	}

	// recording
	if runName == "" {
		runName = fmt.Sprintf("simrun_%s", SessionStartTime.Format("20060102_150405"))
	}
	dbLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	backend, err := storage.NewBackend(Logger, dbLogger)
	if err != nil {
		return fmt.Errorf("storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	defer backend.Close()

	sinks := []loop.Sink{backend}

	influxManager := influx.NewManager(dbLogger)
	if config.GetBool("influx.enabled") {
		if err := influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB unavailable, telemetry disabled", "error", err)
		} else {
			influxManager.SetRun(runName)
			sinks = append(sinks, influxManager)
			defer influxManager.Close()
		}
	}

	runner, err := loop.NewRunner(loop.Dependencies{
		Controller: controller,
		Sections:   sections,
		Simulator:  simulator,
		Sinks:      sinks,
		Logger:     Logger,
	})
	if err != nil {
		return err
	}

	line := guidance.NewABLine(core.Point{}, 0, config.ToolWidthM())
	runner.SetLine(line)

	runRow := core.Run{Name: runName, StartTime: SessionStartTime, Simulated: true}
	if err := backend.StartRun(&runRow); err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	Logger.Info("Run started",
		"run", runName, "id", runRow.ID,
		"duration", duration, "dt", dt, "offset", offset, "passes", passes,
		"speedMS", speed)

	lastWriteMs := func() float64 { return 0 }
	if timed, ok := backend.(interface{ GetLastDBWriteDuration() time.Duration }); ok {
		lastWriteMs = func() float64 { return float64(timed.GetLastDBWriteDuration().Milliseconds()) }
	}
	monitorService := monitor.NewService(monitor.Dependencies{
		LogManager:  LogManager,
		Snapshot:    snapshot(runner, sections),
		LastWriteMs: lastWriteMs,
		OutputDir:   logsDir(),
	})
	monitorService.Start()
	defer monitorService.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Each pass gets an equal slice of the duration. Between passes the
	// vehicle is repositioned at the start of the next shifted line with
	// the same initial offset, so every pass exercises acquisition.
	passDuration := duration / float64(passes)
	converged := false
	pass := 0

	for runner.Elapsed() < duration {
		if ctx.Err() != nil {
			Logger.Warn("Interrupted, ending run early")
			break
		}

		wantPass := int(runner.Elapsed() / passDuration)
		if wantPass > pass && wantPass < passes {
			pass = wantPass
			shifted := line.Shift(pass)
			runner.SetLine(shifted)
			passY := speed * runner.Elapsed() // keep driving forward
			simulator.Reset(core.Pose{
				Position: core.Point{X: float64(pass)*config.ToolWidthM() + offset, Y: passY},
				Heading:  0,
				Speed:    speed,
			})
			converged = false
			Logger.Info("Advancing to next pass", "pass", pass)
		}

		rec, err := runner.Tick(dt)
		if err != nil {
			return err
		}
		latestRecord.Store(&rec)

		if !converged && math.Abs(rec.Error.CrossTrack) < 0.05 {
			converged = true
			Logger.Info("Converged onto line",
				"pass", pass, "elapsed", rec.Elapsed, "crossTrackM", rec.Error.CrossTrack)
		}

		if realtime {
			time.Sleep(time.Duration(dt * float64(time.Second)))
		}
	}

	record := sections.Record()
	netArea, err := record.NetArea()
	if err != nil {
		Logger.Warn("net area computation failed", "error", err)
	}
	overlap, _ := record.OverlapPercent()
	var ticks uint64
	if rec := latestRecord.Load(); rec != nil {
		ticks = rec.Tick
	}
	summary := core.RunSummary{
		Ticks:          ticks,
		ElapsedSec:     runner.Elapsed(),
		RawAreaM2:      record.RawArea(),
		NetAreaM2:      netArea,
		OverlapPercent: overlap,
		Quads:          record.Snapshot(),
	}
	if err := backend.EndRun(summary); err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	influxManager.WriteCoverage(summary.RawAreaM2, summary.NetAreaM2, summary.OverlapPercent)

	Logger.Info("Run complete",
		"run", runName,
		"elapsedSec", summary.ElapsedSec,
		"rawAreaM2", summary.RawAreaM2,
		"netAreaM2", summary.NetAreaM2,
		"overlapPercent", summary.OverlapPercent)

	if exp, ok := backend.(storage.Exportable); ok {
		path := exp.ExportedFilePath()
		Logger.Info("Run exported", "path", path)
		if config.GetBool("api.enabled") && path != "" {
			uploadRun(path, runName, summary.ElapsedSec)
		}
	}
	return nil
}

func uploadRun(path, runName string, elapsedSec float64) {
	client := api.New(config.GetString("api.url"), config.GetString("api.secret"))
	if err := client.Healthcheck(); err != nil {
		Logger.Warn("viewer unreachable, skipping upload", "error", err)
		return
	}
	err := client.Upload(path, api.RunMetadata{
		RunName:    runName,
		ElapsedSec: elapsedSec,
		Simulated:  true,
	})
	if err != nil {
		Logger.Error("run upload failed", "error", err)
		return
	}
	Logger.Info("Run uploaded", "path", path)
}

func logsDir() string {
	return config.GetString("logsDir")
}

// snapshot adapts live loop state into the monitor's sample shape.
func snapshot(runner *loop.Runner, sections *section.Controller) func() monitor.Snapshot {
	return func() monitor.Snapshot {
		snap := monitor.Snapshot{Faulted: runner.Fault() != nil}
		rec := latestRecord.Load()
		if rec == nil {
			return snap
		}
		snap.Ticks = rec.Tick
		snap.ElapsedSec = rec.Elapsed
		snap.CrossTrackM = rec.Error.CrossTrack
		snap.SmoothSteerDeg = rec.SmoothedSteer
		for _, s := range rec.Sections {
			if s.IsOn {
				snap.SectionsOn++
			}
		}
		record := sections.Record()
		snap.RawAreaM2 = record.RawArea()
		if net, err := record.NetArea(); err == nil {
			snap.NetAreaM2 = net
		}
		return snap
	}
}
