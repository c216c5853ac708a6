// guidanced is the live guidance daemon. It listens on a TCP control link
// for NMEA fixes and operator commands, runs the control loop at a fixed
// rate against the latest fix, and records the session through the
// configured storage backend.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/Xyntexx/AgOpenGPS/internal/cache"
	"github.com/Xyntexx/AgOpenGPS/internal/config"
	"github.com/Xyntexx/AgOpenGPS/internal/dispatcher"
	"github.com/Xyntexx/AgOpenGPS/internal/fix"
	"github.com/Xyntexx/AgOpenGPS/internal/handlers"
	"github.com/Xyntexx/AgOpenGPS/internal/influx"
	"github.com/Xyntexx/AgOpenGPS/internal/logging"
	"github.com/Xyntexx/AgOpenGPS/internal/loop"
	"github.com/Xyntexx/AgOpenGPS/internal/monitor"
	intOtel "github.com/Xyntexx/AgOpenGPS/internal/otel"
	"github.com/Xyntexx/AgOpenGPS/internal/parser"
	"github.com/Xyntexx/AgOpenGPS/internal/section"
	"github.com/Xyntexx/AgOpenGPS/internal/steer"
	"github.com/Xyntexx/AgOpenGPS/internal/storage"
	"github.com/Xyntexx/AgOpenGPS/internal/worker"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// Version can be set at build time via ldflags.
var (
	Version   = "0.0.1"
	BuildDate = "unknown"

	AppName = "guidanced"
)

var (
	SessionStartTime = time.Now()

	LogManager   *logging.Manager
	Logger       *slog.Logger
	OTelProvider *intOtel.Provider
)

// knownCommands is checked in registration order; a line matches the first
// command it is prefixed with, the rest of the line is ';'-separated args.
var knownCommands = []string{
	handlers.CmdLineAB,
	handlers.CmdLineCurve,
	handlers.CmdLineSelect,
	handlers.CmdSectionMode,
	handlers.CmdSectionsOff,
	handlers.CmdStatus,
}

func main() {
	if err := config.Load("."); err != nil {
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

	code := 0
	if err := run(); err != nil {
		Logger.Error("daemon failed", "error", err)
		code = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	LogManager.Flush(ctx)
	if OTelProvider != nil {
		OTelProvider.Shutdown(ctx)
	}
	os.Exit(code)
}

func run() error {
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

	buf := fix.NewBuffer()
	adapter := fix.NewAdapter(buf, Logger)

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

	runName := fmt.Sprintf("live_%s", SessionStartTime.Format("20060102_150405"))
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
		Source:     buf,
		Sinks:      sinks,
		Logger:     Logger,
	})
	if err != nil {
		return err
	}

	disp, err := dispatcher.New(Logger)
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	service := handlers.NewService(handlers.Dependencies{
		Parser:     parser.NewParser(Logger),
		FixAdapter: adapter,
		Lines:      cache.NewLineCache(),
		Runner:     runner,
		Sections:   sections,
		ToolWidthM: config.ToolWidthM(),
		Logger:     Logger,
	})
	service.RegisterAll(disp)

	flushWorker := worker.NewManager(worker.Dependencies{
		Backend:  backend,
		Interval: time.Duration(config.GetFloat64("storage.flushIntervalSec") * float64(time.Second)),
		Logger:   Logger,
	})
	flushWorker.Start()
	defer flushWorker.Stop()

	runRow := core.Run{Name: runName, StartTime: SessionStartTime, Simulated: false}
	if err := backend.StartRun(&runRow); err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	monitorService := monitor.NewService(monitor.Dependencies{
		LogManager: LogManager,
		Snapshot: func() monitor.Snapshot {
			return monitor.Snapshot{
				ElapsedSec: runner.Elapsed(),
				Faulted:    runner.Fault() != nil,
				RawAreaM2:  sections.Record().RawArea(),
			}
		},
		LastWriteMs: func() float64 { return float64(flushWorker.GetLastDBWriteDuration().Milliseconds()) },
		OutputDir:   config.GetString("logsDir"),
	})
	monitorService.Start()
	defer monitorService.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenAddr := config.GetString("link.listenAddr")
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listenAddr, err)
	}
	defer listener.Close()
	Logger.Info("Control link listening", "addr", listenAddr)

	go acceptLoop(ctx, listener, disp)

	rateHz := config.GetFloat64("loop.rateHz")
	if rateHz <= 0 {
		rateHz = 10
	}
	dt := 1 / rateHz
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			Logger.Info("Shutting down")
			return endRun(backend, runner, sections)
		case <-ticker.C:
			_, err := runner.Tick(dt)
			switch {
			case err == nil:
			case errors.Is(err, loop.ErrNoFix):
				// waiting for GNSS, nothing to do
			case errors.Is(err, loop.ErrNoGuidanceLine), errors.Is(err, loop.ErrFaulted):
				// operator can clear this via the link; keep serving
			default:
				return err
			}
		}
	}
}

func endRun(backend storage.Backend, runner *loop.Runner, sections *section.Controller) error {
	record := sections.Record()
	netArea, err := record.NetArea()
	if err != nil {
		Logger.Warn("net area computation failed", "error", err)
	}
	overlap, _ := record.OverlapPercent()
	summary := core.RunSummary{
		ElapsedSec:     runner.Elapsed(),
		RawAreaM2:      record.RawArea(),
		NetAreaM2:      netArea,
		OverlapPercent: overlap,
		Quads:          record.Snapshot(),
	}
	if err := backend.EndRun(summary); err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	Logger.Info("Run complete",
		"elapsedSec", summary.ElapsedSec,
		"rawAreaM2", summary.RawAreaM2,
		"netAreaM2", summary.NetAreaM2)
	return nil
}

func acceptLoop(ctx context.Context, listener net.Listener, disp *dispatcher.Dispatcher) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			Logger.Error("accept failed", "error", err)
			continue
		}
		Logger.Info("Link connected", "remote", conn.RemoteAddr())
		go serveLink(conn, disp)
	}
}

// serveLink reads commands line by line. A line starting with '$' is a raw
// NMEA sentence; anything else must be a known command followed by
// ';'-separated arguments.
func serveLink(conn net.Conn, disp *dispatcher.Dispatcher) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		event, err := parseLine(line)
		if err != nil {
			fmt.Fprintf(conn, "err %v\n", err)
			continue
		}

		result, err := disp.Dispatch(event)
		if err != nil {
			fmt.Fprintf(conn, "err %v\n", err)
			continue
		}
		fmt.Fprintf(conn, "ok %v\n", result)
	}
	Logger.Info("Link disconnected", "remote", conn.RemoteAddr())
}

func parseLine(line string) (dispatcher.Event, error) {
	now := time.Now()
	if strings.HasPrefix(line, "$") {
		return dispatcher.Event{Command: handlers.CmdFix, Args: []string{line}, Timestamp: now}, nil
	}
	for _, cmd := range knownCommands {
		if strings.HasPrefix(line, cmd) {
			var args []string
			if rest := line[len(cmd):]; rest != "" {
				args = strings.Split(rest, ";")
			}
			return dispatcher.Event{Command: cmd, Args: args, Timestamp: now}, nil
		}
	}
	return dispatcher.Event{}, fmt.Errorf("unknown command: %s", line)
}
