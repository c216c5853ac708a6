// Package handlers implements the command surface of the guidance process:
// incoming NMEA fixes and operator commands are routed here by the
// dispatcher and turned into calls on the loop, the section controller and
// the line cache.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"github.com/Xyntexx/AgOpenGPS/internal/cache"
	"github.com/Xyntexx/AgOpenGPS/internal/dispatcher"
	"github.com/Xyntexx/AgOpenGPS/internal/fix"
	"github.com/Xyntexx/AgOpenGPS/internal/geo"
	"github.com/Xyntexx/AgOpenGPS/internal/guidance"
	"github.com/Xyntexx/AgOpenGPS/internal/loop"
	"github.com/Xyntexx/AgOpenGPS/internal/parser"
	"github.com/Xyntexx/AgOpenGPS/internal/section"
	"github.com/Xyntexx/AgOpenGPS/internal/util"
	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// Commands understood by the service.
const (
	CmdFix         = ":FIX:"
	CmdLineAB      = ":LINE:AB:"
	CmdLineCurve   = ":LINE:CURVE:"
	CmdLineSelect  = ":LINE:SELECT:"
	CmdSectionMode = ":SECTION:MODE:"
	CmdSectionsOff = ":SECTIONS:OFF:"
	CmdStatus      = ":STATUS:"
)

// Dependencies holds all dependencies for the handler service.
type Dependencies struct {
	Parser     *parser.Parser
	FixAdapter *fix.Adapter
	Lines      *cache.LineCache
	Runner     *loop.Runner
	Sections   *section.Controller
	ToolWidthM float64
	Logger     *slog.Logger
}

// Service routes parsed commands into the guidance core.
type Service struct {
	deps Dependencies

	mu       sync.Mutex
	lastVTG  parser.VTG
	lastHDT  parser.HDT
	haveHDT  bool
	fixCount cache.SafeCounter

	// curve points accumulated by :LINE:CURVE: until its final "end" call
	pendingCurve     []core.Point
	pendingCurveName string
}

// NewService creates the handler service.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// RegisterAll wires every command onto the dispatcher. Fixes arrive at GNSS
// rate and are buffered so a slow consumer never stalls the link reader.
func (s *Service) RegisterAll(d *dispatcher.Dispatcher) {
	d.Register(CmdFix, s.HandleFix, dispatcher.Buffered(64))
	d.Register(CmdLineAB, s.HandleLineAB, dispatcher.Logged())
	d.Register(CmdLineCurve, s.HandleLineCurve, dispatcher.Logged())
	d.Register(CmdLineSelect, s.HandleLineSelect, dispatcher.Logged())
	d.Register(CmdSectionMode, s.HandleSectionMode, dispatcher.Logged())
	d.Register(CmdSectionsOff, s.HandleSectionsOff, dispatcher.Logged())
	d.Register(CmdStatus, s.HandleStatus)
}

// FixCount returns the number of position fixes published so far.
func (s *Service) FixCount() int {
	return s.fixCount.Value()
}

// HandleFix parses one NMEA sentence. GGA and RMC publish a fix; VTG and
// HDT only update the cached speed and heading used for the next one.
func (s *Service) HandleFix(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("%s needs the sentence as argument", CmdFix)
	}

	parsed, err := s.deps.Parser.Parse(e.Args[0])
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch v := parsed.(type) {
	case parser.VTG:
		s.lastVTG = v
		return "cached", nil
	case parser.HDT:
		s.lastHDT = v
		s.haveHDT = true
		return "cached", nil
	case parser.GGA:
		if !v.HasFix() {
			return "no solution", nil
		}
		heading := s.lastVTG.TrackDeg
		if s.haveHDT {
			heading = s.lastHDT.HeadingDeg
		}
		return s.publish(v.Latitude, v.Longitude, heading, util.KmhToMS(s.lastVTG.SpeedKmh))
	case parser.RMC:
		if !v.Valid {
			return "no solution", nil
		}
		heading := v.TrackDeg
		if s.haveHDT {
			heading = s.lastHDT.HeadingDeg
		}
		return s.publish(v.Latitude, v.Longitude, heading, util.KnotsToMS(v.SpeedKn))
	default:
		return nil, fmt.Errorf("unhandled sentence %T", parsed)
	}
}

func (s *Service) publish(lat, lon, headingDeg, speedMS float64) (any, error) {
	err := s.deps.FixAdapter.Publish(fix.GeodeticFix{
		Point:      geo.GeoPoint{Latitude: lat, Longitude: lon},
		HeadingRad: headingDeg * math.Pi / 180,
		SpeedMS:    speedMS,
	})
	if err != nil {
		return nil, err
	}
	s.fixCount.Inc()
	return "published", nil
}

// HandleLineAB defines and selects an AB line from two geodetic points.
// Args: name, latA, lonA, latB, lonB. The local plane must already be
// anchored by a fix.
func (s *Service) HandleLineAB(e dispatcher.Event) (any, error) {
	if len(e.Args) < 5 {
		return nil, fmt.Errorf("%s needs name, latA, lonA, latB, lonB", CmdLineAB)
	}
	name := e.Args[0]

	a, err := s.localPoint(e.Args[1], e.Args[2])
	if err != nil {
		return nil, fmt.Errorf("point A: %w", err)
	}
	b, err := s.localPoint(e.Args[3], e.Args[4])
	if err != nil {
		return nil, fmt.Errorf("point B: %w", err)
	}

	line, err := guidance.NewABLineFromPoints(a, b, s.deps.ToolWidthM)
	if err != nil {
		return nil, err
	}
	s.deps.Lines.Add(name, line)
	s.activate(line)
	s.deps.Logger.Info("AB line set", "name", name)
	return name, nil
}

// HandleLineCurve accumulates curve points and builds the curve on the
// closing call. Args are either name, lat, lon for a point, or name, "end"
// [, "loop"] to finish.
func (s *Service) HandleLineCurve(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("%s needs name and lat,lon or end", CmdLineCurve)
	}
	name := e.Args[0]

	if e.Args[1] == "end" {
		isLoop := len(e.Args) > 2 && e.Args[2] == "loop"
		pts := s.pendingCurve
		if s.pendingCurveName != name {
			return nil, fmt.Errorf("no pending curve named %q", name)
		}
		s.pendingCurve = nil
		s.pendingCurveName = ""

		line, err := guidance.NewCurve(pts, isLoop)
		if err != nil {
			return nil, err
		}
		s.deps.Lines.Add(name, line)
		s.activate(line)
		s.deps.Logger.Info("curve set", "name", name, "points", len(pts), "loop", isLoop)
		return name, nil
	}

	if len(e.Args) < 3 {
		return nil, fmt.Errorf("%s point needs lat and lon", CmdLineCurve)
	}
	pt, err := s.localPoint(e.Args[1], e.Args[2])
	if err != nil {
		return nil, err
	}
	if s.pendingCurveName != name {
		s.pendingCurve = nil
		s.pendingCurveName = name
	}
	s.pendingCurve = append(s.pendingCurve, pt)
	return len(s.pendingCurve), nil
}

// HandleLineSelect activates a previously defined line by name.
func (s *Service) HandleLineSelect(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("%s needs the line name", CmdLineSelect)
	}
	line, ok := s.deps.Lines.Get(e.Args[0])
	if !ok {
		return nil, fmt.Errorf("unknown line %q", e.Args[0])
	}
	s.activate(line)
	return e.Args[0], nil
}

// activate selects the line and clears a latched missing-line fault, since
// supplying the line is exactly the correction that fault asks for.
func (s *Service) activate(line guidance.Line) {
	s.deps.Runner.SetLine(line)
	if errors.Is(s.deps.Runner.Fault(), loop.ErrNoGuidanceLine) {
		s.deps.Runner.Reset()
	}
}

// HandleSectionMode sets one section's mode. Args: index, mode.
func (s *Service) HandleSectionMode(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("%s needs index and mode", CmdSectionMode)
	}
	idx, err := strconv.Atoi(e.Args[0])
	if err != nil {
		return nil, fmt.Errorf("bad section index %q: %w", e.Args[0], err)
	}
	if err := s.deps.Sections.SetMode(idx, core.SectionMode(e.Args[1])); err != nil {
		return nil, err
	}
	return "ok", nil
}

// HandleSectionsOff forces every section off regardless of mode.
func (s *Service) HandleSectionsOff(e dispatcher.Event) (any, error) {
	s.deps.Sections.ForceAllOff()
	return "ok", nil
}

// HandleStatus reports link and loop health.
func (s *Service) HandleStatus(e dispatcher.Event) (any, error) {
	status := map[string]any{
		"fixes":   s.fixCount.Value(),
		"lines":   s.deps.Lines.Names(),
		"elapsed": s.deps.Runner.Elapsed(),
		"faulted": s.deps.Runner.Fault() != nil,
	}
	return status, nil
}

func (s *Service) localPoint(latArg, lonArg string) (core.Point, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil {
		return core.Point{}, fmt.Errorf("bad latitude %q: %w", latArg, err)
	}
	lon, err := strconv.ParseFloat(lonArg, 64)
	if err != nil {
		return core.Point{}, fmt.Errorf("bad longitude %q: %w", lonArg, err)
	}
	plane := s.deps.FixAdapter.Plane()
	if plane == nil {
		return core.Point{}, fmt.Errorf("local plane not anchored yet, no fix received")
	}
	return plane.ToLocal(geo.GeoPoint{Latitude: lat, Longitude: lon})
}
