// Package parser converts raw NMEA 0183 sentences into typed records. It is
// pure string-to-struct conversion with no side effects beyond a logger;
// assembling sentences into position fixes is the caller's job.
package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Xyntexx/AgOpenGPS/internal/util"
)

// ErrUnsupportedSentence marks sentence types the parser does not handle.
// Callers typically skip these rather than fault.
var ErrUnsupportedSentence = fmt.Errorf("unsupported sentence type")

// Parser provides pure string -> sentence struct conversion.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse validates the checksum and converts one sentence. The returned value
// is one of GGA, VTG, RMC or HDT.
func (p *Parser) Parse(line string) (any, error) {
	body, err := util.StripChecksum(line)
	if err != nil {
		return nil, err
	}

	fields := strings.Split(body, ",")
	tag := fields[0]
	if len(tag) < 3 {
		return nil, fmt.Errorf("malformed sentence tag %q", tag)
	}
	// strip the talker id (GP, GN, GL...)
	typ := tag[len(tag)-3:]

	switch typ {
	case "GGA":
		return p.parseGGA(fields)
	case "VTG":
		return p.parseVTG(fields)
	case "RMC":
		return p.parseRMC(fields)
	case "HDT":
		return p.parseHDT(fields)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSentence, typ)
	}
}

// field returns fields[i] or "" when the sentence is short.
func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

// floatField parses an optional numeric field, empty meaning zero.
func floatField(fields []string, i int) (float64, error) {
	s := field(fields, i)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func (p *Parser) parseGGA(fields []string) (GGA, error) {
	g := GGA{TimeUTC: field(fields, 1)}

	var err error
	if g.Quality, err = strconv.Atoi(field(fields, 6)); err != nil {
		return GGA{}, fmt.Errorf("GGA quality: %w", err)
	}
	if !g.HasFix() {
		// no solution; position fields may be blank
		return g, nil
	}

	if g.Latitude, err = util.DMToDegrees(field(fields, 2), field(fields, 3)); err != nil {
		return GGA{}, fmt.Errorf("GGA latitude: %w", err)
	}
	if g.Longitude, err = util.DMToDegrees(field(fields, 4), field(fields, 5)); err != nil {
		return GGA{}, fmt.Errorf("GGA longitude: %w", err)
	}
	if g.Satellites, err = strconv.Atoi(field(fields, 7)); err != nil {
		return GGA{}, fmt.Errorf("GGA satellites: %w", err)
	}
	if g.HDOP, err = floatField(fields, 8); err != nil {
		return GGA{}, fmt.Errorf("GGA hdop: %w", err)
	}
	if g.AltitudeM, err = floatField(fields, 9); err != nil {
		return GGA{}, fmt.Errorf("GGA altitude: %w", err)
	}

	p.logger.Debug("Parsed GGA",
		"lat", g.Latitude, "lon", g.Longitude,
		"quality", g.Quality, "sats", g.Satellites)
	return g, nil
}

func (p *Parser) parseVTG(fields []string) (VTG, error) {
	v := VTG{}

	var err error
	if v.TrackDeg, err = floatField(fields, 1); err != nil {
		return VTG{}, fmt.Errorf("VTG track: %w", err)
	}
	if v.SpeedKmh, err = floatField(fields, 7); err != nil {
		return VTG{}, fmt.Errorf("VTG speed: %w", err)
	}
	return v, nil
}

func (p *Parser) parseRMC(fields []string) (RMC, error) {
	r := RMC{
		TimeUTC: field(fields, 1),
		Valid:   field(fields, 2) == "A",
	}
	if !r.Valid {
		return r, nil
	}

	var err error
	if r.Latitude, err = util.DMToDegrees(field(fields, 3), field(fields, 4)); err != nil {
		return RMC{}, fmt.Errorf("RMC latitude: %w", err)
	}
	if r.Longitude, err = util.DMToDegrees(field(fields, 5), field(fields, 6)); err != nil {
		return RMC{}, fmt.Errorf("RMC longitude: %w", err)
	}
	if r.SpeedKn, err = floatField(fields, 7); err != nil {
		return RMC{}, fmt.Errorf("RMC speed: %w", err)
	}
	if r.TrackDeg, err = floatField(fields, 8); err != nil {
		return RMC{}, fmt.Errorf("RMC track: %w", err)
	}
	return r, nil
}

func (p *Parser) parseHDT(fields []string) (HDT, error) {
	h := HDT{}
	var err error
	if h.HeadingDeg, err = floatField(fields, 1); err != nil {
		return HDT{}, fmt.Errorf("HDT heading: %w", err)
	}
	return h, nil
}
