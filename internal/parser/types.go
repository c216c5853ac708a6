package parser

// GGA is a GNSS fix sentence: position, fix quality and altitude.
type GGA struct {
	TimeUTC    string
	Latitude   float64
	Longitude  float64
	Quality    int
	Satellites int
	HDOP       float64
	AltitudeM  float64
}

// HasFix reports whether the receiver actually had a position solution.
func (g GGA) HasFix() bool {
	return g.Quality > 0
}

// VTG is a course-over-ground and speed sentence.
type VTG struct {
	TrackDeg float64
	SpeedKmh float64
}

// RMC is the recommended-minimum sentence: position, speed and track.
type RMC struct {
	TimeUTC   string
	Valid     bool
	Latitude  float64
	Longitude float64
	SpeedKn   float64
	TrackDeg  float64
}

// HDT is a true-heading sentence from a dual-antenna or INS receiver.
type HDT struct {
	HeadingDeg float64
}
