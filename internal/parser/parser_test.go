package parser

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParser(slog.Default())
}

func TestNewParser(t *testing.T) {
	p := newTestParser()
	require.NotNil(t, p)
}

func TestParse_GGA(t *testing.T) {
	p := newTestParser()

	parsed, err := p.Parse("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47")
	require.NoError(t, err)

	g, ok := parsed.(GGA)
	require.True(t, ok, "expected GGA, got %T", parsed)
	assert.True(t, g.HasFix())
	assert.Equal(t, "123519", g.TimeUTC)
	assert.InDelta(t, 48.1173, g.Latitude, 1e-6)
	assert.InDelta(t, 11.5166667, g.Longitude, 1e-6)
	assert.Equal(t, 1, g.Quality)
	assert.Equal(t, 8, g.Satellites)
	assert.InDelta(t, 0.9, g.HDOP, 1e-9)
	assert.InDelta(t, 545.4, g.AltitudeM, 1e-9)
}

func TestParse_GGA_NoFix(t *testing.T) {
	p := newTestParser()

	parsed, err := p.Parse("$GPGGA,123519,,,,,0,00,,,M,,M,,*6B")
	require.NoError(t, err)

	g, ok := parsed.(GGA)
	require.True(t, ok)
	assert.False(t, g.HasFix())
	assert.Zero(t, g.Latitude)
	assert.Zero(t, g.Longitude)
}

func TestParse_GGA_RTKQualityAndTalker(t *testing.T) {
	p := newTestParser()

	// GN talker, RTK fixed quality
	parsed, err := p.Parse("$GNGGA,123520,6500.500,N,02530.250,E,4,12,0.6,102.0,M,21.0,M,1.0,0000*71")
	require.NoError(t, err)

	g, ok := parsed.(GGA)
	require.True(t, ok)
	assert.Equal(t, 4, g.Quality)
	assert.Equal(t, 12, g.Satellites)
	assert.InDelta(t, 65.0083333, g.Latitude, 1e-6)
	assert.InDelta(t, 25.5041667, g.Longitude, 1e-6)
}

func TestParse_VTG(t *testing.T) {
	p := newTestParser()

	parsed, err := p.Parse("$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48")
	require.NoError(t, err)

	v, ok := parsed.(VTG)
	require.True(t, ok)
	assert.InDelta(t, 54.7, v.TrackDeg, 1e-9)
	assert.InDelta(t, 10.2, v.SpeedKmh, 1e-9)
}

func TestParse_RMC(t *testing.T) {
	p := newTestParser()

	parsed, err := p.Parse("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A")
	require.NoError(t, err)

	r, ok := parsed.(RMC)
	require.True(t, ok)
	assert.True(t, r.Valid)
	assert.InDelta(t, 48.1173, r.Latitude, 1e-6)
	assert.InDelta(t, 11.5166667, r.Longitude, 1e-6)
	assert.InDelta(t, 22.4, r.SpeedKn, 1e-9)
	assert.InDelta(t, 84.4, r.TrackDeg, 1e-9)
}

func TestParse_RMC_Void(t *testing.T) {
	p := newTestParser()

	parsed, err := p.Parse("$GPRMC,123519,V,,,,,,,230394,,*33")
	require.NoError(t, err)

	r, ok := parsed.(RMC)
	require.True(t, ok)
	assert.False(t, r.Valid)
}

func TestParse_HDT(t *testing.T) {
	p := newTestParser()

	parsed, err := p.Parse("$GPHDT,274.07,T*03")
	require.NoError(t, err)

	h, ok := parsed.(HDT)
	require.True(t, ok)
	assert.InDelta(t, 274.07, h.HeadingDeg, 1e-9)
}

func TestParse_Errors(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name  string
		input string
	}{
		{"checksum mismatch", "$GPHDT,274.07,T*FF"},
		{"not a sentence", "hello world"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestParse_UnsupportedSentence(t *testing.T) {
	p := newTestParser()

	_, err := p.Parse("$GPZDA,160012.71,11,03,2004,-1,00*7D")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedSentence)
}
