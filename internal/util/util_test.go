package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripChecksum(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid checksum", "$GPHDT,274.07,T*03", "GPHDT,274.07,T", false},
		{"no checksum accepted", "$GPHDT,274.07,T", "GPHDT,274.07,T", false},
		{"wrong checksum", "$GPHDT,274.07,T*04", "", true},
		{"trailing whitespace", "$GPHDT,274.07,T*03\r\n", "GPHDT,274.07,T", false},
		{"missing dollar", "GPHDT,274.07,T*03", "", true},
		{"truncated hex", "$GPHDT,274.07,T*0", "", true},
		{"garbage hex", "$GPHDT,274.07,T*ZZ", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StripChecksum(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDMToDegrees(t *testing.T) {
	tests := []struct {
		name       string
		dm         string
		hemisphere string
		want       float64
		wantErr    bool
	}{
		{"north latitude", "4807.038", "N", 48.1173, false},
		{"east longitude", "01131.000", "E", 11.5166667, false},
		{"south latitude", "4807.038", "S", -48.1173, false},
		{"west longitude", "01131.000", "W", -11.5166667, false},
		{"no hemisphere", "4807.038", "", 48.1173, false},
		{"bad number", "xx07.038", "N", 0, true},
		{"bad hemisphere", "4807.038", "Q", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DMToDegrees(tt.dm, tt.hemisphere)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.InDelta(t, tt.want, got, 1e-6)
			}
		})
	}
}

func TestSpeedConversions(t *testing.T) {
	assert.InDelta(t, 11.5235456, KnotsToMS(22.4), 1e-6)
	assert.InDelta(t, 2.8333333, KmhToMS(10.2), 1e-6)
	assert.Zero(t, KnotsToMS(0))
	assert.Zero(t, KmhToMS(0))
}
