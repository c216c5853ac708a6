// Package util provides small conversion helpers shared by the NMEA layer.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// Checksum computes the NMEA checksum: XOR of all bytes between '$' and '*'.
func Checksum(body string) byte {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return sum
}

// StripChecksum validates a full "$...*hh" sentence and returns the body
// between '$' and '*'. Sentences without a '*hh' suffix are accepted as-is;
// a present but wrong checksum is an error.
func StripChecksum(line string) (string, error) {
	line = strings.TrimSpace(line)
	if len(line) < 2 || line[0] != '$' {
		return "", fmt.Errorf("not an NMEA sentence: %q", line)
	}
	body := line[1:]

	star := strings.LastIndexByte(body, '*')
	if star < 0 {
		return body, nil
	}
	if len(body) != star+3 {
		return "", fmt.Errorf("malformed checksum suffix: %q", line)
	}
	want, err := strconv.ParseUint(body[star+1:], 16, 8)
	if err != nil {
		return "", fmt.Errorf("malformed checksum suffix: %q", line)
	}
	body = body[:star]
	if got := Checksum(body); got != byte(want) {
		return "", fmt.Errorf("checksum mismatch: got %02X want %02X", got, want)
	}
	return body, nil
}

// DMToDegrees converts NMEA ddmm.mmmm (or dddmm.mmmm) plus a hemisphere
// letter into signed decimal degrees.
func DMToDegrees(dm, hemisphere string) (float64, error) {
	v, err := strconv.ParseFloat(dm, 64)
	if err != nil {
		return 0, fmt.Errorf("bad coordinate %q: %w", dm, err)
	}
	deg := float64(int(v / 100))
	minutes := v - deg*100
	deg += minutes / 60

	switch hemisphere {
	case "N", "E", "":
		return deg, nil
	case "S", "W":
		return -deg, nil
	default:
		return 0, fmt.Errorf("bad hemisphere %q", hemisphere)
	}
}

// KnotsToMS converts speed in knots to metres per second.
func KnotsToMS(kn float64) float64 {
	return kn * 0.514444
}

// KmhToMS converts speed in km/h to metres per second.
func KmhToMS(kmh float64) float64 {
	return kmh / 3.6
}
