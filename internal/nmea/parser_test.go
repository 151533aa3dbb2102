package nmea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rmcMunich = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	ggaMunich = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	vtg       = "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48"
	gsa       = "$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39"
	rmcVoid   = "$GPRMC,,V,,,,,,,,,,N*53"
	unknown   = "$GPXYZ,1,2,3*50"
)

func TestSentenceParser_RMC(t *testing.T) {
	fix, ok := NewParser().Parse(rmcMunich)

	require.True(t, ok)
	assert.Equal(t, "RMC", fix.Type)
	assert.Equal(t, "GP", fix.Talker)
	assert.True(t, fix.Valid)
	lat, lon, ok := fix.Position()
	require.True(t, ok)
	assert.InDelta(t, 48.1173, lat, 1e-4)
	assert.InDelta(t, 11.5167, lon, 1e-4)
	require.NotNil(t, fix.Speed)
	assert.InDelta(t, 22.4, *fix.Speed, 1e-9)
	require.NotNil(t, fix.Track)
	assert.InDelta(t, 84.4, *fix.Track, 1e-9)
	assert.Nil(t, fix.Altitude)
	assert.Equal(t, rmcMunich, fix.Raw)
	assert.NotEmpty(t, fix.Time)
}

func TestSentenceParser_GGA(t *testing.T) {
	fix, ok := NewParser().Parse(ggaMunich)

	require.True(t, ok)
	assert.Equal(t, "GGA", fix.Type)
	assert.True(t, fix.HasPosition())
	require.NotNil(t, fix.Altitude)
	assert.InDelta(t, 545.4, *fix.Altitude, 1e-9)
	require.NotNil(t, fix.Satellites)
	assert.EqualValues(t, 8, *fix.Satellites)
	require.NotNil(t, fix.HDOP)
	assert.InDelta(t, 0.9, *fix.HDOP, 1e-9)
	assert.Equal(t, "1", fix.Quality)
	assert.True(t, fix.Valid)
}

func TestSentenceParser_WithoutPosition(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantType string
	}{
		{"vtg", vtg, "VTG"},
		{"gsa", gsa, "GSA"},
		{"void rmc", rmcVoid, "RMC"},
		{"unsupported type", unknown, "XYZ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix, ok := NewParser().Parse(tt.line)

			require.True(t, ok)
			assert.Equal(t, tt.wantType, fix.Type)
			assert.Equal(t, "GP", fix.Talker)
			assert.False(t, fix.HasPosition())
			_, _, ok = fix.Position()
			assert.False(t, ok)
		})
	}
}

func TestSentenceParser_VTG(t *testing.T) {
	fix, ok := NewParser().Parse(vtg)

	require.True(t, ok)
	require.NotNil(t, fix.Speed)
	assert.InDelta(t, 5.5, *fix.Speed, 1e-9)
	require.NotNil(t, fix.Track)
	assert.InDelta(t, 54.7, *fix.Track, 1e-9)
}

func TestSentenceParser_VendorPrefix(t *testing.T) {
	fix, ok := NewParser().Parse("+GPSRD:" + rmcMunich + "\r")

	require.True(t, ok)
	assert.Equal(t, "RMC", fix.Type)
	assert.Equal(t, rmcMunich, fix.Raw)
}

func TestSentenceParser_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"response", "+CSQ: 18,99"},
		{"status", "OK"},
		{"bad checksum", "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*00"},
		{"truncated", "$GPRMC,1235"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := NewParser().Parse(tt.line)
			assert.False(t, ok)
		})
	}
}

func TestSentence(t *testing.T) {
	s, ok := Sentence("  +GPSRD:$GPVTG,1*00  ")
	assert.True(t, ok)
	assert.Equal(t, "$GPVTG,1*00", s)

	_, ok = Sentence("AT+CSQ")
	assert.False(t, ok)
}
