/*
Package nmea decodes positioning sentences read from the modem into Fix values.

Lines may carry a vendor prefix before the sentence (the A9G continuous output
writes "+GPSRD:$GPRMC,..."); everything before the first '$' is dropped.
*/
package nmea

import (
	"strings"

	gonmea "github.com/adrianmo/go-nmea"
)

// Parser turns a line into a Fix. ok is false when the line is not a
// positioning sentence.
type Parser interface {
	Parse(line string) (fix Fix, ok bool)
}

// SentenceParser decodes RMC, GGA, GLL and VTG with their fields and any other
// checksum-valid sentence as a Fix holding only its type.
type SentenceParser struct{}

// NewParser creates the default parser.
func NewParser() *SentenceParser {
	return &SentenceParser{}
}

// Sentence returns the sentence text contained in line, if any.
func Sentence(line string) (string, bool) {
	i := strings.IndexByte(line, '$')
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(line[i:]), true
}

func (p *SentenceParser) Parse(line string) (Fix, bool) {
	raw, ok := Sentence(line)
	if !ok {
		return Fix{}, false
	}
	var base *gonmea.BaseSentence
	sp := gonmea.SentenceParser{
		OnBaseSentence: func(b *gonmea.BaseSentence) error {
			c := *b
			base = &c
			return nil
		},
	}
	s, err := sp.Parse(raw)
	if err != nil {
		// checksum valid but not decodable (unsupported type, empty fields)
		if base == nil {
			return Fix{}, false
		}
		return Fix{Type: base.Type, Talker: base.Talker, Raw: raw}, true
	}

	fix := Fix{Type: s.DataType(), Talker: s.TalkerID(), Raw: raw}
	switch m := s.(type) {
	case gonmea.RMC:
		if m.Time.Valid {
			fix.Time = m.Time.String()
		}
		if m.Date.Valid {
			fix.Date = m.Date.String()
		}
		fix.Valid = m.Validity == gonmea.ValidRMC
		if present(m.Fields, 2, 4) {
			fix.Lat = float(m.Latitude)
			fix.Lon = float(m.Longitude)
		}
		if present(m.Fields, 6) {
			fix.Speed = float(m.Speed)
		}
		if present(m.Fields, 7) {
			fix.Track = float(m.Course)
		}
	case gonmea.GGA:
		if m.Time.Valid {
			fix.Time = m.Time.String()
		}
		fix.Quality = m.FixQuality
		fix.Valid = m.FixQuality != gonmea.Invalid
		if present(m.Fields, 1, 3) {
			fix.Lat = float(m.Latitude)
			fix.Lon = float(m.Longitude)
		}
		if present(m.Fields, 8) {
			fix.Altitude = float(m.Altitude)
		}
		if present(m.Fields, 6) {
			sats := m.NumSatellites
			fix.Satellites = &sats
		}
		if present(m.Fields, 7) {
			fix.HDOP = float(m.HDOP)
		}
	case gonmea.GLL:
		if m.Time.Valid {
			fix.Time = m.Time.String()
		}
		fix.Valid = m.Validity == gonmea.ValidGLL
		if present(m.Fields, 0, 2) {
			fix.Lat = float(m.Latitude)
			fix.Lon = float(m.Longitude)
		}
	case gonmea.VTG:
		if present(m.Fields, 4) {
			fix.Speed = float(m.GroundSpeedKnots)
		}
		if present(m.Fields, 0) {
			fix.Track = float(m.TrueTrack)
		}
	}
	return fix, true
}

func present(fields []string, index ...int) bool {
	for _, i := range index {
		if i >= len(fields) || len(strings.TrimSpace(fields[i])) <= 0 {
			return false
		}
	}
	return true
}
