package nmea

// Fix is a positioning observation decoded from one sentence. Fields the
// sentence does not carry are nil.
type Fix struct {
	Type       string   `json:"type"`
	Talker     string   `json:"talker"`
	Time       string   `json:"time,omitempty"`
	Date       string   `json:"date,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	Altitude   *float64 `json:"alt,omitempty"`
	Speed      *float64 `json:"speed,omitempty"`
	Track      *float64 `json:"track,omitempty"`
	Satellites *int64   `json:"satellites,omitempty"`
	HDOP       *float64 `json:"hdop,omitempty"`
	Quality    string   `json:"quality,omitempty"`
	Valid      bool     `json:"valid"`
	Raw        string   `json:"raw"`
}

// HasPosition reports whether both coordinates are present.
func (f Fix) HasPosition() bool {
	return f.Lat != nil && f.Lon != nil
}

// Position returns the coordinates; ok is false when either is missing.
func (f Fix) Position() (lat, lon float64, ok bool) {
	if !f.HasPosition() {
		return 0, 0, false
	}
	return *f.Lat, *f.Lon, true
}

func float(v float64) *float64 {
	return &v
}
