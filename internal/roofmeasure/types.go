package roofmeasure

// Coordinates is a geocoded latitude/longitude pair.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// geocodeResponse mirrors the relevant parts of the geocoding payload.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// insightsResponse mirrors the building-insight payload. Segment area is
// reported either nested under stats or directly on the segment depending on
// the API revision, so both shapes are read.
type insightsResponse struct {
	SolarPotential struct {
		RoofSegmentStats []roofSegment `json:"roofSegmentStats"`
	} `json:"solarPotential"`
}

type roofSegment struct {
	Stats struct {
		AreaMeters2 float64 `json:"areaMeters2"`
	} `json:"stats"`
	AreaMeters2 float64 `json:"areaMeters2"`
}

func (s roofSegment) area() float64 {
	if s.Stats.AreaMeters2 > 0 {
		return s.Stats.AreaMeters2
	}
	return s.AreaMeters2
}
