// Package roofmeasure estimates a roof's size in roofing squares from a
// street address, by chaining an external geocoder and a building-insight
// lookup. One roofing square is 100 square feet.
package roofmeasure

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"roofquote_backend/platform/config"
	"roofquote_backend/platform/logger"
)

// ErrUnavailable signals that the address could not be measured. Callers
// treat this as "manual input required", never as a request failure.
var ErrUnavailable = errors.New("roof measurement unavailable")

const squareFeetPerMeter2 = 10.7639

// Service measures roofs via the external geocode + insight call chain.
type Service struct {
	client           *http.Client
	apiKey           string
	geocodingBaseURL string
	solarBaseURL     string
	log              *logger.Logger
}

// NewService creates a measurement service from the maps configuration.
func NewService(cfg config.MapsConfig, log *logger.Logger) *Service {
	return &Service{
		client:           &http.Client{Timeout: cfg.GetMapsTimeout()},
		apiKey:           cfg.GetMapsAPIKey(),
		geocodingBaseURL: strings.TrimRight(cfg.GetGeocodingBaseURL(), "/"),
		solarBaseURL:     strings.TrimRight(cfg.GetSolarBaseURL(), "/"),
		log:              log,
	}
}

// Measure returns the raw (unbuffered) roof size in whole roofing squares.
// Every upstream failure mode collapses into ErrUnavailable; the underlying
// cause is logged, not propagated.
func (s *Service) Measure(ctx context.Context, address string) (int, error) {
	coords, err := s.geocode(ctx, address)
	if err != nil {
		s.log.MeasurementEvent(address, 0, err)
		return 0, ErrUnavailable
	}

	segments, err := s.segmentAreas(ctx, coords)
	if err != nil {
		s.log.MeasurementEvent(address, 0, err)
		return 0, ErrUnavailable
	}
	if len(segments) == 0 {
		s.log.MeasurementEvent(address, 0, errors.New("no roof segments returned"))
		return 0, ErrUnavailable
	}

	var totalMeters2 float64
	for _, segment := range segments {
		totalMeters2 += segment.area()
	}

	squares, ok := SquaresFromArea(totalMeters2)
	if !ok {
		s.log.MeasurementEvent(address, 0, errors.New("measured area is zero or not finite"))
		return 0, ErrUnavailable
	}

	s.log.MeasurementEvent(address, squares, nil)
	return squares, nil
}

// SquaresFromArea converts a total area in square meters to whole roofing
// squares, rounding up. Returns false for zero, negative, or non-finite input.
func SquaresFromArea(totalMeters2 float64) (int, bool) {
	if totalMeters2 <= 0 || math.IsNaN(totalMeters2) || math.IsInf(totalMeters2, 0) {
		return 0, false
	}
	return int(math.Ceil(totalMeters2 * squareFeetPerMeter2 / 100)), true
}

// Buffer applies the safety margin that compensates for systematic
// under-measurement in satellite-derived areas. It applies to auto-measured
// results only, never to manually supplied square counts.
func Buffer(rawSquares int) int {
	switch {
	case rawSquares <= 15:
		return rawSquares + 3
	case rawSquares <= 25:
		return rawSquares + 4
	default:
		return rawSquares + 5
	}
}
