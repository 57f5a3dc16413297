package roofmeasure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// geocode resolves a free-text address to coordinates. A non-OK upstream
// status or an empty result set both count as "no result".
func (s *Service) geocode(ctx context.Context, address string) (Coordinates, error) {
	params := url.Values{}
	params.Add("address", address)
	params.Add("key", s.apiKey)

	reqURL := fmt.Sprintf("%s/maps/api/geocode/json?%s", s.geocodingBaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Coordinates{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("geocode request failed", "error", err)
		return Coordinates{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		s.log.Error("geocode upstream error", "status", resp.StatusCode)
		return Coordinates{}, fmt.Errorf("upstream api error: %d", resp.StatusCode)
	}

	var payload geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.log.Error("failed to decode geocode payload", "error", err)
		return Coordinates{}, err
	}

	if payload.Status != "OK" || len(payload.Results) == 0 {
		return Coordinates{}, fmt.Errorf("geocode returned status %q with %d results", payload.Status, len(payload.Results))
	}

	location := payload.Results[0].Geometry.Location
	return Coordinates{Latitude: location.Lat, Longitude: location.Lng}, nil
}
