package roofmeasure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// segmentAreas fetches the roof-segment area records for the coordinates.
func (s *Service) segmentAreas(ctx context.Context, coords Coordinates) ([]roofSegment, error) {
	params := url.Values{}
	params.Add("location.latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Add("location.longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Add("key", s.apiKey)

	reqURL := fmt.Sprintf("%s/v1/buildingInsights:findClosest?%s", s.solarBaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("building insights request failed", "error", err)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		s.log.Error("building insights upstream error", "status", resp.StatusCode)
		return nil, fmt.Errorf("upstream api error: %d", resp.StatusCode)
	}

	var payload insightsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.log.Error("failed to decode building insights payload", "error", err)
		return nil, err
	}

	return payload.SolarPotential.RoofSegmentStats, nil
}
