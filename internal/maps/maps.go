// Package maps builds Google Static Maps URLs used as the aerial scene
// sketch of an accident.
package maps

import (
	"fmt"
	"net/url"
	"strconv"
)

// StaticMapsEndpoint is the Google Static Maps API base URL.
const StaticMapsEndpoint = "https://maps.googleapis.com/maps/api/staticmap"

// PlaceholderURL is returned in mock mode so the demo app always has an image.
const PlaceholderURL = StaticMapsEndpoint + "?center=40.714728,-73.998672&zoom=12&size=400x400&key=YOUR_API_KEY"

// Sketcher produces scene sketch URLs.
type Sketcher struct {
	apiKey string
	mock   bool
}

// NewSketcher creates a Sketcher. In mock mode every request yields
// PlaceholderURL and apiKey is never sent anywhere.
func NewSketcher(apiKey string, mock bool) *Sketcher {
	return &Sketcher{apiKey: apiKey, mock: mock}
}

// SceneSketchURL returns a satellite view centred on the accident with a red
// marker on the exact point.
func (s *Sketcher) SceneSketchURL(lat, lng float64) (string, error) {
	if lat < -90 || lat > 90 {
		return "", fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lng < -180 || lng > 180 {
		return "", fmt.Errorf("longitude %v out of range [-180, 180]", lng)
	}

	if s.mock {
		return PlaceholderURL, nil
	}

	point := formatCoord(lat) + "," + formatCoord(lng)
	params := url.Values{}
	params.Set("center", point)
	params.Set("zoom", "18")
	params.Set("size", "600x400")
	params.Set("maptype", "satellite")
	params.Set("markers", "color:red|"+point)
	params.Set("key", s.apiKey)

	return StaticMapsEndpoint + "?" + params.Encode(), nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
