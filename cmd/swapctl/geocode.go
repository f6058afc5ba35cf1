package main

import (
	"fmt"
	"strconv"

	"github.com/muesli/gominatim"
)

const nominatimServer = "https://nominatim.openstreetmap.org/"

// geocoder resolves a place name to coordinates.
type geocoder func(name string) (lat, lng float64, displayName string, err error)

func nominatimGeocode(name string) (float64, float64, string, error) {
	gominatim.SetServer(nominatimServer)
	qry := gominatim.SearchQuery{
		Q: name,
	}

	results, err := qry.Get()
	if err != nil {
		return 0, 0, "", fmt.Errorf("geocoding error: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, "", fmt.Errorf("no results found for location: %s", name)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("error parsing latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("error parsing longitude: %w", err)
	}
	return lat, lng, results[0].DisplayName, nil
}
