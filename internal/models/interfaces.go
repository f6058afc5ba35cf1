package models

import "context"

type StationFinder interface {
	FindStation(ctx context.Context, stationID string) (*Station, error)
	FindNearestStations(ctx context.Context, lat, lng float64, limit int) ([]Station, error)
}
