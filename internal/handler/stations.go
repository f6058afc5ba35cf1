package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/api"
	"github.com/swapstation/backend-go/internal/models"
)

type StationsHandler struct {
	stationFinder models.StationFinder
}

func NewStationsHandler(finder models.StationFinder) *StationsHandler {
	return &StationsHandler{
		stationFinder: finder,
	}
}

func (h *StationsHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	params := request.QueryStringParameters

	// Check if we're looking up by station ID or coordinates
	if stationID, ok := params["stationId"]; ok {
		found, err := h.stationFinder.FindStation(ctx, stationID)
		if err != nil {
			log.Error().Err(err).Str("station_id", stationID).Msg("Error finding station")
			return api.Error("Error finding station", http.StatusInternalServerError)
		}
		if found == nil {
			return api.Error("Station not found", http.StatusNotFound)
		}
		return api.Success(api.NewStationsResponse([]models.Station{*found}))
	}

	lat, lng, err := api.ParseCoordinates(params)
	if err != nil {
		var coordErr *models.InvalidCoordinateError
		if errors.As(err, &coordErr) {
			return api.Error("Invalid coordinates", http.StatusBadRequest)
		}
		return api.Error("Invalid parameters", http.StatusBadRequest)
	}

	// Zero keeps the configured result count
	limit := 0
	if limitStr, ok := params["limit"]; ok {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	stations, err := h.stationFinder.FindNearestStations(ctx, lat, lng, limit)
	if err != nil {
		log.Error().Err(err).Float64("lat", lat).Float64("lng", lng).Msg("Error finding stations")
		return api.Error("Error finding stations", http.StatusInternalServerError)
	}

	return api.Success(api.NewStationsResponse(stations))
}
