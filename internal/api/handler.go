package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/swapstation/backend-go/internal/models"
)

type APIResponse struct {
	ResponseType string `json:"responseType"`
}

type StationsResponse struct {
	APIResponse
	Stations []models.Station `json:"stations"`
}

type ErrorResponse struct {
	APIResponse
	Error string `json:"error"`
}

func NewStationsResponse(stations []models.Station) *StationsResponse {
	if stations == nil {
		stations = []models.Station{}
	}
	return &StationsResponse{
		APIResponse: APIResponse{ResponseType: "stations"},
		Stations:    stations,
	}
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		APIResponse: APIResponse{ResponseType: "error"},
		Error:       message,
	}
}

// Response helpers
func Success(body interface{}) (events.APIGatewayProxyResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Error("Internal Server Error", http.StatusInternalServerError)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(jsonBody),
	}, nil
}

func Error(message string, statusCode int) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(NewErrorResponse(message))

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}, nil
}

// ErrMissingCoordinates is returned when lat or lng is absent.
var ErrMissingCoordinates = fmt.Errorf("lat and lng are required")

// ParseCoordinates reads lat and lng query parameters. Out of range values
// yield *models.InvalidCoordinateError.
func ParseCoordinates(params map[string]string) (float64, float64, error) {
	latStr, hasLat := params["lat"]
	lngStr, hasLng := params["lng"]

	if !hasLat || !hasLng {
		return 0, 0, ErrMissingCoordinates
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing lat: %w", err)
	}

	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing lng: %w", err)
	}

	if err := models.ValidateCoordinates(lat, lng); err != nil {
		return 0, 0, err
	}

	return lat, lng, nil
}
