package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/models"
)

// RawRecord is one loosely typed station object as returned by the upstream API.
type RawRecord map[string]json.RawMessage

// Upstream field names
const (
	fieldID        = "Id"
	fieldName      = "LocName"
	fieldLatitude  = "Latitude"
	fieldLongitude = "Longitude"
	fieldAddress   = "Address"
	fieldDistrict  = "District"
	fieldCity      = "City"
	fieldState     = "State"
	fieldPlaceID   = "PlaceId"
)

// NormalizationSkip reports a record that was dropped during normalization.
type NormalizationSkip struct {
	Index int
	ID    string
	Field string
	Err   error
}

func (e *NormalizationSkip) Error() string {
	return fmt.Sprintf("skipping record %d (id %q): field %s: %v", e.Index, e.ID, e.Field, e.Err)
}

func (e *NormalizationSkip) Unwrap() error {
	return e.Err
}

func (e *NormalizationSkip) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("kind", "NormalizationSkip").
		Int("index", e.Index).
		Str("station_id", e.ID).
		Str("field", e.Field).
		AnErr("cause", e.Err)
}

// localizedList is the nested {"List":[{"Lang":..,"Value":..}]} encoding
// used by the upstream for every display string.
type localizedList struct {
	List []struct {
		Lang  string `json:"Lang"`
		Value string `json:"Value"`
	} `json:"List"`
}

// Normalizer maps raw upstream records into stations, keeping one locale.
type Normalizer struct {
	Locale string
}

func NewNormalizer(locale string) *Normalizer {
	return &Normalizer{Locale: locale}
}

// NormalizeAll converts records in order. Records that cannot be normalized
// are logged and dropped; they never abort the batch.
func (n *Normalizer) NormalizeAll(records []RawRecord) []models.Station {
	stations := make([]models.Station, 0, len(records))
	for i, raw := range records {
		s, err := n.Normalize(i, raw)
		if err != nil {
			var skip *NormalizationSkip
			if errors.As(err, &skip) {
				log.Warn().EmbedObject(skip).Msg("Dropping station record")
			} else {
				log.Warn().Err(err).Int("index", i).Msg("Dropping station record")
			}
			continue
		}
		stations = append(stations, s)
	}

	log.Debug().
		Int("records", len(records)).
		Int("stations", len(stations)).
		Msg("Normalized station records")
	return stations
}

// Normalize converts one record. index is only used for error reporting.
func (n *Normalizer) Normalize(index int, raw RawRecord) (models.Station, error) {
	skip := func(id, field string, err error) (models.Station, error) {
		return models.Station{}, &NormalizationSkip{Index: index, ID: id, Field: field, Err: err}
	}

	id, err := scalarString(raw[fieldID])
	if err != nil {
		return skip("", fieldID, err)
	}
	if id == "" {
		return skip("", fieldID, errors.New("missing id"))
	}

	lat, err := scalarFloat(raw[fieldLatitude])
	if err != nil {
		return skip(id, fieldLatitude, err)
	}
	lng, err := scalarFloat(raw[fieldLongitude])
	if err != nil {
		return skip(id, fieldLongitude, err)
	}
	if err := models.ValidateCoordinates(lat, lng); err != nil {
		return skip(id, fieldLatitude+"/"+fieldLongitude, err)
	}

	s := models.Station{
		ID:        id,
		Latitude:  lat,
		Longitude: lng,
	}

	texts := []struct {
		field string
		dst   *string
	}{
		{fieldName, &s.Name},
		{fieldAddress, &s.Address},
		{fieldDistrict, &s.District},
		{fieldCity, &s.City},
	}
	for _, tt := range texts {
		text, err := decodeLocalized(raw[tt.field])
		if err != nil {
			return skip(id, tt.field, err)
		}
		*tt.dst = text.Get(n.Locale)
	}

	if s.State, err = scalarString(raw[fieldState]); err != nil {
		return skip(id, fieldState, err)
	}
	if s.PlaceID, err = scalarString(raw[fieldPlaceID]); err != nil {
		return skip(id, fieldPlaceID, err)
	}
	return s, nil
}

// decodeLocalized accepts the nested list either as an object or as a JSON
// string containing the object. A missing field yields empty text.
func decodeLocalized(raw json.RawMessage) (models.LocalizedText, error) {
	if isNull(raw) {
		return models.LocalizedText{}, nil
	}
	raw = bytes.TrimSpace(raw)

	payload := []byte(raw)
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("decoding localized string: %w", err)
		}
		if strings.TrimSpace(inner) == "" {
			return models.LocalizedText{}, nil
		}
		payload = []byte(inner)
	}

	var list localizedList
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("decoding localized list: %w", err)
	}

	text := make(models.LocalizedText, len(list.List))
	for _, entry := range list.List {
		if _, seen := text[entry.Lang]; !seen {
			text[entry.Lang] = entry.Value
		}
	}
	return text, nil
}

// scalarString renders a JSON string or number as text.
func scalarString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	raw = bytes.TrimSpace(raw)
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	default:
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return "", fmt.Errorf("expected string or number, got %s", raw)
		}
		return num.String(), nil
	}
}

// scalarFloat accepts a JSON number or a numeric string.
func scalarFloat(raw json.RawMessage) (float64, error) {
	if isNull(raw) {
		return 0, errors.New("missing value")
	}
	s, err := scalarString(raw)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", s, err)
	}
	return f, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
