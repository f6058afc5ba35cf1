// Package table encodes station snapshots as the comma separated table that
// is published by the crawler and read back by the query side.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/swapstation/backend-go/internal/models"
)

// Header is the fixed column order of the published table.
var Header = []string{"id", "name", "lat", "lng", "address", "district", "city", "state"}

// placeIDColumn trails the fixed columns. The decoder treats it as optional.
const placeIDColumn = "place_id"

var ErrMalformedTable = errors.New("malformed station table")

// MalformedTableError describes why a table could not be decoded.
type MalformedTableError struct {
	Line   int
	Reason string
	Err    error
}

func (e *MalformedTableError) Error() string {
	msg := fmt.Sprintf("%s: line %d: %s", ErrMalformedTable, e.Line, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedTableError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedTable, e.Err}
	}
	return []error{ErrMalformedTable}
}

func (e *MalformedTableError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("kind", "MalformedTable").
		Int("line", e.Line).
		Str("reason", e.Reason).
		AnErr("cause", e.Err)
}

// Encode writes stations as a UTF-8 table with the fixed header followed by
// the place_id column. Identical input always produces identical bytes.
func Encode(stations []models.Station) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(append(append([]string{}, Header...), placeIDColumn)); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	for _, s := range stations {
		record := []string{
			s.ID,
			s.Name,
			formatCoordinate(s.Latitude),
			formatCoordinate(s.Longitude),
			s.Address,
			s.District,
			s.City,
			s.State,
			s.PlaceID,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("writing station %s: %w", s.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing table: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a table produced by Encode. Any schema violation fails the
// whole table with a *MalformedTableError; no partial result is returned.
func Decode(data []byte) ([]models.Station, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, &MalformedTableError{Line: 1, Reason: "missing header"}
	}
	if err != nil {
		return nil, &MalformedTableError{Line: 1, Reason: "reading header", Err: err}
	}
	placeIDIndex, err := checkHeader(header)
	if err != nil {
		return nil, err
	}

	stations := make([]models.Station, 0)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedTableError{Line: errorLine(err), Reason: "reading row", Err: err}
		}
		line, _ := r.FieldPos(0)
		if len(record) < len(Header) {
			return nil, &MalformedTableError{Line: line, Reason: fmt.Sprintf("expected %d fields, got %d", len(Header), len(record))}
		}

		s, err := parseRecord(record, placeIDIndex)
		if err != nil {
			return nil, &MalformedTableError{Line: line, Reason: "invalid station", Err: err}
		}
		stations = append(stations, s)
	}
	return stations, nil
}

func checkHeader(header []string) (int, error) {
	if len(header) < len(Header) {
		return -1, &MalformedTableError{Line: 1, Reason: fmt.Sprintf("header has %d columns, want %d", len(header), len(Header))}
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i, name := range Header {
		if header[i] != name {
			return -1, &MalformedTableError{Line: 1, Reason: fmt.Sprintf("column %d is %q, want %q", i+1, header[i], name)}
		}
	}
	for i := len(Header); i < len(header); i++ {
		if header[i] == placeIDColumn {
			return i, nil
		}
	}
	return -1, nil
}

func parseRecord(record []string, placeIDIndex int) (models.Station, error) {
	lat, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return models.Station{}, fmt.Errorf("parsing lat %q: %w", record[2], err)
	}
	lng, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return models.Station{}, fmt.Errorf("parsing lng %q: %w", record[3], err)
	}

	s := models.Station{
		ID:        record[0],
		Name:      record[1],
		Latitude:  lat,
		Longitude: lng,
		Address:   record[4],
		District:  record[5],
		City:      record[6],
		State:     record[7],
	}
	if placeIDIndex >= 0 && placeIDIndex < len(record) {
		s.PlaceID = record[placeIDIndex]
	}
	if err := s.Validate(); err != nil {
		return models.Station{}, err
	}
	return s, nil
}

func errorLine(err error) int {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Line
	}
	return 0
}

func formatCoordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
