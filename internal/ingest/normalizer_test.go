package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swapstation/backend-go/internal/models"
)

// localized builds the upstream string-encoded localized list
func localized(pairs ...string) json.RawMessage {
	type entry struct {
		Lang  string `json:"Lang"`
		Value string `json:"Value"`
	}
	var list struct {
		List []entry `json:"List"`
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		list.List = append(list.List, entry{Lang: pairs[i], Value: pairs[i+1]})
	}
	inner, _ := json.Marshal(list)
	outer, _ := json.Marshal(string(inner))
	return outer
}

func rawRecord(t *testing.T, body string) RawRecord {
	t.Helper()
	var r RawRecord
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	return r
}

func cityHallRecord() RawRecord {
	return RawRecord{
		"Id":        json.RawMessage(`"a1b2"`),
		"LocName":   localized("en-US", "Taipei City Hall", "zh-TW", "台北市政府站"),
		"Latitude":  json.RawMessage(`25.0375`),
		"Longitude": json.RawMessage(`121.5637`),
		"Address":   localized("zh-TW", "市府路1號", "en-US", "No. 1 Shifu Rd."),
		"District":  localized("zh-TW", "信義區"),
		"City":      localized("zh-TW", "臺北市"),
		"State":     json.RawMessage(`1`),
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer("zh-TW")

	s, err := n.Normalize(0, cityHallRecord())
	require.NoError(t, err)

	assert.Equal(t, models.Station{
		ID:        "a1b2",
		Name:      "台北市政府站",
		Latitude:  25.0375,
		Longitude: 121.5637,
		Address:   "市府路1號",
		District:  "信義區",
		City:      "臺北市",
		State:     "1",
	}, s)
}

func TestNormalizer_LocaleSelection(t *testing.T) {
	s, err := NewNormalizer("en-US").Normalize(0, cityHallRecord())
	require.NoError(t, err)

	assert.Equal(t, "Taipei City Hall", s.Name)
	assert.Equal(t, "No. 1 Shifu Rd.", s.Address)
	assert.Empty(t, s.District, "missing locale yields empty text")
	assert.Empty(t, s.City)
}

func TestNormalizer_FirstEntryPerLocaleWins(t *testing.T) {
	raw := cityHallRecord()
	raw["LocName"] = localized("zh-TW", "第一", "zh-TW", "第二")

	s, err := NewNormalizer("zh-TW").Normalize(0, raw)
	require.NoError(t, err)
	assert.Equal(t, "第一", s.Name)
}

func TestNormalizer_AcceptedShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.Station
	}{
		{
			name: "object localized list and string coordinates",
			body: `{"Id":"x","LocName":{"List":[{"Lang":"zh-TW","Value":"站"}]},"Latitude":"25.5","Longitude":"121.5","State":"0"}`,
			want: models.Station{ID: "x", Name: "站", Latitude: 25.5, Longitude: 121.5, State: "0"},
		},
		{
			name: "numeric id and place id",
			body: `{"Id":42,"Latitude":25,"Longitude":121,"State":1,"PlaceId":"ChIJ123"}`,
			want: models.Station{ID: "42", Latitude: 25, Longitude: 121, State: "1", PlaceID: "ChIJ123"},
		},
		{
			name: "null and empty localized fields",
			body: `{"Id":"y","LocName":null,"Address":"","Latitude":1,"Longitude":2}`,
			want: models.Station{ID: "y", Latitude: 1, Longitude: 2},
		},
	}

	n := NewNormalizer("zh-TW")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := n.Normalize(3, rawRecord(t, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestNormalizer_Skips(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing id", `{"Latitude":25,"Longitude":121}`, "Id"},
		{"missing latitude", `{"Id":"a","Longitude":121}`, "Latitude"},
		{"non numeric longitude", `{"Id":"a","Latitude":25,"Longitude":"east"}`, "Longitude"},
		{"latitude out of range", `{"Id":"a","Latitude":95,"Longitude":121}`, "Latitude/Longitude"},
		{"malformed nested name", `{"Id":"a","Latitude":25,"Longitude":121,"LocName":"{not json"}`, "LocName"},
		{"object id", `{"Id":{"x":1},"Latitude":25,"Longitude":121}`, "Id"},
	}

	n := NewNormalizer("zh-TW")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(7, rawRecord(t, tt.body))
			require.Error(t, err)

			var skip *NormalizationSkip
			require.ErrorAs(t, err, &skip)
			assert.Equal(t, 7, skip.Index)
			assert.Equal(t, tt.field, skip.Field)
		})
	}
}

func TestNormalizer_InvalidCoordinateCause(t *testing.T) {
	_, err := NewNormalizer("zh-TW").Normalize(0, rawRecord(t, `{"Id":"a","Latitude":25,"Longitude":181}`))

	var coordErr *models.InvalidCoordinateError
	require.ErrorAs(t, err, &coordErr)
	assert.Equal(t, 181.0, coordErr.Longitude)
}

func TestNormalizer_NormalizeAllDropsBadRecords(t *testing.T) {
	records := []RawRecord{
		cityHallRecord(),
		rawRecord(t, `{"Id":"bad","Latitude":"n/a","Longitude":121}`),
		rawRecord(t, `{"Id":"b","Latitude":25.1,"Longitude":121.6,"State":"1"}`),
	}

	stations := NewNormalizer("zh-TW").NormalizeAll(records)
	require.Len(t, stations, 2)
	assert.Equal(t, "a1b2", stations[0].ID)
	assert.Equal(t, "b", stations[1].ID)
}

func TestNormalizer_NormalizeAllEmpty(t *testing.T) {
	stations := NewNormalizer("zh-TW").NormalizeAll(nil)
	assert.NotNil(t, stations)
	assert.Empty(t, stations)
}
