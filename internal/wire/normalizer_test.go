package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullRecord = `{
	"id": "R-5463D359",
	"type": "vehicle",
	"attributes": {
		"latitude": 42.39674,
		"longitude": -71.121815,
		"bearing": 125,
		"current_status": "STOPPED_AT",
		"current_stop_sequence": 110,
		"direction_id": 0,
		"label": "1631",
		"speed": 8.3,
		"updated_at": "2026-08-30T10:15:00-04:00",
		"occupancy_status": "MANY_SEATS_AVAILABLE"
	},
	"relationships": {
		"route": {"data": {"id": "Red", "type": "route"}},
		"stop": {"data": {"id": "70064", "type": "stop"}},
		"trip": {"data": {"id": "68077122", "type": "trip"}}
	}
}`

func TestNormalizeFullRecord(t *testing.T) {
	u, err := Normalize([]byte(fullRecord))
	require.NoError(t, err)

	assert.Equal(t, "R-5463D359", u.ID)
	assert.Equal(t, 42.39674, u.Latitude)
	assert.Equal(t, -71.121815, u.Longitude)
	require.NotNil(t, u.Bearing)
	assert.Equal(t, 125.0, *u.Bearing)
	assert.Equal(t, "STOPPED_AT", u.CurrentStatus)
	require.NotNil(t, u.CurrentStopSequence)
	assert.Equal(t, 110, *u.CurrentStopSequence)
	require.NotNil(t, u.DirectionID)
	assert.Equal(t, 0, *u.DirectionID)
	assert.Equal(t, "1631", u.Label)
	require.NotNil(t, u.Speed)
	assert.Equal(t, 8.3, *u.Speed)
	assert.Equal(t, "Red", u.RouteID)
	assert.Equal(t, "70064", u.StopID)
	assert.Equal(t, "68077122", u.TripID)
	assert.False(t, u.Removal)

	expected, err := time.Parse(time.RFC3339, "2026-08-30T10:15:00-04:00")
	require.NoError(t, err)
	assert.True(t, u.UpdatedAt.Equal(expected))
}

func TestNormalizeRemovalRecord(t *testing.T) {
	u, err := Normalize([]byte(`{"id": "R-5463D359", "type": "vehicle"}`))
	require.NoError(t, err)
	assert.True(t, u.Removal)
	assert.Equal(t, "R-5463D359", u.ID)

	u, err = Normalize([]byte(`{"id": "R-5463D359", "attributes": null}`))
	require.NoError(t, err)
	assert.True(t, u.Removal)
}

func TestNormalizeRejectsBadGeodata(t *testing.T) {
	cases := map[string]string{
		"missing latitude":    `{"id": "v1", "attributes": {"longitude": -71.06}}`,
		"missing longitude":   `{"id": "v1", "attributes": {"latitude": 42.36}}`,
		"string latitude":     `{"id": "v1", "attributes": {"latitude": "42.36", "longitude": -71.06}}`,
		"boolean coordinates": `{"id": "v1", "attributes": {"latitude": true, "longitude": -71.06}}`,
	}
	for name, record := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize([]byte(record))
			assert.Error(t, err)
		})
	}
}

func TestNormalizeRejectsMissingID(t *testing.T) {
	_, err := Normalize([]byte(`{"attributes": {"latitude": 42.36, "longitude": -71.06}}`))
	assert.Error(t, err)
}

func TestNormalizeRejectsMalformedJSON(t *testing.T) {
	_, err := Normalize([]byte(`{not json`))
	assert.Error(t, err)
}

func TestNormalizeMinimalRecord(t *testing.T) {
	u, err := Normalize([]byte(`{"id": "v2", "attributes": {"latitude": 42.36, "longitude": -71.06}}`))
	require.NoError(t, err)
	assert.Equal(t, "v2", u.ID)
	assert.Nil(t, u.Bearing)
	assert.Nil(t, u.DirectionID)
	assert.Nil(t, u.Speed)
	assert.Empty(t, u.CurrentStatus)
	assert.Empty(t, u.RouteID)
	assert.True(t, u.UpdatedAt.IsZero())
}

func TestNormalizeListSkipsMalformedRecords(t *testing.T) {
	data := `[
		{"id": "good-1", "attributes": {"latitude": 42.36, "longitude": -71.06}},
		{"id": "bad-1", "attributes": {"longitude": -71.06}},
		{"id": "good-2", "attributes": {"latitude": 42.37, "longitude": -71.07}}
	]`
	updates, dropped, err := NormalizeList([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, updates, 2)
	assert.Equal(t, "good-1", updates[0].ID)
	assert.Equal(t, "good-2", updates[1].ID)
}

func TestNormalizeListRejectsNonArray(t *testing.T) {
	_, _, err := NormalizeList([]byte(`{"id": "v1"}`))
	assert.Error(t, err)
}
