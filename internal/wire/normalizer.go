// Package wire translates raw feed records into flat VehicleUpdate values.
// The feed delivers JSON:API style documents: an id, an attributes block in
// snake_case, and relationship references for route, stop, and trip. The
// normalizer is pure and safe to call from any goroutine.
package wire

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/psford/t-tracker/internal/models"
)

type rawReference struct {
	Data *struct {
		ID string `json:"id"`
	} `json:"data"`
}

type rawRelationships struct {
	Route *rawReference `json:"route"`
	Stop  *rawReference `json:"stop"`
	Trip  *rawReference `json:"trip"`
}

// rawAttributes is the fixed attribute mapping. Unknown keys in the
// incoming document are ignored by the JSON decoder.
type rawAttributes struct {
	Latitude            *float64 `json:"latitude"`
	Longitude           *float64 `json:"longitude"`
	Bearing             *float64 `json:"bearing"`
	CurrentStatus       *string  `json:"current_status"`
	CurrentStopSequence *int     `json:"current_stop_sequence"`
	DirectionID         *int     `json:"direction_id"`
	Label               *string  `json:"label"`
	Speed               *float64 `json:"speed"`
	UpdatedAt           *string  `json:"updated_at"`
}

type rawRecord struct {
	ID            string            `json:"id"`
	Attributes    json.RawMessage   `json:"attributes"`
	Relationships *rawRelationships `json:"relationships"`
}

// Normalize converts one raw feed record into a VehicleUpdate. A record
// without an attributes block is treated as a removal and yields only the
// id. A record whose latitude or longitude is missing, non-numeric, or
// non-finite is rejected so malformed geodata never reaches vehicle state.
func Normalize(data []byte) (models.VehicleUpdate, error) {
	var rec rawRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.VehicleUpdate{}, fmt.Errorf("malformed vehicle record: %w", err)
	}
	return normalizeRecord(rec)
}

// NormalizeList converts a JSON array of raw records, as delivered by the
// feed's full-snapshot reset event. Individual malformed records are
// skipped; the second return value reports how many were dropped.
func NormalizeList(data []byte) ([]models.VehicleUpdate, int, error) {
	var recs []rawRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, 0, fmt.Errorf("malformed vehicle record list: %w", err)
	}

	updates := make([]models.VehicleUpdate, 0, len(recs))
	dropped := 0
	for _, rec := range recs {
		update, err := normalizeRecord(rec)
		if err != nil || update.Removal {
			dropped++
			continue
		}
		updates = append(updates, update)
	}
	return updates, dropped, nil
}

func normalizeRecord(rec rawRecord) (models.VehicleUpdate, error) {
	if rec.ID == "" {
		return models.VehicleUpdate{}, fmt.Errorf("vehicle record missing id")
	}

	if len(rec.Attributes) == 0 || string(rec.Attributes) == "null" {
		return models.VehicleUpdate{ID: rec.ID, Removal: true}, nil
	}

	var attrs rawAttributes
	if err := json.Unmarshal(rec.Attributes, &attrs); err != nil {
		return models.VehicleUpdate{}, fmt.Errorf("vehicle %s: malformed attributes: %w", rec.ID, err)
	}

	if attrs.Latitude == nil || attrs.Longitude == nil {
		return models.VehicleUpdate{}, fmt.Errorf("vehicle %s: missing coordinates", rec.ID)
	}
	if !isFinite(*attrs.Latitude) || !isFinite(*attrs.Longitude) {
		return models.VehicleUpdate{}, fmt.Errorf("vehicle %s: non-finite coordinates", rec.ID)
	}

	update := models.VehicleUpdate{
		ID:                  rec.ID,
		Latitude:            *attrs.Latitude,
		Longitude:           *attrs.Longitude,
		Bearing:             attrs.Bearing,
		CurrentStopSequence: attrs.CurrentStopSequence,
		DirectionID:         attrs.DirectionID,
		Speed:               attrs.Speed,
	}
	if attrs.CurrentStatus != nil {
		update.CurrentStatus = *attrs.CurrentStatus
	}
	if attrs.Label != nil {
		update.Label = *attrs.Label
	}
	if attrs.UpdatedAt != nil {
		// The feed reports RFC 3339 timestamps. An unparsable value leaves
		// UpdatedAt zero rather than rejecting an otherwise valid record.
		if ts, err := time.Parse(time.RFC3339, *attrs.UpdatedAt); err == nil {
			update.UpdatedAt = ts
		}
	}

	if rels := rec.Relationships; rels != nil {
		update.RouteID = referencedID(rels.Route)
		update.StopID = referencedID(rels.Stop)
		update.TripID = referencedID(rels.Trip)
	}

	return update, nil
}

func referencedID(ref *rawReference) string {
	if ref == nil || ref.Data == nil {
		return ""
	}
	return ref.Data.ID
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
