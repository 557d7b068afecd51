// Package rules owns the user-configured checkpoint notification rules: an
// in-memory cache in front of a small SQLite database, so rules survive
// restarts while matching never touches the disk.
package rules

import (
	"errors"

	"github.com/google/uuid"
)

// MaxRules caps how many notification rules may exist at once.
const MaxRules = 5

// Structured rejections returned by Add. These are expected conditions for
// the caller to surface, not failures.
var (
	ErrRuleLimit = errors.New("notification rule limit reached")
	ErrDuplicate = errors.New("a rule for this stop, route, and direction already exists")
	ErrInvalid   = errors.New("rule is missing a checkpoint stop or route")
)

// Rule pairs a checkpoint stop with a route and direction. A vehicle on
// RouteID crossing CheckpointStopID travelling DirectionID fires a
// notification. Terminus rules sit at a route's end of line, where
// direction is meaningless and therefore ignored.
type Rule struct {
	ID               string `json:"id"`
	CheckpointStopID string `json:"checkpointStopId"`
	RouteID          string `json:"routeId"`
	DirectionID      int    `json:"directionId"`
	Terminus         bool   `json:"terminus,omitempty"`
}

// SameTriple reports whether two rules cover the same
// (stop, route, direction) combination.
func (r Rule) SameTriple(other Rule) bool {
	return r.CheckpointStopID == other.CheckpointStopID &&
		r.RouteID == other.RouteID &&
		r.DirectionID == other.DirectionID
}

func newRuleID() string {
	return uuid.NewString()
}
