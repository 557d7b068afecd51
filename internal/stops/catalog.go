// Package stops loads the agency's stop catalog from a GTFS static feed
// and answers the two questions the notification matcher needs: is this
// stop id known, and which parent station does a platform-level stop
// belong to.
package stops

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/jamespfennell/gtfs"
)

// Catalog is an immutable index of the stop hierarchy. Safe for concurrent
// reads.
type Catalog struct {
	names   map[string]string
	parents map[string]string
}

// Load reads a GTFS static zip from a URL or a local file path and builds
// a Catalog.
func Load(source string) (*Catalog, error) {
	isLocalFile := !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://")

	var b []byte
	var err error
	if isLocalFile {
		b, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
	} else {
		resp, err := http.Get(source)
		if err != nil {
			return nil, fmt.Errorf("error downloading GTFS data: %w", err)
		}
		defer resp.Body.Close() // nolint

		b, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("error reading GTFS data: %w", err)
		}
	}

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}

	return NewCatalog(staticData.Stops), nil
}

// NewCatalog builds a Catalog from parsed GTFS stops.
func NewCatalog(gtfsStops []gtfs.Stop) *Catalog {
	c := &Catalog{
		names:   make(map[string]string, len(gtfsStops)),
		parents: make(map[string]string),
	}
	for i := range gtfsStops {
		stop := &gtfsStops[i]
		c.names[stop.Id] = stop.Name
		if stop.Parent != nil {
			c.parents[stop.Id] = stop.Parent.Id
		}
	}
	return c
}

// Known reports whether the stop id appears in the catalog.
func (c *Catalog) Known(stopID string) bool {
	_, ok := c.names[stopID]
	return ok
}

// Parent returns the parent station id for a platform-level stop, or
// ok=false when the stop has no parent or is unknown.
func (c *Catalog) Parent(stopID string) (string, bool) {
	parent, ok := c.parents[stopID]
	return parent, ok
}

// Name returns the stop's display name, falling back to the id itself for
// unknown stops so notification text always has something to show.
func (c *Catalog) Name(stopID string) string {
	if name, ok := c.names[stopID]; ok && name != "" {
		return name
	}
	return stopID
}

// Len returns the number of stops in the catalog.
func (c *Catalog) Len() int {
	return len(c.names)
}
