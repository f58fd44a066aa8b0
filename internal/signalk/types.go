// Signal K fleet document types
package signalk

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Context is the fixed Signal K context identifier of every document.
const Context = "https://signalk.org/specification/1.4.0/context.json"

// BaseMMSI is the synthetic MMSI of boat-1; boat-n uses BaseMMSI+n.
const BaseMMSI = 123456789

// TimestampLayout formats document timestamps in UTC with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Document is a fleet snapshot.
type Document struct {
	Context   string             `json:"@context"`
	Vessels   map[string]*Vessel `json:"vessels"`
	Timestamp string             `json:"@timestamp,omitempty"`
}

// Vessel is the state of a single boat.
type Vessel struct {
	Name                 string     `json:"name"`
	MMSI                 string     `json:"mmsi"`
	Navigation           Navigation `json:"navigation"`
	Heading              Heading    `json:"heading"`
	SpeedOverGround      float64    `json:"speedOverGround"`
	CourseOverGroundTrue float64    `json:"courseOverGroundTrue"`
}

// Navigation wraps the vessel position.
type Navigation struct {
	Position Position `json:"position"`
}

// Position is a latitude/longitude pair in degrees.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Heading holds the true heading in degrees.
type Heading struct {
	TrueHeading float64 `json:"trueHeading"`
}

// VesselKey returns the document key of the n-th vessel.
func VesselKey(n int) string {
	return "boat-" + strconv.Itoa(n)
}

// Keys returns vessel keys in natural order (boat-2 before boat-10).
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.Vessels))
	for k := range d.Vessels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, oki := keyIndex(keys[i])
		nj, okj := keyIndex(keys[j])
		if oki && okj && ni != nj {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func keyIndex(k string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(k, "boat-"))
	return n, err == nil
}

// Time parses the document timestamp. ok is false before the first step.
func (d *Document) Time() (time.Time, bool) {
	if d.Timestamp == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(TimestampLayout, d.Timestamp)
	return t, err == nil
}

// Encode writes the document as a single JSON line.
func (d *Document) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(d)
}

// Decode reads one fleet document from r.
func Decode(r io.Reader) (*Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode fleet document: %w", err)
	}
	if d.Vessels == nil {
		return nil, fmt.Errorf("decode fleet document: no vessels")
	}
	return &d, nil
}
