// Observation record types and their wire format
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultPathPrefix is prepended to the numeric device id.
const DefaultPathPrefix = "/actors/"

// Record is one simulated device observation.
type Record struct {
	Path     string    `json:"path"`
	Datetime Timestamp `json:"datetime"`
	Values   Values    `json:"values"`
}

// Values holds the three sensor channels keyed "1", "2" and "3".
type Values struct {
	Ch1 float64 `json:"1"` // uniform real [0,100], 2dp
	Ch2 int     `json:"2"` // uniform int [0,200]
	Ch3 float64 `json:"3"` // uniform real [0,10], 2dp
}

// Timestamp renders as ISO-8601 with a numeric zone offset. Fractional
// seconds are printed as microseconds and only when non-zero.
type Timestamp struct {
	time.Time
}

const (
	isoSeconds = "2006-01-02T15:04:05-07:00"
	isoMicros  = "2006-01-02T15:04:05.000000-07:00"
)

// String formats the timestamp in its wire form.
func (t Timestamp) String() string {
	if t.Nanosecond()/int(time.Microsecond) != 0 {
		return t.Format(isoMicros)
	}
	return t.Format(isoSeconds)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDatetime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// datetimeLayouts are tried in order. The second accepts offsets without a
// colon, such as +0000.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
}

// ParseDatetime parses a record datetime in RFC 3339 form or with a
// colon-less zone offset.
func ParseDatetime(s string) (time.Time, error) {
	var err error
	for _, layout := range datetimeLayouts {
		t, perr := time.Parse(layout, s)
		if perr == nil {
			return t, nil
		}
		err = perr
	}
	return time.Time{}, fmt.Errorf("parse datetime %q: %w", s, err)
}

// Resolution selects the unit a tick offset is expressed in.
type Resolution string

// Supported resolutions.
const (
	ResolutionMinute Resolution = "minute"
	ResolutionSecond Resolution = "second"
)

// Unit returns the duration of one resolution unit.
func (r Resolution) Unit() (time.Duration, error) {
	switch r {
	case ResolutionMinute, "":
		return time.Minute, nil
	case ResolutionSecond:
		return time.Second, nil
	}
	return 0, fmt.Errorf("%w: unknown resolution %q", ErrInvalidParams, string(r))
}

// PerDay returns how many resolution units make up one day.
func (r Resolution) PerDay() int {
	if r == ResolutionSecond {
		return 24 * 60 * 60
	}
	return 24 * 60
}

// Errors returned by parameter validation.
var (
	ErrInvalidParams = errors.New("invalid generator parameters")
	ErrInvalidDate   = errors.New("invalid start date")
)

// StartDateLayout is the accepted start date format (yyyy-mm-dd).
const StartDateLayout = "2006-01-02"

// ParseStartDate parses a yyyy-mm-dd date as midnight UTC.
func ParseStartDate(s string) (time.Time, error) {
	d, err := time.Parse(StartDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not yyyy-mm-dd", ErrInvalidDate, s)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}

// MaxDays is the longest span whose offsets fit in a time.Duration.
const MaxDays = int(math.MaxInt64 / int64(24*time.Hour))

// Params configures a telemetry generation run.
type Params struct {
	PerUnit    int        // observations per resolution unit per device
	Devices    int        // number of simulated devices
	Days       int        // simulated time span
	Start      time.Time  // baseline instant of tick 0
	Resolution Resolution // minute (default) or second
	Suppress   bool       // drop roughly one record in ten
	PathPrefix string     // defaults to DefaultPathPrefix
}

// Validate checks that all counts are positive, the start date is set and
// the run's tick count and time span fit in their integer types.
func (p Params) Validate() error {
	if p.PerUnit <= 0 {
		return fmt.Errorf("%w: observations per %s must be positive, got %d", ErrInvalidParams, p.resolution(), p.PerUnit)
	}
	if p.Devices <= 0 {
		return fmt.Errorf("%w: number of devices must be positive, got %d", ErrInvalidParams, p.Devices)
	}
	if p.Days <= 0 {
		return fmt.Errorf("%w: number of days must be positive, got %d", ErrInvalidParams, p.Days)
	}
	if p.Start.IsZero() {
		return fmt.Errorf("%w: start date not set", ErrInvalidDate)
	}
	if _, err := p.Resolution.Unit(); err != nil {
		return err
	}
	if p.Days > MaxDays {
		return fmt.Errorf("%w: number of days must be at most %d, got %d", ErrInvalidParams, MaxDays, p.Days)
	}
	if p.PerUnit > math.MaxInt/(p.Days*p.Resolution.PerDay()) {
		return fmt.Errorf("%w: %d observations per %s over %d days overflows the tick count", ErrInvalidParams, p.PerUnit, p.resolution(), p.Days)
	}
	return nil
}

func (p Params) resolution() Resolution {
	if p.Resolution == "" {
		return ResolutionMinute
	}
	return p.Resolution
}
