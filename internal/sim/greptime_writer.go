package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"fixturegen/internal/signalk"
	"fixturegen/internal/telemetry"
)

// Default GreptimeDB settings.
const (
	DefaultGreptimePort     = 4001
	DefaultGreptimeDatabase = "public"
	DefaultRecordTable      = "device_observations"
	DefaultFleetTable       = "vessel_positions"
)

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes records and vessel positions to GreptimeDB via the
// ingester client. Tables are created on first write.
type GreptimeDBWriter struct {
	client      greptimeClient
	recordTable string
	fleetTable  string
	runID       string
	now         func() time.Time
	log         *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint (host or host:port). Empty table
// names fall back to the defaults.
func NewGreptimeDBWriter(log *slog.Logger, endpoint, database, recordTable, fleetTable, runID string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	if database == "" {
		database = DefaultGreptimeDatabase
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptimedb client: %w", err)
	}
	log.Info("greptimedb sink ready", "host", host, "port", port, "database", database)
	return newGreptimeDBWriter(log, client, recordTable, fleetTable, runID), nil
}

func newGreptimeDBWriter(log *slog.Logger, client greptimeClient, recordTable, fleetTable, runID string) *GreptimeDBWriter {
	if recordTable == "" {
		recordTable = DefaultRecordTable
	}
	if fleetTable == "" {
		fleetTable = DefaultFleetTable
	}
	return &GreptimeDBWriter{
		client:      client,
		recordTable: recordTable,
		fleetTable:  fleetTable,
		runID:       runID,
		now:         time.Now,
		log:         log,
	}
}

func splitEndpoint(endpoint string) (string, int, error) {
	if endpoint == "" {
		return "", 0, fmt.Errorf("greptimedb endpoint not set")
	}
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, DefaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid greptimedb port %q: %w", portStr, err)
	}
	return host, port, nil
}

// Write inserts a single record.
func (w *GreptimeDBWriter) Write(row telemetry.Record) error {
	return w.WriteBatch([]telemetry.Record{row})
}

// WriteBatch inserts multiple records.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.Record) error {
	if len(rows) == 0 {
		return nil
	}

	tbl, err := table.New(w.recordTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("path", types.STRING)
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddFieldColumn("ch1", types.FLOAT64)
	tbl.AddFieldColumn("ch2", types.INT64)
	tbl.AddFieldColumn("ch3", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MICROSECOND)

	for _, r := range rows {
		if err := tbl.AddRow(r.Path, w.runID, r.Values.Ch1, int64(r.Values.Ch2), r.Values.Ch3, r.Datetime.Time); err != nil {
			return fmt.Errorf("greptimedb row %s: %w", r.Path, err)
		}
	}
	return w.write(tbl, w.recordTable, len(rows))
}

// WriteFleet inserts one position row per vessel. The initial document has
// no timestamp and is stamped with the current time.
func (w *GreptimeDBWriter) WriteFleet(doc *signalk.Document) error {
	if len(doc.Vessels) == 0 {
		return nil
	}
	ts, ok := doc.Time()
	if !ok {
		ts = w.now().UTC()
	}

	tbl, err := table.New(w.fleetTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("vessel", types.STRING)
	tbl.AddTagColumn("mmsi", types.STRING)
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddFieldColumn("latitude", types.FLOAT64)
	tbl.AddFieldColumn("longitude", types.FLOAT64)
	tbl.AddFieldColumn("true_heading", types.FLOAT64)
	tbl.AddFieldColumn("speed_over_ground", types.FLOAT64)
	tbl.AddFieldColumn("course_over_ground_true", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MICROSECOND)

	for _, key := range doc.Keys() {
		v := doc.Vessels[key]
		p := v.Navigation.Position
		if err := tbl.AddRow(key, v.MMSI, w.runID, p.Latitude, p.Longitude,
			v.Heading.TrueHeading, v.SpeedOverGround, v.CourseOverGroundTrue, ts); err != nil {
			return fmt.Errorf("greptimedb row %s: %w", key, err)
		}
	}
	return w.write(tbl, w.fleetTable, len(doc.Vessels))
}

func (w *GreptimeDBWriter) write(tbl *table.Table, name string, n int) error {
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.log.Error("greptimedb write failed", "table", name, "err", err)
		return err
	}
	w.log.Debug("greptimedb wrote rows", "table", name, "rows", n)
	return nil
}
