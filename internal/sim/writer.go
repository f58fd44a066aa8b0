package sim

import (
	"encoding/json"
	"fmt"

	"fixturegen/internal/signalk"
	"fixturegen/internal/telemetry"
)

// RecordWriter is an interface to support different observation outputs.
type RecordWriter interface {
	Write(telemetry.Record) error
}

// Optional: writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.Record) error
}

// lineWriter is implemented by sinks that can take an already encoded JSON
// record line as is.
type lineWriter interface {
	WriteLine(line []byte) error
}

// FleetWriter handles fleet documents from the vessel simulator.
type FleetWriter interface {
	WriteFleet(*signalk.Document) error
}

// writeRecords hands rows to w, preferring batch mode when available.
func writeRecords(w RecordWriter, rows []telemetry.Record) error {
	if len(rows) == 0 {
		return nil
	}
	if bw, ok := w.(batchWriter); ok {
		return bw.WriteBatch(rows)
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// writeLine hands an encoded record line to w. Sinks without line support
// get the decoded record.
func writeLine(w RecordWriter, line []byte) error {
	if lw, ok := w.(lineWriter); ok {
		return lw.WriteLine(line)
	}
	var row telemetry.Record
	if err := json.Unmarshal(line, &row); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return w.Write(row)
}
