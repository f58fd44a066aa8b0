package sim

import (
	"fixturegen/internal/signalk"
	"fixturegen/internal/telemetry"
)

// MultiWriter fan-outs records and fleet documents to multiple writers.
type MultiWriter struct {
	recordWriters []RecordWriter
	fleetWriters  []FleetWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(rws []RecordWriter, fws []FleetWriter) *MultiWriter {
	return &MultiWriter{recordWriters: rws, fleetWriters: fws}
}

// Write sends a record to all writers.
func (mw *MultiWriter) Write(row telemetry.Record) error {
	for _, w := range mw.recordWriters {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple records to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.Record) error {
	for _, w := range mw.recordWriters {
		if err := writeRecords(w, rows); err != nil {
			return err
		}
	}
	return nil
}

// WriteLine sends an encoded record line to all writers.
func (mw *MultiWriter) WriteLine(line []byte) error {
	for _, w := range mw.recordWriters {
		if err := writeLine(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteFleet sends a fleet document to all fleet writers.
func (mw *MultiWriter) WriteFleet(doc *signalk.Document) error {
	for _, w := range mw.fleetWriters {
		if err := w.WriteFleet(doc); err != nil {
			return err
		}
	}
	return nil
}
