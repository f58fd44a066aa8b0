package sim

import (
	"bufio"
	"encoding/json"
	"io"

	"fixturegen/internal/signalk"
	"fixturegen/internal/telemetry"
)

// JSONStdoutWriter prints records and fleet documents as JSON lines.
type JSONStdoutWriter struct {
	buf *bufio.Writer
	enc *json.Encoder
}

// NewJSONWriter creates a JSONStdoutWriter writing to out.
func NewJSONWriter(out io.Writer) *JSONStdoutWriter {
	buf := bufio.NewWriter(out)
	return &JSONStdoutWriter{buf: buf, enc: json.NewEncoder(buf)}
}

// Write outputs a record in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.Record) error {
	return w.enc.Encode(row)
}

// WriteBatch outputs multiple records in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.Record) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteLine outputs an encoded record line unchanged.
func (w *JSONStdoutWriter) WriteLine(line []byte) error {
	return writeRawLine(w.buf, line)
}

// WriteFleet outputs a fleet document on one line and flushes, so
// documents show up as they are stepped.
func (w *JSONStdoutWriter) WriteFleet(doc *signalk.Document) error {
	if err := w.enc.Encode(doc); err != nil {
		return err
	}
	return w.buf.Flush()
}

// Close flushes buffered output.
func (w *JSONStdoutWriter) Close() error {
	return w.buf.Flush()
}

func writeRawLine(buf *bufio.Writer, line []byte) error {
	if _, err := buf.Write(line); err != nil {
		return err
	}
	return buf.WriteByte('\n')
}
