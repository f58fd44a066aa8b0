package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"fixturegen/internal/signalk"
	"fixturegen/internal/telemetry"
)

func sampleRecord() telemetry.Record {
	ts := time.Date(2023, 1, 11, 23, 17, 57, 0, time.UTC)
	return telemetry.Record{Path: "/actors/1", Datetime: telemetry.Timestamp{Time: ts}, Values: telemetry.Values{Ch1: 10.46, Ch2: 102, Ch3: 3.5}}
}

func sampleFleet() *signalk.Document {
	return &signalk.Document{Context: signalk.Context, Vessels: map[string]*signalk.Vessel{
		"boat-1": {Name: "Boat 1", MMSI: "123456789", SpeedOverGround: 5},
		"boat-2": {Name: "Boat 2", MMSI: "123456791", SpeedOverGround: 8},
	}}
}

func TestJSONWriterRecordLine(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)
	if err := w.WriteBatch([]telemetry.Record{sampleRecord()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("records should stay buffered until close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	want := `{"path":"/actors/1","datetime":"2023-01-11T23:17:57+00:00","values":{"1":10.46,"2":102,"3":3.5}}` + "\n"
	if buf.String() != want {
		t.Fatalf("got %q\nwant %q", buf.String(), want)
	}
}

func TestJSONWriterFleetFlushes(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)
	if err := w.WriteFleet(sampleFleet()); err != nil {
		t.Fatalf("write fleet: %v", err)
	}
	doc, err := signalk.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Vessels) != 2 || doc.Vessels["boat-2"].MMSI != "123456791" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestColorWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewColorWriter(&buf, &Banner{Title: "Observation run", Fields: [][2]string{{"Devices", "100"}}})
	rec := sampleRecord()
	if err := w.WriteBatch([]telemetry.Record{rec, rec}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.WriteFleet(sampleFleet()); err != nil {
		t.Fatalf("fleet: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "Observation run:") != 1 {
		t.Fatalf("overview should print once:\n%s", out)
	}
	if !strings.Contains(out, "Devices:") || !strings.Contains(out, "v2=102") {
		t.Fatalf("missing content:\n%s", out)
	}
	if !strings.Contains(out, "FLEET") || !strings.Contains(out, "step=0 vessels=2") {
		t.Fatalf("missing fleet header:\n%s", out)
	}
	if strings.Index(out, "boat-1") > strings.Index(out, "boat-2") {
		t.Fatalf("vessels out of order:\n%s", out)
	}
	if w.getDeviceColor("/actors/1") == w.getDeviceColor("/actors/9") {
		t.Fatalf("distinct devices should get distinct colors")
	}
}

type fleetAndRecords struct {
	MockWriter
	MockFleetWriter
}

func TestMultiWriter(t *testing.T) {
	a := &fleetAndRecords{}
	b := &mockBatchWriter{}
	mw := NewMultiWriter([]RecordWriter{a, b}, []FleetWriter{a})

	if err := mw.Write(sampleRecord()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := mw.WriteBatch([]telemetry.Record{sampleRecord(), sampleRecord()}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := mw.WriteFleet(sampleFleet()); err != nil {
		t.Fatalf("fleet: %v", err)
	}
	if len(a.Rows) != 3 || len(b.Rows) != 3 || b.batches != 1 {
		t.Fatalf("unexpected fan-out: a=%d b=%d batches=%d", len(a.Rows), len(b.Rows), b.batches)
	}
	if len(a.Stamps) != 1 {
		t.Fatalf("expected one fleet document, got %d", len(a.Stamps))
	}

	failing := NewMultiWriter([]RecordWriter{&failingWriter{}}, []FleetWriter{&failingWriter{}})
	if err := failing.Write(sampleRecord()); err == nil {
		t.Fatalf("expected record error")
	}
	if err := failing.WriteFleet(sampleFleet()); err == nil {
		t.Fatalf("expected fleet error")
	}
}

type fakePublisher struct {
	exchange string
	keys     []string
	msgs     []amqp.Publishing
	err      error
}

func (f *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	f.exchange = exchange
	f.keys = append(f.keys, key)
	f.msgs = append(f.msgs, msg)
	return f.err
}

func TestAMQPWriter(t *testing.T) {
	pub := &fakePublisher{}
	w := &AMQPWriter{channel: pub, exchange: "fixtures", runID: "run-9"}
	if err := w.Write(sampleRecord()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.WriteFleet(sampleFleet()); err != nil {
		t.Fatalf("fleet: %v", err)
	}
	if pub.exchange != "fixtures" || len(pub.msgs) != 2 {
		t.Fatalf("unexpected publishes: %+v", pub)
	}
	if pub.keys[0] != RecordRoutingKey || pub.keys[1] != FleetRoutingKey {
		t.Fatalf("unexpected routing keys: %v", pub.keys)
	}
	msg := pub.msgs[0]
	if msg.ContentType != "application/json" || msg.Headers["run_id"] != "run-9" {
		t.Fatalf("unexpected publishing: %+v", msg)
	}
	var rec telemetry.Record
	if err := json.Unmarshal(msg.Body, &rec); err != nil || rec.Path != "/actors/1" {
		t.Fatalf("unexpected body %s: %v", msg.Body, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestAMQPWriterError(t *testing.T) {
	w := &AMQPWriter{channel: &fakePublisher{err: errors.New("channel closed")}, exchange: "x"}
	err := w.Write(sampleRecord())
	if err == nil || !strings.Contains(err.Error(), "channel closed") {
		t.Fatalf("expected publish error, got %v", err)
	}
}
